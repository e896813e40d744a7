package graph

import (
	"github.com/hmans/catalog/internal/catalog"
	"github.com/hmans/catalog/internal/library"
	"github.com/hmans/catalog/internal/pubsub"
)

//go:generate go tool gqlgen generate

// Resolver is the root resolver for the GraphQL schema. Events must be the
// bus the catalog service publishes on.
type Resolver struct {
	Catalog *catalog.Service
	Events  *pubsub.Bus[*library.Book]
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
