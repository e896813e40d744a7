package auth

import (
	"context"

	"github.com/hmans/catalog/internal/library"
)

type userKey struct{}

// WithUser returns a copy of ctx carrying u as the current identity.
func WithUser(ctx context.Context, u *library.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFromContext returns the current identity, or nil for anonymous requests.
func UserFromContext(ctx context.Context) *library.User {
	u, _ := ctx.Value(userKey{}).(*library.User)
	return u
}
