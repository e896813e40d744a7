package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hmans/catalog/internal/library"
)

// UserFinder looks users up by ID.
type UserFinder interface {
	FindUserByID(ctx context.Context, id string) (*library.User, error)
}

// Gate resolves the Authorization header of a request into an identity.
type Gate struct {
	tokens *Tokens
	users  UserFinder
}

// NewGate creates a gate verifying tokens and looking users up in users.
func NewGate(tokens *Tokens, users UserFinder) *Gate {
	return &Gate{tokens: tokens, users: users}
}

// Authenticate returns ctx with the identity named by header attached.
//
// An empty header yields ctx unchanged. A header that is not a valid bearer
// token fails with ErrInvalidToken. A valid token for a user that no longer
// exists yields ctx unchanged.
func (g *Gate) Authenticate(ctx context.Context, header string) (context.Context, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return ctx, nil
	}

	scheme, raw, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ctx, fmt.Errorf("%w: expected bearer token", ErrInvalidToken)
	}

	claims, err := g.tokens.Verify(strings.TrimSpace(raw))
	if err != nil {
		return ctx, err
	}

	u, err := g.users.FindUserByID(ctx, claims.UserID)
	if errors.Is(err, library.ErrNotFound) {
		return ctx, nil
	}
	if err != nil {
		return ctx, fmt.Errorf("looking up user: %w", err)
	}
	return WithUser(ctx, u), nil
}
