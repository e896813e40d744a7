package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hmans/catalog/internal/library"
	"github.com/hmans/catalog/internal/store/memory"
)

func setupGate(t *testing.T) (*Gate, *Tokens, *library.User) {
	t.Helper()
	store := memory.New()
	u := &library.User{Username: "mluukkai", FavoriteGenre: "refactoring"}
	if err := store.InsertUser(context.Background(), u); err != nil {
		t.Fatalf("InsertUser() error = %v", err)
	}
	tokens := newTokens(t, time.Hour)
	return NewGate(tokens, store), tokens, u
}

func TestAuthenticateAnonymous(t *testing.T) {
	gate, _, _ := setupGate(t)

	for _, header := range []string{"", "   "} {
		ctx, err := gate.Authenticate(context.Background(), header)
		if err != nil {
			t.Fatalf("Authenticate(%q) error = %v", header, err)
		}
		if u := UserFromContext(ctx); u != nil {
			t.Errorf("Authenticate(%q) user = %+v, want nil", header, u)
		}
	}
}

func TestAuthenticateValidToken(t *testing.T) {
	gate, tokens, want := setupGate(t)
	raw, _ := tokens.Issue(want)

	for _, header := range []string{"Bearer " + raw, "bearer " + raw} {
		ctx, err := gate.Authenticate(context.Background(), header)
		if err != nil {
			t.Fatalf("Authenticate() error = %v", err)
		}
		got := UserFromContext(ctx)
		if got == nil {
			t.Fatal("user = nil, want identity")
		}
		if got.ID != want.ID || got.Username != "mluukkai" {
			t.Errorf("user = %+v, want %+v", got, want)
		}
	}
}

func TestAuthenticateInvalid(t *testing.T) {
	gate, tokens, u := setupGate(t)
	raw, _ := tokens.Issue(u)

	for _, header := range []string{
		"Bearer garbage",
		"Basic " + raw,
		raw,
		"Bearer",
	} {
		ctx, err := gate.Authenticate(context.Background(), header)
		if !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Authenticate(%q) error = %v, want ErrInvalidToken", header, err)
		}
		if UserFromContext(ctx) != nil {
			t.Errorf("Authenticate(%q) attached a user despite failing", header)
		}
	}
}

func TestAuthenticateDeletedUser(t *testing.T) {
	gate, tokens, _ := setupGate(t)
	raw, _ := tokens.Issue(&library.User{ID: "gone", Username: "ghost"})

	ctx, err := gate.Authenticate(context.Background(), "Bearer "+raw)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if u := UserFromContext(ctx); u != nil {
		t.Errorf("user = %+v, want anonymous", u)
	}
}

func TestUserFromContext(t *testing.T) {
	if UserFromContext(context.Background()) != nil {
		t.Error("UserFromContext(background) != nil")
	}
	u := &library.User{ID: "x"}
	if got := UserFromContext(WithUser(context.Background(), u)); got != u {
		t.Errorf("UserFromContext() = %v, want %v", got, u)
	}
}
