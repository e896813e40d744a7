package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hmans/catalog/internal/library"
)

func newTokens(t *testing.T, ttl time.Duration) *Tokens {
	t.Helper()
	tokens, err := NewTokens("test-secret", ttl)
	if err != nil {
		t.Fatalf("NewTokens() error = %v", err)
	}
	return tokens
}

func TestNewTokensRequiresSecret(t *testing.T) {
	if _, err := NewTokens("", time.Hour); err == nil {
		t.Error("NewTokens(\"\") succeeded, want error")
	}
}

func TestIssueAndVerify(t *testing.T) {
	tokens := newTokens(t, time.Hour)
	u := &library.User{ID: "u1", Username: "mluukkai"}

	raw, err := tokens.Issue(u)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	claims, err := tokens.Verify(raw)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.Username != "mluukkai" {
		t.Errorf("Username = %q, want mluukkai", claims.Username)
	}
	if claims.UserID != "u1" {
		t.Errorf("UserID = %q, want u1", claims.UserID)
	}
	if claims.ID == "" {
		t.Error("token ID is empty")
	}
	if claims.ExpiresAt == nil {
		t.Error("ExpiresAt is nil with a TTL configured")
	}
}

func TestIssueWithoutTTL(t *testing.T) {
	tokens := newTokens(t, 0)
	raw, err := tokens.Issue(&library.User{ID: "u1", Username: "a"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	claims, err := tokens.Verify(raw)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.ExpiresAt != nil {
		t.Errorf("ExpiresAt = %v, want nil", claims.ExpiresAt)
	}
}

func TestTokenIDsAreUnique(t *testing.T) {
	tokens := newTokens(t, time.Hour)
	u := &library.User{ID: "u1", Username: "a"}

	a, _ := tokens.Issue(u)
	b, _ := tokens.Issue(u)
	if a == b {
		t.Error("two issued tokens are identical")
	}
}

func TestVerifyRejects(t *testing.T) {
	tokens := newTokens(t, time.Hour)
	u := &library.User{ID: "u1", Username: "a"}
	valid, err := tokens.Issue(u)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	other := newTokens(t, time.Hour)
	other.secret = []byte("another-secret")
	foreign, _ := other.Issue(u)

	expired := newTokens(t, time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	stale, _ := expired.Issue(u)

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "u1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)

	noUser, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Username: "a"}).
		SignedString([]byte("test-secret"))

	tests := []struct {
		name string
		raw  string
	}{
		{"garbage", "not-a-token"},
		{"empty", ""},
		{"tampered", valid[:len(valid)-2] + "xx"},
		{"wrong secret", foreign},
		{"expired", stale},
		{"alg none", none},
		{"missing user id", noUser},
		{"truncated", strings.SplitN(valid, ".", 2)[0]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tokens.Verify(tt.raw)
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}
