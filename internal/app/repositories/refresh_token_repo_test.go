package repositories

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRefreshTokenRevoke(t *testing.T) {
	repo := NewInMemoryRefreshTokenRepo()
	ctx := context.Background()

	if err := repo.Store(ctx, RefreshToken{TokenHash: "h1", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}); err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := repo.Revoke(ctx, "h1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	token, err := repo.Get(ctx, "h1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !token.Revoked {
		t.Fatalf("token should be revoked")
	}
	if err := repo.Revoke(ctx, "missing"); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRefreshTokenRevokeAllForUser(t *testing.T) {
	repo := NewInMemoryRefreshTokenRepo()
	ctx := context.Background()

	for _, hash := range []string{"a1", "a2"} {
		if err := repo.Store(ctx, RefreshToken{TokenHash: hash, UserID: "alice", ExpiresAt: time.Now().Add(time.Hour)}); err != nil {
			t.Fatalf("store %s: %v", hash, err)
		}
	}
	if err := repo.Store(ctx, RefreshToken{TokenHash: "b1", UserID: "bob", ExpiresAt: time.Now().Add(time.Hour)}); err != nil {
		t.Fatalf("store b1: %v", err)
	}

	if err := repo.RevokeAllForUser(ctx, "alice"); err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	for _, hash := range []string{"a1", "a2"} {
		token, err := repo.Get(ctx, hash)
		if err != nil {
			t.Fatalf("get %s: %v", hash, err)
		}
		if !token.Revoked {
			t.Fatalf("%s should be revoked", hash)
		}
	}
	untouched, err := repo.Get(ctx, "b1")
	if err != nil {
		t.Fatalf("get b1: %v", err)
	}
	if untouched.Revoked {
		t.Fatalf("bob's token must not be touched")
	}
}

func TestRefreshTokenDeleteExpired(t *testing.T) {
	repo := NewInMemoryRefreshTokenRepo()
	ctx := context.Background()

	if err := repo.Store(ctx, RefreshToken{TokenHash: "old", UserID: "u1", ExpiresAt: time.Now().Add(-time.Minute)}); err != nil {
		t.Fatalf("store old: %v", err)
	}
	if err := repo.Store(ctx, RefreshToken{TokenHash: "live", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}); err != nil {
		t.Fatalf("store live: %v", err)
	}

	if err := repo.DeleteExpired(ctx); err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if _, err := repo.Get(ctx, "old"); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expired token should be gone, got %v", err)
	}
	if _, err := repo.Get(ctx, "live"); err != nil {
		t.Fatalf("live token should survive: %v", err)
	}
}
