package repositories

import (
	"context"
	"sync"
	"time"
)

// RefreshToken is a stored (hashed) refresh token. Tokens are rotated on
// every refresh; a revoked or expired token is never accepted again.
type RefreshToken struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

type RefreshTokenRepository interface {
	Store(ctx context.Context, token RefreshToken) error
	Get(ctx context.Context, tokenHash string) (*RefreshToken, error)
	Revoke(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context) error
}

type inMemoryRefreshTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]RefreshToken
}

func NewInMemoryRefreshTokenRepo() RefreshTokenRepository {
	return &inMemoryRefreshTokenRepo{tokens: make(map[string]RefreshToken)}
}

func (r *inMemoryRefreshTokenRepo) Store(ctx context.Context, token RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}
	r.tokens[token.TokenHash] = token
	return nil
}

func (r *inMemoryRefreshTokenRepo) Get(ctx context.Context, tokenHash string) (*RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[tokenHash]
	if !ok {
		return nil, ErrTokenNotFound
	}
	return &token, nil
}

func (r *inMemoryRefreshTokenRepo) Revoke(ctx context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[tokenHash]
	if !ok {
		return ErrTokenNotFound
	}
	token.Revoked = true
	r.tokens[tokenHash] = token
	return nil
}

func (r *inMemoryRefreshTokenRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for hash, token := range r.tokens {
		if token.UserID == userID {
			token.Revoked = true
			r.tokens[hash] = token
		}
	}
	return nil
}

func (r *inMemoryRefreshTokenRepo) DeleteExpired(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for hash, token := range r.tokens {
		if token.ExpiresAt.Before(now) {
			delete(r.tokens, hash)
		}
	}
	return nil
}
