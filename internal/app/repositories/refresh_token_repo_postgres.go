package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

type postgresRefreshTokenRepo struct {
	db *sql.DB
}

// NewPostgresRefreshTokenRepo builds a refresh-token repository on the raw
// sql.DB handle shared with gorm.
func NewPostgresRefreshTokenRepo(db *sql.DB) (RefreshTokenRepository, error) {
	repo := &postgresRefreshTokenRepo{db: db}
	if err := repo.ensureSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *postgresRefreshTokenRepo) ensureSchema() error {
	const createTable = `
        CREATE TABLE IF NOT EXISTS refresh_tokens (
            token_hash TEXT PRIMARY KEY,
            user_id TEXT NOT NULL,
            expires_at TIMESTAMPTZ NOT NULL,
            revoked BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`
	if _, err := r.db.Exec(createTable); err != nil {
		return err
	}
	if _, err := r.db.Exec(`CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user ON refresh_tokens (user_id)`); err != nil {
		return err
	}
	return nil
}

func (r *postgresRefreshTokenRepo) Store(ctx context.Context, token RefreshToken) error {
	const query = `
        INSERT INTO refresh_tokens (token_hash, user_id, expires_at, revoked)
        VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, query, token.TokenHash, token.UserID, token.ExpiresAt.UTC(), token.Revoked)
	return r.mapError(err)
}

func (r *postgresRefreshTokenRepo) Get(ctx context.Context, tokenHash string) (*RefreshToken, error) {
	const query = `
        SELECT token_hash, user_id, expires_at, revoked, created_at
        FROM refresh_tokens
        WHERE token_hash = $1`
	var token RefreshToken
	err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(
		&token.TokenHash,
		&token.UserID,
		&token.ExpiresAt,
		&token.Revoked,
		&token.CreatedAt,
	)
	if err != nil {
		return nil, r.mapError(err)
	}
	return &token, nil
}

func (r *postgresRefreshTokenRepo) Revoke(ctx context.Context, tokenHash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrTokenNotFound
	}
	return nil
}

func (r *postgresRefreshTokenRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE user_id = $1`, userID)
	return err
}

func (r *postgresRefreshTokenRepo) DeleteExpired(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at < NOW()`)
	return err
}

func (r *postgresRefreshTokenRepo) mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrTokenNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		// Token hashes are random; a duplicate insert means the same token
		// was stored twice, which is harmless.
		return nil
	}
	return err
}
