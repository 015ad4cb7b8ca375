package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/pocketdash/mobile-auth/pkg/models"
)

type TokenRepository struct {
	db *DB
}

func NewTokenRepository(db *DB) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) Create(ctx context.Context, token *models.MagicToken) error {
	query := `
		INSERT INTO magic_tokens (id, email, expires_at, target_app, page_id, variables)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	return r.db.QueryRowContext(ctx, query,
		token.ID, token.Email, token.ExpiresAt, token.TargetApp, token.PageID, token.Variables,
	).Scan(&token.CreatedAt)
}

func (r *TokenRepository) Get(ctx context.Context, id string) (*models.MagicToken, error) {
	var token models.MagicToken
	query := `SELECT * FROM magic_tokens WHERE id = $1`
	err := r.db.GetContext(ctx, &token, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &token, nil
}

// Consume atomically transitions used from false to true. It returns false
// when the token was already consumed, so that any number of concurrent
// verifications yield exactly one success. The check-and-set happens in a
// single conditional UPDATE, never a read followed by a write.
func (r *TokenRepository) Consume(ctx context.Context, id string) (bool, error) {
	query := `UPDATE magic_tokens SET used = true, used_at = NOW() WHERE id = $1 AND used = false`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *TokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM magic_tokens WHERE expires_at < NOW()`
	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// CleanupOldTokens deletes every token created before the retention cutoff,
// used or not. It backs the admin cleanup-tokens --older-than flag.
func (r *TokenRepository) CleanupOldTokens(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `DELETE FROM magic_tokens WHERE created_at < $1`
	cutoff := time.Now().UTC().Add(-olderThan)
	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
