package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/pocketdash/mobile-auth/pkg/models"
)

type WhitelistRepository struct {
	db *DB
}

func NewWhitelistRepository(db *DB) *WhitelistRepository {
	return &WhitelistRepository{db: db}
}

func (r *WhitelistRepository) Get(ctx context.Context, email string) (*models.ApprovedEmail, error) {
	var entry models.ApprovedEmail
	query := `SELECT * FROM approved_emails WHERE email = $1`
	err := r.db.GetContext(ctx, &entry, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *WhitelistRepository) Upsert(ctx context.Context, entry *models.ApprovedEmail) error {
	query := `
		INSERT INTO approved_emails (email, role, expiration_date)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET role = $2, expiration_date = $3
		RETURNING created_at
	`
	return r.db.QueryRowContext(ctx, query,
		entry.Email, entry.Role, entry.ExpirationDate,
	).Scan(&entry.CreatedAt)
}

func (r *WhitelistRepository) Delete(ctx context.Context, email string) error {
	query := `DELETE FROM approved_emails WHERE email = $1`
	_, err := r.db.ExecContext(ctx, query, email)
	return err
}

func (r *WhitelistRepository) ListAll(ctx context.Context) ([]models.ApprovedEmail, error) {
	var entries []models.ApprovedEmail
	query := `SELECT * FROM approved_emails ORDER BY email`
	err := r.db.SelectContext(ctx, &entries, query)
	return entries, err
}
