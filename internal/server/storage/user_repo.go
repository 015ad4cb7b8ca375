package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pocketdash/mobile-auth/pkg/models"
)

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new account. Two concurrent first-time verifications for
// the same email must not fail: on a duplicate email the insert is a no-op
// and the existing row is loaded back into user.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, role, expiration_date)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO NOTHING
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Email, user.Role, user.ExpirationDate,
	).Scan(&user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		existing, err := r.GetByEmail(ctx, user.Email)
		if err != nil {
			return err
		}
		if existing == nil {
			return sql.ErrNoRows
		}
		*user = *existing
		return nil
	}
	return err
}

// GetByEmail returns the account regardless of deactivation state; policy
// checks belong to the caller.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	query := `SELECT * FROM users WHERE email = $1`
	err := r.db.GetContext(ctx, &user, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	query := `SELECT * FROM users WHERE id = $1`
	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) ListAll(ctx context.Context) ([]models.User, error) {
	var users []models.User
	query := `SELECT * FROM users ORDER BY created_at DESC`
	err := r.db.SelectContext(ctx, &users, query)
	return users, err
}

// TouchLastActive is called on every authenticated request, fire-and-forget.
func (r *UserRepository) TouchLastActive(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users SET last_active_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *UserRepository) SetDeactivated(ctx context.Context, id uuid.UUID, deactivated bool) error {
	var query string
	if deactivated {
		query = `UPDATE users SET is_deactivated = true, deactivated_at = NOW() WHERE id = $1`
	} else {
		query = `UPDATE users SET is_deactivated = false, deactivated_at = NULL WHERE id = $1`
	}
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// SetExpirationDate updates the account expiration; nil clears it.
func (r *UserRepository) SetExpirationDate(ctx context.Context, id uuid.UUID, expiration *time.Time) error {
	query := `UPDATE users SET expiration_date = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, expiration, id)
	return err
}

func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM users WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}
