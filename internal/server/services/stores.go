package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pocketdash/mobile-auth/pkg/models"
)

// TokenStore holds one-time magic tokens. Consume must be an atomic
// compare-and-set on the used flag.
type TokenStore interface {
	Create(ctx context.Context, token *models.MagicToken) error
	Get(ctx context.Context, id string) (*models.MagicToken, error)
	Consume(ctx context.Context, id string) (bool, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

// UserStore holds accounts. Create must tolerate a concurrent insert for
// the same email by loading the winning row instead of failing.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	TouchLastActive(ctx context.Context, id uuid.UUID) error
}

// WhitelistStore is the approved-email table consulted before a new
// account may be created.
type WhitelistStore interface {
	Get(ctx context.Context, email string) (*models.ApprovedEmail, error)
}

type EmailSender interface {
	SendMagicLink(ctx context.Context, email, link string) error
}

type SMSSender interface {
	SendMagicLink(ctx context.Context, phoneNumber, link string) error
}

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now().UTC()
}
