// Package testutil provides in-memory fakes for the service-layer stores.
// They are mutex-guarded so tests can exercise concurrent paths, notably
// the atomic one-time token consume.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pocketdash/mobile-auth/pkg/models"
)

// TokenStore is an in-memory models.MagicToken store. Consume mirrors the
// conditional-update semantics of the SQL implementation: a single atomic
// check-and-set on the used flag.
type TokenStore struct {
	mu     sync.Mutex
	tokens map[string]*models.MagicToken

	// Now supplies the expiry cutoff for DeleteExpired. Tests using a fixed
	// clock point it at that clock.
	Now func() time.Time
}

func NewTokenStore() *TokenStore {
	return &TokenStore{
		tokens: make(map[string]*models.MagicToken),
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *TokenStore) Create(ctx context.Context, token *models.MagicToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	cp := *token
	s.tokens[token.ID] = &cp
	return nil
}

func (s *TokenStore) Get(ctx context.Context, id string) (*models.MagicToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[id]
	if !ok {
		return nil, nil
	}
	cp := *token
	return &cp, nil
}

func (s *TokenStore) Consume(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[id]
	if !ok || token.Used {
		return false, nil
	}
	token.Used = true
	now := time.Now().UTC()
	token.UsedAt = &now
	return true, nil
}

func (s *TokenStore) DeleteExpired(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.Now()
	var deleted int64
	for id, token := range s.tokens {
		if !now.Before(token.ExpiresAt) {
			delete(s.tokens, id)
			deleted++
		}
	}
	return deleted, nil
}

// Count reports how many token rows exist, used or not.
func (s *TokenStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

// Last returns the most recently created token, or nil if empty. Tests use
// it to recover the token id embedded in a captured deep link.
func (s *TokenStore) Last() *models.MagicToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	var last *models.MagicToken
	for _, token := range s.tokens {
		if last == nil || token.CreatedAt.After(last.CreatedAt) {
			last = token
		}
	}
	if last == nil {
		return nil
	}
	cp := *last
	return &cp
}

// UserStore is an in-memory models.User store. Create tolerates a racing
// insert for the same email by loading the winning row back, matching the
// ON CONFLICT behavior of the SQL implementation.
type UserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[uuid.UUID]*models.User)}
}

func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == user.Email {
			*user = *existing
			return nil
		}
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			cp := *user
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	cp := *user
	return &cp, nil
}

func (s *UserStore) TouchLastActive(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[id]; ok {
		now := time.Now().UTC()
		user.LastActiveAt = &now
	}
	return nil
}

// Put inserts or replaces a user directly, bypassing Create's upsert logic.
func (s *UserStore) Put(user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *user
	s.users[user.ID] = &cp
}

func (s *UserStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// WhitelistStore is an in-memory approved-email table keyed by address.
type WhitelistStore struct {
	mu      sync.Mutex
	entries map[string]*models.ApprovedEmail
}

func NewWhitelistStore() *WhitelistStore {
	return &WhitelistStore{entries: make(map[string]*models.ApprovedEmail)}
}

func (s *WhitelistStore) Get(ctx context.Context, email string) (*models.ApprovedEmail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[email]
	if !ok {
		return nil, nil
	}
	cp := *entry
	return &cp, nil
}

func (s *WhitelistStore) Put(entry *models.ApprovedEmail) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *entry
	s.entries[entry.Email] = &cp
}

// SentMessage records one dispatched magic link.
type SentMessage struct {
	Recipient string
	Link      string
}

// CaptureSender records dispatched links instead of sending them. It serves
// as both the email and SMS sender in tests. Set Err to simulate a provider
// outage.
type CaptureSender struct {
	mu   sync.Mutex
	Err  error
	sent []SentMessage
}

func (s *CaptureSender) SendMagicLink(ctx context.Context, recipient, link string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.sent = append(s.sent, SentMessage{Recipient: recipient, Link: link})
	return nil
}

func (s *CaptureSender) Sent() []SentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SentMessage, len(s.sent))
	copy(out, s.sent)
	return out
}

// Clock is a settable test clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
