package services

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pocketdash/mobile-auth/pkg/utils"
)

// SessionService mints and refreshes the long-lived bearer credentials the
// mobile client presents on every request. Credentials are self-contained
// signed payloads; there is no server-side session row and no per-token
// revocation. A compromise is handled by rotating the signing secret, which
// invalidates every outstanding credential at once.
type SessionService struct {
	secrets *SecretProvider
	clock   Clock
	config  Config
}

func NewSessionService(secrets *SecretProvider, clock Clock, config Config) *SessionService {
	return &SessionService{
		secrets: secrets,
		clock:   clock,
		config:  config,
	}
}

// Mint issues a fresh credential for the user. The device id is recorded as
// a claim for audit but not enforced; multi-device sessions are intentional.
func (s *SessionService) Mint(userID uuid.UUID, email, deviceID string) (string, time.Time, error) {
	secret, err := s.secrets.Get()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to load signing secret: %w", err)
	}

	now := s.clock.Now()
	token, err := utils.GenerateJWT(userID, email, deviceID, secret, now, s.config.SessionTTL)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign credential: %w", err)
	}

	return token, now.Add(s.config.SessionTTL), nil
}

// Validate checks signature and expiry of a presented credential. On a
// signature failure it allows one forced secret refetch in case the secret
// was rotated under the process.
func (s *SessionService) Validate(token string) (*utils.Claims, error) {
	secret, err := s.secrets.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to load signing secret: %w", err)
	}

	now := s.clock.Now()
	claims, err := utils.ValidateJWT(token, secret, now)
	if errors.Is(err, utils.ErrTokenMalformed) {
		s.secrets.Invalidate()
		refreshed, ferr := s.secrets.Get()
		if ferr == nil && !bytes.Equal(secret, refreshed) {
			claims, err = utils.ValidateJWT(token, refreshed, now)
		}
	}
	if err != nil {
		if errors.Is(err, utils.ErrTokenExpired) {
			return nil, ErrCredentialExpired
		}
		return nil, ErrInvalidCredential
	}
	return claims, nil
}

// Refresh reissues a credential nearing expiry. An expired credential
// cannot be refreshed; the user must request a new magic link, since
// refresh is a convenience for active sessions, not a way around expiry.
// Credentials with at least the renewal window remaining are returned
// unchanged to avoid pointless churn.
func (s *SessionService) Refresh(current string) (string, time.Time, bool, error) {
	claims, err := s.Validate(current)
	if err != nil {
		return "", time.Time{}, false, err
	}

	remaining := claims.ExpiresAt.Time.Sub(s.clock.Now())
	if remaining >= s.config.RenewalWindow {
		return current, claims.ExpiresAt.Time, false, nil
	}

	token, expiresAt, err := s.Mint(claims.UserID, claims.Email, claims.DeviceID)
	if err != nil {
		return "", time.Time{}, false, err
	}
	return token, expiresAt, true, nil
}
