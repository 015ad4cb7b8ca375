package services

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pocketdash/mobile-auth/pkg/models"
	"github.com/pocketdash/mobile-auth/pkg/utils"
)

const dispatchTimeout = 5 * time.Second

// AuthService owns the magic-link token lifecycle: issuance over email or
// SMS, one-time verification, and the account gating evaluated on every
// successful verification.
type AuthService struct {
	tokens    TokenStore
	users     UserStore
	whitelist WhitelistStore
	email     EmailSender
	sms       SMSSender
	sessions  *SessionService
	clock     Clock
	config    Config
}

func NewAuthService(
	tokens TokenStore,
	users UserStore,
	whitelist WhitelistStore,
	email EmailSender,
	sms SMSSender,
	sessions *SessionService,
	clock Clock,
	config Config,
) *AuthService {
	return &AuthService{
		tokens:    tokens,
		users:     users,
		whitelist: whitelist,
		email:     email,
		sms:       sms,
		sessions:  sessions,
		clock:     clock,
		config:    config,
	}
}

// VerifyResult is what a successful token verification hands back to the
// client: a freshly minted session credential, the resolved account, and
// any deep-link routing carried on the token.
type VerifyResult struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
	Routing   *models.Routing
}

// RequestLink issues a magic-link token and emails it. Account creation is
// deferred to verification; the only side effect here is the token row and
// the email. Returns the token lifetime in seconds.
func (s *AuthService) RequestLink(ctx context.Context, email string, routing *models.Routing) (int, error) {
	email = utils.NormalizeEmail(email)
	if !utils.IsValidEmail(email) {
		return 0, ErrInvalidEmailFormat
	}

	if err := s.checkApproval(ctx, email); err != nil {
		return 0, err
	}

	_, link, err := s.issueToken(ctx, email, routing)
	if err != nil {
		return 0, err
	}

	sendCtx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()
	if err := s.email.SendMagicLink(sendCtx, email, link); err != nil {
		// The token row stays so a manually copied link can still verify;
		// the issuance call itself reports the failure.
		return 0, fmt.Errorf("%w: %v", ErrNotificationDispatch, err)
	}

	return int(s.config.TokenTTL.Seconds()), nil
}

// SendToMobile issues a token and texts the deep link to the user's phone.
// The caller is an already-authenticated desktop system, so the endpoint is
// gated by a shared API key rather than a session. Returns the token
// lifetime and the deep link (the handler renders it as a QR fallback).
func (s *AuthService) SendToMobile(ctx context.Context, email, phoneNumber, apiKey string, routing *models.Routing) (int, string, error) {
	if s.config.MobileAPIKey == "" ||
		subtle.ConstantTimeCompare([]byte(apiKey), []byte(s.config.MobileAPIKey)) != 1 {
		return 0, "", ErrInvalidAPIKey
	}

	email = utils.NormalizeEmail(email)
	if !utils.IsValidEmail(email) {
		return 0, "", ErrInvalidEmailFormat
	}
	if !utils.IsValidPhoneNumber(phoneNumber) {
		return 0, "", ErrInvalidPhoneFormat
	}

	if err := s.checkApproval(ctx, email); err != nil {
		return 0, "", err
	}

	_, link, err := s.issueToken(ctx, email, routing)
	if err != nil {
		return 0, "", err
	}

	sendCtx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()
	if err := s.sms.SendMagicLink(sendCtx, phoneNumber, link); err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrNotificationDispatch, err)
	}

	return int(s.config.TokenTTL.Seconds()), link, nil
}

// Verify consumes a magic token exactly once and mints a session credential.
// Cheap token-local checks come first; the atomic consume is the linchpin:
// of any number of concurrent calls for the same token, exactly one passes.
// Account gating runs even though the token was valid, so a deactivated
// user cannot mint a fresh session by requesting a new link.
func (s *AuthService) Verify(ctx context.Context, tokenID, deviceID string) (*VerifyResult, error) {
	token, err := s.tokens.Get(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("token lookup failed: %w", err)
	}
	if token == nil {
		return nil, ErrInvalidToken
	}

	if !s.clock.Now().Before(token.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	consumed, err := s.tokens.Consume(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("token consume failed: %w", err)
	}
	if !consumed {
		return nil, ErrTokenAlreadyUsed
	}

	user, err := s.users.GetByEmail(ctx, token.Email)
	if err != nil {
		return nil, fmt.Errorf("account lookup failed: %w", err)
	}
	if user == nil {
		user, err = s.createAccount(ctx, token.Email)
		if err != nil {
			return nil, fmt.Errorf("account creation failed: %w", err)
		}
	}

	if err := s.AccountGate(user); err != nil {
		return nil, err
	}

	credential, expiresAt, err := s.sessions.Mint(user.ID, user.Email, deviceID)
	if err != nil {
		return nil, err
	}

	return &VerifyResult{
		Token:     credential,
		ExpiresAt: expiresAt,
		User:      user,
		Routing:   token.Routing(),
	}, nil
}

// AccountGate evaluates account-level policy. Deactivation is an explicit
// administrative action and is reported in preference to passive expiry
// when both hold.
func (s *AuthService) AccountGate(user *models.User) error {
	if user.IsDeactivated {
		return ErrAccountDeactivated
	}
	if user.ExpirationDate != nil && !s.clock.Now().Before(*user.ExpirationDate) {
		return ErrAccountExpired
	}
	return nil
}

func (s *AuthService) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// TouchLastActive records activity for an authenticated request. Callers
// run it fire-and-forget; a failure here must never fail the request.
func (s *AuthService) TouchLastActive(ctx context.Context, id uuid.UUID) error {
	return s.users.TouchLastActive(ctx, id)
}

func (s *AuthService) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	return s.tokens.DeleteExpired(ctx)
}

// checkApproval gates issuance for addresses without an account. An
// existing account, even an expired one, skips the whitelist; its own
// expiration date governs instead and is enforced at verification.
func (s *AuthService) checkApproval(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("account lookup failed: %w", err)
	}
	if user != nil {
		return nil
	}

	approved, _, err := s.isApproved(ctx, email)
	if err != nil {
		return err
	}
	if !approved {
		return ErrEmailNotApproved
	}
	return nil
}

// isApproved consults the explicit whitelist first, then the domain policy.
// The explicit row takes precedence so a per-email role or expiration wins
// over a blanket domain rule.
func (s *AuthService) isApproved(ctx context.Context, email string) (bool, *models.ApprovedEmail, error) {
	entry, err := s.whitelist.Get(ctx, email)
	if err != nil {
		return false, nil, fmt.Errorf("whitelist lookup failed: %w", err)
	}
	if entry != nil {
		return true, entry, nil
	}

	for _, domain := range s.config.ApprovedDomains {
		if strings.HasSuffix(email, "@"+domain) {
			return true, nil, nil
		}
	}
	return false, nil, nil
}

// createAccount provisions an account at first successful verification.
// The user id is generated here, not at token issuance. Role and expiration
// come from the whitelist entry when one exists.
func (s *AuthService) createAccount(ctx context.Context, email string) (*models.User, error) {
	_, entry, err := s.isApproved(ctx, email)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:    uuid.New(),
		Email: email,
		Role:  models.RoleBasic,
	}
	if entry != nil {
		user.Role = entry.Role
		user.ExpirationDate = entry.ExpirationDate
	}
	user.Role = user.NormalizedRole()

	// Create is upsert-safe: if a concurrent first verification won the
	// insert race, the existing row is loaded back instead of failing.
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) issueToken(ctx context.Context, email string, routing *models.Routing) (*models.MagicToken, string, error) {
	id, err := utils.GenerateTokenID()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token id: %w", err)
	}

	token := &models.MagicToken{
		ID:        id,
		Email:     email,
		ExpiresAt: s.clock.Now().Add(s.config.TokenTTL),
	}
	if routing != nil {
		if routing.App != "" {
			token.TargetApp = &routing.App
		}
		if routing.PageID != "" {
			token.PageID = &routing.PageID
		}
		if len(routing.Variables) > 0 {
			raw, err := json.Marshal(routing.Variables)
			if err != nil {
				return nil, "", fmt.Errorf("failed to encode routing variables: %w", err)
			}
			token.Variables = raw
		}
	}

	if err := s.tokens.Create(ctx, token); err != nil {
		return nil, "", fmt.Errorf("failed to save token: %w", err)
	}

	return token, s.buildDeepLink(token), nil
}

// buildDeepLink renders scheme://auth?token=...&app=...&pageId=...&variables=...
// with variables as a URL-encoded JSON object.
func (s *AuthService) buildDeepLink(token *models.MagicToken) string {
	q := url.Values{}
	q.Set("token", token.ID)
	if token.TargetApp != nil {
		q.Set("app", *token.TargetApp)
	}
	if token.PageID != nil {
		q.Set("pageId", *token.PageID)
	}
	if len(token.Variables) > 0 {
		q.Set("variables", string(token.Variables))
	}
	return fmt.Sprintf("%s://auth?%s", s.config.DeepLinkScheme, q.Encode())
}
