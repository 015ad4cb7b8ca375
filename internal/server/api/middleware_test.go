package api

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pocketdash/mobile-auth/internal/server/services"
	"github.com/pocketdash/mobile-auth/internal/testutil"
	"github.com/pocketdash/mobile-auth/pkg/models"
	"github.com/pocketdash/mobile-auth/pkg/utils"
)

type apiFixture struct {
	guard     *Guard
	handler   *AuthHandler
	auth      *services.AuthService
	sessions  *services.SessionService
	tokens    *testutil.TokenStore
	users     *testutil.UserStore
	whitelist *testutil.WhitelistStore
	email     *testutil.CaptureSender
	sms       *testutil.CaptureSender
	clock     *testutil.Clock
}

func setupAPI(t *testing.T) *apiFixture {
	t.Helper()

	f := &apiFixture{
		tokens:    testutil.NewTokenStore(),
		users:     testutil.NewUserStore(),
		whitelist: testutil.NewWhitelistStore(),
		email:     &testutil.CaptureSender{},
		sms:       &testutil.CaptureSender{},
		clock:     testutil.NewClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
	}
	f.tokens.Now = f.clock.Now

	config := services.DefaultConfig()
	config.MobileAPIKey = "test-mobile-api-key"

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	secrets := services.NewStaticSecretProvider([]byte("test-secret-key-for-testing"))
	f.sessions = services.NewSessionService(secrets, f.clock, config)
	f.auth = services.NewAuthService(f.tokens, f.users, f.whitelist, f.email, f.sms, f.sessions, f.clock, config)
	f.guard = NewGuard(f.sessions, f.auth, logger)
	f.handler = NewAuthHandler(f.auth, f.sessions, logger)
	return f
}

// mintUser creates an account and a valid session credential for it.
func (f *apiFixture) mintUser(t *testing.T, email string) (*models.User, string) {
	t.Helper()

	user := &models.User{ID: uuid.New(), Email: email, Role: models.RoleBasic}
	f.users.Put(user)

	token, _, err := f.sessions.Mint(user.ID, user.Email, "device-1")
	if err != nil {
		t.Fatalf("failed to mint credential: %v", err)
	}
	return user, token
}

func (f *apiFixture) guardedRequest(authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	f.guard.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rec, req)
	return rec
}

func TestGuard_MissingHeader(t *testing.T) {
	f := setupAPI(t)

	rec := f.guardedRequest("")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without Authorization header, got %d", rec.Code)
	}
}

func TestGuard_MalformedCredential(t *testing.T) {
	f := setupAPI(t)

	rec := f.guardedRequest("Bearer not-a-real-token")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage credential, got %d", rec.Code)
	}
}

func TestGuard_ValidCredential(t *testing.T) {
	f := setupAPI(t)
	_, token := f.mintUser(t, "demo@example.com")

	rec := f.guardedRequest("Bearer " + token)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for a valid credential, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestGuard_AcceptsRawTokenWithoutBearerPrefix(t *testing.T) {
	f := setupAPI(t)
	_, token := f.mintUser(t, "demo@example.com")

	rec := f.guardedRequest(token)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for a raw token header, got %d", rec.Code)
	}
}

func TestGuard_UnknownAccount(t *testing.T) {
	f := setupAPI(t)

	// Credential is signed and unexpired but its account does not exist.
	token, _, err := f.sessions.Mint(uuid.New(), "ghost@example.com", "device-1")
	if err != nil {
		t.Fatalf("failed to mint credential: %v", err)
	}

	rec := f.guardedRequest("Bearer " + token)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown account, got %d", rec.Code)
	}
}

func TestGuard_DeactivatedAccount(t *testing.T) {
	f := setupAPI(t)
	user, token := f.mintUser(t, "demo@example.com")

	user.IsDeactivated = true
	f.users.Put(user)

	rec := f.guardedRequest("Bearer " + token)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for deactivated account, got %d", rec.Code)
	}
}

func TestGuard_ExpiredAccount(t *testing.T) {
	f := setupAPI(t)
	user, token := f.mintUser(t, "demo@example.com")

	// The account's own expiration governs even though the credential's
	// expiry claim is still a month out.
	past := f.clock.Now().Add(-time.Hour)
	user.ExpirationDate = &past
	f.users.Put(user)

	rec := f.guardedRequest("Bearer " + token)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for expired account, got %d", rec.Code)
	}
}

func TestGuard_ExpiredCredential(t *testing.T) {
	f := setupAPI(t)
	user := &models.User{ID: uuid.New(), Email: "demo@example.com", Role: models.RoleBasic}
	f.users.Put(user)

	expired, err := utils.GenerateJWT(user.ID, user.Email, "device-1",
		[]byte("test-secret-key-for-testing"), f.clock.Now().Add(-2*time.Hour), time.Hour)
	if err != nil {
		t.Fatalf("failed to craft expired credential: %v", err)
	}

	rec := f.guardedRequest("Bearer " + expired)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired credential, got %d", rec.Code)
	}
}

func TestGuard_StoresClaimsInContext(t *testing.T) {
	f := setupAPI(t)
	user, token := f.mintUser(t, "demo@example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	var got *utils.Claims
	f.guard.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetUserClaims(r)
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rec, req)

	if got == nil {
		t.Fatal("expected claims in request context")
	}
	if got.UserID != user.ID {
		t.Errorf("claims user mismatch: %s vs %s", got.UserID, user.ID)
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/auth/verify", nil)
	rec := httptest.NewRecorder()

	CORSMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("preflight must not reach the handler")
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for preflight, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS allow-origin header")
	}
}
