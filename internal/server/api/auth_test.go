package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pocketdash/mobile-auth/pkg/models"
)

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to encode request body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

// --- RequestLink handler tests ---

func TestAuthHandler_RequestLink_Success(t *testing.T) {
	f := setupAPI(t)
	f.whitelist.Put(&models.ApprovedEmail{Email: "demo@example.com", Role: models.RoleBasic})

	rec := postJSON(t, f.handler.RequestLink, "/api/auth/request-link",
		models.RequestLinkRequest{Email: "demo@example.com"})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp models.RequestLinkResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Success {
		t.Error("expected success=true")
	}
	if resp.ExpiresIn != 900 {
		t.Errorf("expected expires_in=900, got %d", resp.ExpiresIn)
	}
	if len(f.email.Sent()) != 1 {
		t.Errorf("expected 1 email dispatched, got %d", len(f.email.Sent()))
	}
}

func TestAuthHandler_RequestLink_MissingEmail(t *testing.T) {
	f := setupAPI(t)

	rec := postJSON(t, f.handler.RequestLink, "/api/auth/request-link",
		models.RequestLinkRequest{})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing email, got %d", rec.Code)
	}
}

func TestAuthHandler_RequestLink_NotApproved(t *testing.T) {
	f := setupAPI(t)

	rec := postJSON(t, f.handler.RequestLink, "/api/auth/request-link",
		models.RequestLinkRequest{Email: "stranger@example.com"})

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for unapproved email, got %d", rec.Code)
	}
}

func TestAuthHandler_RequestLink_BadBody(t *testing.T) {
	f := setupAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/request-link",
		bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	f.handler.RequestLink(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rec.Code)
	}
}

// --- SendToMobile handler tests ---

func TestAuthHandler_SendToMobile_Success(t *testing.T) {
	f := setupAPI(t)
	f.whitelist.Put(&models.ApprovedEmail{Email: "demo@example.com", Role: models.RoleBasic})

	rec := postJSON(t, f.handler.SendToMobile, "/api/auth/send-to-mobile",
		models.SendToMobileRequest{
			Email:       "demo@example.com",
			PhoneNumber: "+15551234567",
			APIKey:      "test-mobile-api-key",
		})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp models.SendToMobileResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.QRPNG == "" {
		t.Error("expected a QR code fallback in the response")
	}
	if len(f.sms.Sent()) != 1 {
		t.Errorf("expected 1 SMS dispatched, got %d", len(f.sms.Sent()))
	}
}

func TestAuthHandler_SendToMobile_WrongAPIKey(t *testing.T) {
	f := setupAPI(t)
	f.whitelist.Put(&models.ApprovedEmail{Email: "demo@example.com", Role: models.RoleBasic})

	rec := postJSON(t, f.handler.SendToMobile, "/api/auth/send-to-mobile",
		models.SendToMobileRequest{
			Email:       "demo@example.com",
			PhoneNumber: "+15551234567",
			APIKey:      "wrong",
		})

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong API key, got %d", rec.Code)
	}
	if f.tokens.Count() != 0 {
		t.Error("no token should be issued for a rejected API key")
	}
}

func TestAuthHandler_SendToMobile_MissingFields(t *testing.T) {
	f := setupAPI(t)

	rec := postJSON(t, f.handler.SendToMobile, "/api/auth/send-to-mobile",
		models.SendToMobileRequest{Email: "demo@example.com"})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing fields, got %d", rec.Code)
	}
}

// --- Verify handler tests ---

func TestAuthHandler_Verify_Success(t *testing.T) {
	f := setupAPI(t)
	f.whitelist.Put(&models.ApprovedEmail{Email: "demo@example.com", Role: models.RoleBasic})

	routing := &models.Routing{App: "dashboard", PageID: "home"}
	rec := postJSON(t, f.handler.RequestLink, "/api/auth/request-link",
		models.RequestLinkRequest{Email: "demo@example.com", Routing: routing})
	if rec.Code != http.StatusOK {
		t.Fatalf("request-link failed: %d", rec.Code)
	}

	tokenID := f.tokens.Last().ID
	rec = postJSON(t, f.handler.Verify, "/api/auth/verify",
		models.VerifyRequest{Token: tokenID, DeviceID: "device-1"})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp models.VerifyResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Token == "" {
		t.Error("expected a session credential")
	}
	if resp.User.Email != "demo@example.com" {
		t.Errorf("user email mismatch: %s", resp.User.Email)
	}
	if resp.User.Role != models.RoleBasic {
		t.Errorf("user role mismatch: %s", resp.User.Role)
	}
	if resp.Routing == nil || resp.Routing.App != "dashboard" || resp.Routing.PageID != "home" {
		t.Errorf("routing not carried through verification: %+v", resp.Routing)
	}

	// The minted credential passes the guard.
	guardRec := f.guardedRequest("Bearer " + resp.Token)
	if guardRec.Code != http.StatusNoContent {
		t.Fatalf("minted credential rejected by guard: %d", guardRec.Code)
	}
}

func TestAuthHandler_Verify_ReusedToken(t *testing.T) {
	f := setupAPI(t)
	f.whitelist.Put(&models.ApprovedEmail{Email: "demo@example.com", Role: models.RoleBasic})

	postJSON(t, f.handler.RequestLink, "/api/auth/request-link",
		models.RequestLinkRequest{Email: "demo@example.com"})
	tokenID := f.tokens.Last().ID

	first := postJSON(t, f.handler.Verify, "/api/auth/verify",
		models.VerifyRequest{Token: tokenID, DeviceID: "device-1"})
	if first.Code != http.StatusOK {
		t.Fatalf("first verify failed: %d", first.Code)
	}

	second := postJSON(t, f.handler.Verify, "/api/auth/verify",
		models.VerifyRequest{Token: tokenID, DeviceID: "device-2"})
	if second.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for reused token, got %d", second.Code)
	}
}

func TestAuthHandler_Verify_MissingDeviceID(t *testing.T) {
	f := setupAPI(t)

	rec := postJSON(t, f.handler.Verify, "/api/auth/verify",
		models.VerifyRequest{Token: "some-token"})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing device_id, got %d", rec.Code)
	}
}

// --- Refresh handler tests ---

func TestAuthHandler_Refresh_NoRefreshNeeded(t *testing.T) {
	f := setupAPI(t)
	_, token := f.mintUser(t, "demo@example.com")

	rec := postJSON(t, f.handler.Refresh, "/api/auth/refresh",
		models.RefreshRequest{Token: token})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp models.RefreshResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Token != token {
		t.Error("a fresh credential should be returned unchanged")
	}
	if resp.Message == "" {
		t.Error("expected the no-refresh message")
	}
}

func TestAuthHandler_Refresh_InvalidCredential(t *testing.T) {
	f := setupAPI(t)

	rec := postJSON(t, f.handler.Refresh, "/api/auth/refresh",
		models.RefreshRequest{Token: "garbage"})

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a garbage credential, got %d", rec.Code)
	}
}

// --- Me handler tests ---

func TestAuthHandler_Me(t *testing.T) {
	f := setupAPI(t)
	user, token := f.mintUser(t, "demo@example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	f.guard.Middleware(http.HandlerFunc(f.handler.Me)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp models.UserSummary
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.UserID != user.ID.String() {
		t.Errorf("user id mismatch: %s", resp.UserID)
	}
	if resp.Email != "demo@example.com" {
		t.Errorf("email mismatch: %s", resp.Email)
	}
}
