package api

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"time"

	"github.com/pocketdash/mobile-auth/internal/server/services"
	"github.com/pocketdash/mobile-auth/pkg/models"
	qrcode "github.com/skip2/go-qrcode"
)

type AuthHandler struct {
	authService    *services.AuthService
	sessionService *services.SessionService
	logger         *slog.Logger
}

func NewAuthHandler(authService *services.AuthService, sessionService *services.SessionService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		sessionService: sessionService,
		logger:         logger,
	}
}

// RequestLink handles POST /api/auth/request-link
func (h *AuthHandler) RequestLink(w http.ResponseWriter, r *http.Request) {
	var req models.RequestLinkRequest

	if err := decodeJSON(r, &req); err != nil {
		respondErrorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" {
		respondErrorJSON(w, http.StatusBadRequest, "email is required")
		return
	}

	expiresIn, err := h.authService.RequestLink(r.Context(), req.Email, req.Routing)
	if err != nil {
		h.logger.Warn("request-link failed", "error", err)
		respondServiceError(w, err)
		return
	}

	tokensIssued.WithLabelValues("email").Inc()
	respondJSON(w, http.StatusOK, models.RequestLinkResponse{
		Success:   true,
		Message:   "Sign-in link sent to email",
		ExpiresIn: expiresIn,
	})
}

// SendToMobile handles POST /api/auth/send-to-mobile. The caller is an
// authenticated desktop system acting on the user's behalf, gated by a
// shared API key. The deep link is also returned as a QR PNG so the
// desktop can show a scannable fallback next to the SMS.
func (h *AuthHandler) SendToMobile(w http.ResponseWriter, r *http.Request) {
	var req models.SendToMobileRequest

	if err := decodeJSON(r, &req); err != nil {
		respondErrorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.PhoneNumber == "" || req.APIKey == "" {
		respondErrorJSON(w, http.StatusBadRequest, "email, phone_number and api_key are required")
		return
	}

	expiresIn, link, err := h.authService.SendToMobile(r.Context(), req.Email, req.PhoneNumber, req.APIKey, req.Routing)
	if err != nil {
		h.logger.Warn("send-to-mobile failed", "error", err)
		respondServiceError(w, err)
		return
	}

	resp := models.SendToMobileResponse{
		Success:   true,
		Message:   "Sign-in link sent via SMS",
		ExpiresIn: expiresIn,
	}
	if png, err := qrcode.Encode(link, qrcode.Medium, 256); err == nil {
		resp.QRPNG = base64.StdEncoding.EncodeToString(png)
	}

	tokensIssued.WithLabelValues("sms").Inc()
	respondJSON(w, http.StatusOK, resp)
}

// Verify handles POST /api/auth/verify
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyRequest

	if err := decodeJSON(r, &req); err != nil {
		respondErrorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Token == "" || req.DeviceID == "" {
		respondErrorJSON(w, http.StatusBadRequest, "token and device_id are required")
		return
	}

	result, err := h.authService.Verify(r.Context(), req.Token, req.DeviceID)
	if err != nil {
		tokensVerified.WithLabelValues("failure").Inc()
		h.logger.Warn("verify failed", "error", err)
		respondServiceError(w, err)
		return
	}

	tokensVerified.WithLabelValues("success").Inc()
	respondJSON(w, http.StatusOK, models.VerifyResponse{
		Success:   true,
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt.UTC().Format(time.RFC3339),
		User: models.UserSummary{
			UserID: result.User.ID.String(),
			Email:  result.User.Email,
			Role:   result.User.NormalizedRole(),
		},
		Routing: result.Routing,
	})
}

// Refresh handles POST /api/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest

	if err := decodeJSON(r, &req); err != nil {
		respondErrorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Token == "" {
		respondErrorJSON(w, http.StatusBadRequest, "token is required")
		return
	}

	token, expiresAt, refreshed, err := h.sessionService.Refresh(req.Token)
	if err != nil {
		h.logger.Warn("refresh failed", "error", err)
		respondServiceError(w, err)
		return
	}

	resp := models.RefreshResponse{
		Success:   true,
		Token:     token,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	}
	if !refreshed {
		resp.Message = "no refresh needed"
	}
	respondJSON(w, http.StatusOK, resp)
}

// Me handles GET /api/me, the mobile client's launch check. It exists to
// exercise the guard end to end: a deactivated or expired account is
// rejected here even when the credential itself is still valid.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := GetUserClaims(r)
	if claims == nil {
		respondErrorJSON(w, http.StatusUnauthorized, "missing authorization claims")
		return
	}

	user, err := h.authService.GetUserByID(r.Context(), claims.UserID)
	if err != nil || user == nil {
		h.logger.Error("me lookup", "error", err)
		respondErrorJSON(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondJSON(w, http.StatusOK, models.UserSummary{
		UserID: user.ID.String(),
		Email:  user.Email,
		Role:   user.NormalizedRole(),
	})
}
