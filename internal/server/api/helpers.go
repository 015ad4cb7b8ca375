package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pocketdash/mobile-auth/internal/server/services"
	"github.com/pocketdash/mobile-auth/pkg/models"
)

func writeJSON(w http.ResponseWriter, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(data)
}

func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, data)
}

func respondErrorJSON(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, models.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}

func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// respondServiceError maps service sentinel errors to HTTP statuses with
// their own message each, so the client can show the right copy for an
// expired link vs a reused one vs an account problem. Anything unmapped is
// a downstream failure: logged upstream, reported generically here so
// internals never leak.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidEmailFormat),
		errors.Is(err, services.ErrInvalidPhoneFormat):
		respondErrorJSON(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrInvalidAPIKey):
		respondErrorJSON(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrEmailNotApproved):
		respondErrorJSON(w, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrInvalidToken),
		errors.Is(err, services.ErrTokenExpired),
		errors.Is(err, services.ErrTokenAlreadyUsed),
		errors.Is(err, services.ErrInvalidCredential),
		errors.Is(err, services.ErrCredentialExpired):
		respondErrorJSON(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrAccountDeactivated),
		errors.Is(err, services.ErrAccountExpired):
		respondErrorJSON(w, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrNotificationDispatch):
		respondErrorJSON(w, http.StatusBadGateway, services.ErrNotificationDispatch.Error())
	default:
		respondErrorJSON(w, http.StatusInternalServerError, "internal server error")
	}
}
