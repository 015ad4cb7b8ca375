package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pocketdash/mobile-auth/internal/server/services"
	"github.com/pocketdash/mobile-auth/pkg/utils"
)

type contextKey string

const (
	userClaimsKey contextKey = "userClaims"
)

// Guard is the per-request access check every protected operation passes
// through. Checks run cheapest first: header shape, then signature and
// claim expiry, then a live re-read of account state. The account re-check
// is deliberate even for an unexpired credential: an account can be
// deactivated mid-session, and a 30-day bearer token must not outlive an
// administrative deactivation by more than one request cycle.
type Guard struct {
	sessions *services.SessionService
	auth     *services.AuthService
	logger   *slog.Logger
}

func NewGuard(sessions *services.SessionService, auth *services.AuthService, logger *slog.Logger) *Guard {
	return &Guard{
		sessions: sessions,
		auth:     auth,
		logger:   logger,
	}
}

func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			guardRejections.WithLabelValues("missing_header").Inc()
			respondErrorJSON(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		// Accept the raw token when the Bearer prefix is absent; some
		// clients never send the word "Bearer".
		token := authHeader
		if after, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
			token = after
		}

		claims, err := g.sessions.Validate(token)
		if err != nil {
			g.rejectCredential(w, err)
			return
		}

		user, err := g.auth.GetUserByID(r.Context(), claims.UserID)
		if err != nil {
			g.logger.Error("guard account lookup", "error", err)
			respondErrorJSON(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if user == nil {
			guardRejections.WithLabelValues("unknown_account").Inc()
			respondErrorJSON(w, http.StatusUnauthorized, services.ErrInvalidCredential.Error())
			return
		}

		// When the account carries its own expiration date, that value
		// governs; the credential's exp claim alone is not enough.
		if err := g.auth.AccountGate(user); err != nil {
			g.rejectAccount(w, err)
			return
		}

		// Best-effort activity stamp; must never fail the request.
		userID := user.ID
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := g.auth.TouchLastActive(ctx, userID); err != nil {
				g.logger.Warn("last-active update failed", "user_id", userID, "error", err)
			}
		}()

		ctx := context.WithValue(r.Context(), userClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (g *Guard) rejectCredential(w http.ResponseWriter, err error) {
	if errors.Is(err, services.ErrCredentialExpired) {
		// Terminal for this credential, but a new magic link works.
		guardRejections.WithLabelValues("expired").Inc()
		respondErrorJSON(w, http.StatusUnauthorized, services.ErrCredentialExpired.Error())
		return
	}
	// Malformed or unsigned: tampering or corruption, always terminal.
	guardRejections.WithLabelValues("invalid").Inc()
	respondErrorJSON(w, http.StatusUnauthorized, services.ErrInvalidCredential.Error())
}

func (g *Guard) rejectAccount(w http.ResponseWriter, err error) {
	if errors.Is(err, services.ErrAccountDeactivated) {
		guardRejections.WithLabelValues("deactivated").Inc()
		respondErrorJSON(w, http.StatusForbidden, "account has been deactivated; contact your administrator")
		return
	}
	guardRejections.WithLabelValues("account_expired").Inc()
	respondErrorJSON(w, http.StatusForbidden, services.ErrAccountExpired.Error())
}

func GetUserClaims(r *http.Request) *utils.Claims {
	claims, ok := r.Context().Value(userClaimsKey).(*utils.Claims)
	if !ok {
		return nil
	}
	return claims
}

func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
