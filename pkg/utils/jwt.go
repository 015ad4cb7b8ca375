package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenExpired   = errors.New("token is expired")
	ErrTokenMalformed = errors.New("token is malformed or has an invalid signature")
)

// Claims carried by a session credential. DeviceID is advisory (soft
// binding): it is recorded for audit but not cryptographically enforced,
// so a user may hold sessions on multiple devices.
type Claims struct {
	UserID   uuid.UUID `json:"user_id"`
	Email    string    `json:"email"`
	DeviceID string    `json:"device_id,omitempty"`
	jwt.RegisteredClaims
}

// GenerateJWT signs a session credential issued at now and valid for the
// given duration. The caller supplies now so issuance and the expiry it
// reports come from one clock.
func GenerateJWT(userID uuid.UUID, email, deviceID string, secret []byte, now time.Time, expiration time.Duration) (string, error) {
	claims := Claims{
		UserID:   userID,
		Email:    email,
		DeviceID: deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateJWT verifies signature and expiry against the supplied now.
// Expired credentials are reported distinctly from malformed or tampered
// ones so callers can show "sign in again" instead of a generic error.
func ValidateJWT(tokenString string, secret []byte, now time.Time) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenMalformed
		}
		return secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}
