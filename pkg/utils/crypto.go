package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// GenerateTokenID returns a 32-byte cryptographically random identifier in
// URL-safe base64. Token ids must be unguessable; they are never derived
// from timestamps or user ids.
func GenerateTokenID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
