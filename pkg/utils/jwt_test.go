package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

var testIssuedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestGenerateAndValidateJWT(t *testing.T) {
	secret := []byte("test-secret")
	userID := uuid.New()

	token, err := GenerateJWT(userID, "demo@example.com", "device-1", secret, testIssuedAt, time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT failed: %v", err)
	}

	claims, err := ValidateJWT(token, secret, testIssuedAt.Add(time.Minute))
	if err != nil {
		t.Fatalf("ValidateJWT failed: %v", err)
	}
	if claims.UserID != userID {
		t.Errorf("UserID mismatch: %s vs %s", claims.UserID, userID)
	}
	if claims.Email != "demo@example.com" {
		t.Errorf("Email mismatch: %s", claims.Email)
	}
	if claims.DeviceID != "device-1" {
		t.Errorf("DeviceID mismatch: %s", claims.DeviceID)
	}
	if claims.Subject != userID.String() {
		t.Errorf("Subject should carry the user id, got %s", claims.Subject)
	}
}

func TestGenerateJWT_ClaimsFromSuppliedTime(t *testing.T) {
	secret := []byte("test-secret")

	token, err := GenerateJWT(uuid.New(), "demo@example.com", "", secret, testIssuedAt, time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT failed: %v", err)
	}

	claims, err := ValidateJWT(token, secret, testIssuedAt)
	if err != nil {
		t.Fatalf("ValidateJWT failed: %v", err)
	}
	if !claims.IssuedAt.Time.Equal(testIssuedAt) {
		t.Errorf("iat should come from the supplied time: got %v, want %v", claims.IssuedAt.Time, testIssuedAt)
	}
	if !claims.ExpiresAt.Time.Equal(testIssuedAt.Add(time.Hour)) {
		t.Errorf("exp should be supplied time plus duration: got %v", claims.ExpiresAt.Time)
	}
}

func TestValidateJWT_Expired(t *testing.T) {
	secret := []byte("test-secret")

	token, err := GenerateJWT(uuid.New(), "demo@example.com", "", secret, testIssuedAt, time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT failed: %v", err)
	}

	_, err = ValidateJWT(token, secret, testIssuedAt.Add(2*time.Hour))
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestValidateJWT_WrongSecret(t *testing.T) {
	token, err := GenerateJWT(uuid.New(), "demo@example.com", "", []byte("secret-a"), testIssuedAt, time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT failed: %v", err)
	}

	_, err = ValidateJWT(token, []byte("secret-b"), testIssuedAt)
	if !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed for wrong secret, got %v", err)
	}
}

func TestValidateJWT_Garbage(t *testing.T) {
	_, err := ValidateJWT("not.a.token", []byte("secret"), testIssuedAt)
	if !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}

func TestGenerateTokenID_UniqueAndURLSafe(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := GenerateTokenID()
		if err != nil {
			t.Fatalf("GenerateTokenID failed: %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate token id generated: %s", id)
		}
		seen[id] = true

		for _, c := range id {
			if c == '+' || c == '/' || c == '=' {
				t.Fatalf("token id is not URL-safe: %s", id)
			}
		}
	}
}
