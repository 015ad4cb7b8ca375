package utils

import (
	"regexp"
	"strings"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	e164Regex  = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
)

func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// IsValidPhoneNumber checks E.164 format: a plus sign followed by 2-15 digits.
func IsValidPhoneNumber(phone string) bool {
	return e164Regex.MatchString(phone)
}

// NormalizeEmail lowercases and trims an address so that lookups and
// uniqueness constraints see one canonical form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
