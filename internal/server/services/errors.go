package services

import "errors"

// Sentinel errors returned by the auth and session services. Handlers map
// each to a distinct HTTP status and user-facing message: an expired link,
// a reused link, and a link that never existed all need different copy, as
// do a deactivated account (contact an administrator) and an expired one
// (request a new link).
var (
	ErrInvalidEmailFormat = errors.New("invalid email format")
	ErrInvalidPhoneFormat = errors.New("invalid phone number format")
	ErrInvalidAPIKey      = errors.New("invalid api key")
	ErrEmailNotApproved   = errors.New("email not approved for access")

	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token has expired")
	ErrTokenAlreadyUsed = errors.New("token has already been used")

	ErrAccountDeactivated = errors.New("account has been deactivated")
	ErrAccountExpired     = errors.New("account access has expired")

	ErrInvalidCredential = errors.New("invalid session credential")
	ErrCredentialExpired = errors.New("session credential has expired")

	ErrNotificationDispatch = errors.New("failed to dispatch notification")
)
