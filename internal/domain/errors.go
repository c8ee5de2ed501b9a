package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
	// ErrInvalidOrExpired covers every failed passcode check so callers cannot
	// tell a missing code from a wrong or stale one.
	ErrInvalidOrExpired = errors.New("invalid or expired otp")
	ErrDelivery         = errors.New("delivery failed")
	// ErrTokenGone marks a device token the push provider permanently rejects.
	ErrTokenGone = errors.New("device token no longer valid")
)

// Passcode store outcomes. These never cross the service boundary unwrapped.
var (
	ErrOTPNotFound = errors.New("otp not found or already used")
	ErrOTPExpired  = errors.New("otp expired")
	ErrOTPMismatch = errors.New("otp mismatch")
)
