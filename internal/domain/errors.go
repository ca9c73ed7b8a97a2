package domain

import "errors"

// Sentinel errors shared by services and handlers.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrPasswordTooLong    = errors.New("password exceeds 72 bytes")

	ErrGenerationNotFound = errors.New("voice generation not found")
	ErrInvalidTransition  = errors.New("invalid generation status transition")
	ErrSynthesisFailed    = errors.New("failed to generate audio")
	ErrQuotaExceeded      = errors.New("monthly usage limit reached")
)
