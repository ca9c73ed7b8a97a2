package domain

import "time"

// MaxPasswordBytes is the longest password bcrypt will hash.
const MaxPasswordBytes = 72

// User represents an account holder of the voice service.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	APIKey       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AuthToken is an opaque bearer credential bound to a user until ExpiresAt.
type AuthToken struct {
	ID        int64
	UserID    int64
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}
