package repository

import (
	"context"
	"time"

	"voice-808/internal/domain"
)

// UserRepository defines persistence operations for User entities.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (int64, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByAPIKey(ctx context.Context, apiKey string) (*domain.User, error)
	UpdateAPIKey(ctx context.Context, id int64, apiKey string) error
	Delete(ctx context.Context, id int64) error
}

// AuthTokenRepository stores session tokens. Tokens are looked up by the
// value the caller hands in; hashing happens above this layer.
type AuthTokenRepository interface {
	Create(ctx context.Context, token *domain.AuthToken) (int64, error)
	GetUser(ctx context.Context, token string, now time.Time) (*domain.User, error)
	Delete(ctx context.Context, token string) error
}
