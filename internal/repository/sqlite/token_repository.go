package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"voice-808/internal/domain"
	"voice-808/internal/repository"
)

type AuthTokenRepository struct {
	db *sql.DB
}

func NewAuthTokenRepository(db *sql.DB) repository.AuthTokenRepository {
	return &AuthTokenRepository{db: db}
}

func (r *AuthTokenRepository) Create(ctx context.Context, token *domain.AuthToken) (int64, error) {
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx, `
INSERT INTO auth_tokens (user_id, token, expires_at, created_at)
VALUES (?, ?, ?, ?)`,
		token.UserID,
		token.Token,
		token.ExpiresAt.UTC(),
		token.CreatedAt.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert auth token: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("auth token last insert id: %w", err)
	}
	token.ID = id
	return id, nil
}

// GetUser resolves the owner of a token that is still valid at now.
// Expired and unknown tokens are indistinguishable.
func (r *AuthTokenRepository) GetUser(ctx context.Context, token string, now time.Time) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT u.id, u.email, u.name, u.password_hash, u.api_key, u.created_at, u.updated_at
FROM users u
JOIN auth_tokens t ON u.id = t.user_id
WHERE t.token = ? AND t.expires_at > ?`,
		token,
		now.UTC(),
	)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, err
	}
	return user, nil
}

func (r *AuthTokenRepository) Delete(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM auth_tokens WHERE token = ?`, token); err != nil {
		return fmt.Errorf("delete auth token: %w", err)
	}
	return nil
}
