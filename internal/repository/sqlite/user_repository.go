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

const userColumns = `id, email, name, password_hash, api_key, created_at, updated_at`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (int64, error) {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	// Rows written before emails were normalized keep their original case,
	// so uniqueness is checked case-insensitively.
	res, err := r.db.ExecContext(ctx, `
INSERT INTO users (email, name, password_hash, api_key, created_at, updated_at)
SELECT ?, ?, ?, ?, ?, ?
WHERE NOT EXISTS (SELECT 1 FROM users WHERE email = ? COLLATE NOCASE)`,
		user.Email,
		user.Name,
		user.PasswordHash,
		nullString(user.APIKey),
		user.CreatedAt,
		user.UpdatedAt,
		user.Email,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("insert user: %w", domain.ErrUserAlreadyExists)
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return 0, fmt.Errorf("insert user rows affected: %w", err)
	} else if n == 0 {
		return 0, fmt.Errorf("insert user: %w", domain.ErrUserAlreadyExists)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("user last insert id: %w", err)
	}
	user.ID = id
	return id, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+userColumns+` FROM users
WHERE email = ? COLLATE NOCASE
ORDER BY email = ? DESC, id
LIMIT 1`, email, email)
	return scanUser(row)
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *UserRepository) GetByAPIKey(ctx context.Context, apiKey string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE api_key = ?`, apiKey)
	return scanUser(row)
}

func (r *UserRepository) UpdateAPIKey(ctx context.Context, id int64, apiKey string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE users
SET api_key=?, updated_at=?
WHERE id=?`,
		apiKey,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("update api key: %w", err)
	}
	return requireAffected(res, domain.ErrUserNotFound)
}

// Delete removes the user; tokens, generations and usage rows go with it.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireAffected(res, domain.ErrUserNotFound)
}

func scanUser(row interface {
	Scan(dest ...any) error
}) (*domain.User, error) {
	var (
		user   domain.User
		apiKey sql.NullString
	)
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&apiKey,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	user.APIKey = apiKey.String
	return &user, nil
}

func requireAffected(res sql.Result, notFound error) error {
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if aff == 0 {
		return notFound
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
