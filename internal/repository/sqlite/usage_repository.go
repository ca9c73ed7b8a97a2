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

const upsertUsage = `
INSERT INTO user_usage (user_id, month, characters_used, api_calls, audio_generated_seconds, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id, month) DO UPDATE SET
	characters_used = characters_used + excluded.characters_used,
	api_calls = api_calls + excluded.api_calls,
	audio_generated_seconds = audio_generated_seconds + excluded.audio_generated_seconds,
	updated_at = excluded.updated_at`

type UsageRepository struct {
	db *sql.DB
}

func NewUsageRepository(db *sql.DB) repository.UsageRepository {
	return &UsageRepository{db: db}
}

// Add creates the (user, month) row or adds the deltas to it in one statement.
func (r *UsageRepository) Add(ctx context.Context, userID int64, month string, characters, apiCalls int64, audioSeconds float64) error {
	now := time.Now().UTC()
	if _, err := r.db.ExecContext(ctx, upsertUsage,
		userID,
		month,
		characters,
		apiCalls,
		audioSeconds,
		now,
		now,
	); err != nil {
		return fmt.Errorf("upsert user usage: %w", err)
	}
	return nil
}

// Get returns nil without error when the month has no usage yet.
func (r *UsageRepository) Get(ctx context.Context, userID int64, month string) (*domain.UserUsage, error) {
	var (
		usage     domain.UserUsage
		createdAt sql.NullTime
		updatedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
SELECT id, user_id, month, characters_used, api_calls, audio_generated_seconds, created_at, updated_at
FROM user_usage
WHERE user_id = ? AND month = ?`,
		userID,
		month,
	).Scan(
		&usage.ID,
		&usage.UserID,
		&usage.Month,
		&usage.CharactersUsed,
		&usage.APICalls,
		&usage.AudioGeneratedSeconds,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query user usage: %w", err)
	}
	usage.CreatedAt = createdAt.Time
	usage.UpdatedAt = updatedAt.Time
	return &usage, nil
}
