package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"voice-808/internal/domain"
	"voice-808/internal/repository"
)

const generationColumns = `id, user_id, type, text, voice_config, audio_url, audio_filename, duration, characters, status, error_message, created_at, completed_at`

type GenerationRepository struct {
	db *sql.DB
}

func NewGenerationRepository(db *sql.DB) repository.GenerationRepository {
	return &GenerationRepository{db: db}
}

func (r *GenerationRepository) Create(ctx context.Context, gen *domain.VoiceGeneration) (int64, error) {
	if gen.CreatedAt.IsZero() {
		gen.CreatedAt = time.Now().UTC()
	}
	if gen.Status == "" {
		gen.Status = domain.GenerationStatusPending
	}

	res, err := r.db.ExecContext(ctx, `
INSERT INTO voice_generations (user_id, type, text, voice_config, characters, status, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		gen.UserID,
		string(gen.Type),
		gen.Text,
		gen.VoiceConfig,
		gen.Characters,
		string(gen.Status),
		gen.CreatedAt.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert voice generation: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("voice generation last insert id: %w", err)
	}
	gen.ID = id
	return id, nil
}

// Update applies the non-nil fields of update. A status change only lands
// when the stored status is an allowed predecessor of the new one, so the
// check and the write happen in the same statement.
func (r *GenerationRepository) Update(ctx context.Context, id int64, update domain.GenerationUpdate) error {
	if update.Empty() {
		return nil
	}

	var (
		sets []string
		args []any
	)
	if update.AudioURL != nil {
		sets = append(sets, "audio_url=?")
		args = append(args, *update.AudioURL)
	}
	if update.AudioFilename != nil {
		sets = append(sets, "audio_filename=?")
		args = append(args, *update.AudioFilename)
	}
	if update.Duration != nil {
		sets = append(sets, "duration=?")
		args = append(args, *update.Duration)
	}
	if update.Status != nil {
		sets = append(sets, "status=?")
		args = append(args, string(*update.Status))
	}
	if update.ErrorMessage != nil {
		sets = append(sets, "error_message=?")
		args = append(args, *update.ErrorMessage)
	}
	if update.CompletedAt != nil {
		sets = append(sets, "completed_at=?")
		args = append(args, nullTime(update.CompletedAt))
	}

	query := "UPDATE voice_generations SET " + strings.Join(sets, ", ") + " WHERE id=?"
	args = append(args, id)

	if update.Status != nil {
		prev := domain.AllowedPredecessors(*update.Status)
		if len(prev) == 0 {
			return fmt.Errorf("%w: cannot enter %s", domain.ErrInvalidTransition, *update.Status)
		}
		placeholders := make([]string, len(prev))
		for i, status := range prev {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		query += " AND status IN (" + strings.Join(placeholders, ",") + ")"
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update voice generation: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("voice generation rows affected: %w", err)
	}
	if aff > 0 {
		return nil
	}

	current, err := r.currentStatus(ctx, id)
	if err != nil {
		return err
	}
	if update.Status != nil {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, current, *update.Status)
	}
	return nil
}

func (r *GenerationRepository) currentStatus(ctx context.Context, id int64) (domain.GenerationStatus, error) {
	var status sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT status FROM voice_generations WHERE id=?`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrGenerationNotFound
		}
		return "", fmt.Errorf("query voice generation status: %w", err)
	}
	return domain.GenerationStatus(status.String), nil
}

func (r *GenerationRepository) Get(ctx context.Context, id int64) (*domain.VoiceGeneration, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+generationColumns+` FROM voice_generations WHERE id=?`, id)
	return scanGeneration(row)
}

func (r *GenerationRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.VoiceGeneration, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+generationColumns+`
FROM voice_generations
WHERE user_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?`,
		userID,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query voice generations: %w", err)
	}
	defer rows.Close()

	gens := []domain.VoiceGeneration{}
	for rows.Next() {
		gen, err := scanGeneration(rows)
		if err != nil {
			return nil, err
		}
		gens = append(gens, *gen)
	}

	return gens, rows.Err()
}

// CompletedTotals sums only completed generations; failed and in-flight
// records are not billable history.
func (r *GenerationRepository) CompletedTotals(ctx context.Context, userID int64) (int64, int64, float64, error) {
	var (
		count      int64
		characters int64
		duration   float64
	)
	err := r.db.QueryRowContext(ctx, `
SELECT
	COUNT(*),
	COALESCE(SUM(characters), 0),
	COALESCE(SUM(COALESCE(duration, 0)), 0.0)
FROM voice_generations
WHERE user_id = ? AND status = ?`,
		userID,
		string(domain.GenerationStatusCompleted),
	).Scan(&count, &characters, &duration)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("query generation totals: %w", err)
	}
	return count, characters, duration, nil
}

func scanGeneration(scanner interface {
	Scan(dest ...any) error
}) (*domain.VoiceGeneration, error) {
	var (
		gen           domain.VoiceGeneration
		kind          string
		status        sql.NullString
		audioURL      sql.NullString
		audioFilename sql.NullString
		duration      sql.NullFloat64
		errorMessage  sql.NullString
		completedAt   sql.NullTime
	)

	if err := scanner.Scan(
		&gen.ID,
		&gen.UserID,
		&kind,
		&gen.Text,
		&gen.VoiceConfig,
		&audioURL,
		&audioFilename,
		&duration,
		&gen.Characters,
		&status,
		&errorMessage,
		&gen.CreatedAt,
		&completedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrGenerationNotFound
		}
		return nil, fmt.Errorf("scan voice generation: %w", err)
	}

	gen.Type = domain.GenerationType(kind)
	gen.Status = domain.GenerationStatus(status.String)
	if audioURL.Valid {
		gen.AudioURL = &audioURL.String
	}
	if audioFilename.Valid {
		gen.AudioFilename = &audioFilename.String
	}
	if duration.Valid {
		gen.Duration = &duration.Float64
	}
	if errorMessage.Valid {
		gen.ErrorMessage = &errorMessage.String
	}
	if completedAt.Valid {
		t := completedAt.Time
		gen.CompletedAt = &t
	}
	return &gen, nil
}
