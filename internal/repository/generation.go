package repository

import (
	"context"

	"voice-808/internal/domain"
)

// GenerationRepository exposes persistence operations for voice generations.
type GenerationRepository interface {
	Create(ctx context.Context, gen *domain.VoiceGeneration) (int64, error)
	Update(ctx context.Context, id int64, update domain.GenerationUpdate) error
	Get(ctx context.Context, id int64) (*domain.VoiceGeneration, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.VoiceGeneration, error)
	CompletedTotals(ctx context.Context, userID int64) (count, characters int64, duration float64, err error)
}

// UsageRepository keeps the monthly usage counters.
type UsageRepository interface {
	Add(ctx context.Context, userID int64, month string, characters, apiCalls int64, audioSeconds float64) error
	Get(ctx context.Context, userID int64, month string) (*domain.UserUsage, error)
}
