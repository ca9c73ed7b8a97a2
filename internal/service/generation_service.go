package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"voice-808/internal/domain"
	"voice-808/internal/repository"
)

// DefaultHistoryLimit is the page size used when callers pass none.
const DefaultHistoryLimit = 50

// GenerationService tracks the lifecycle of synthesis requests.
type GenerationService interface {
	Create(ctx context.Context, userID int64, kind domain.GenerationType, text string, voice domain.VoiceConfig) (int64, error)
	Update(ctx context.Context, id int64, update domain.GenerationUpdate) error
	MarkProcessing(ctx context.Context, id int64) error
	MarkCompleted(ctx context.Context, id int64, audioURL, audioFilename string, duration float64) error
	MarkFailed(ctx context.Context, id int64, message string) error
	Get(ctx context.Context, id int64) (*domain.VoiceGeneration, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.VoiceGeneration, error)
}

type generationService struct {
	generations repository.GenerationRepository
	now         func() time.Time
}

func NewGenerationService(generations repository.GenerationRepository, now func() time.Time) GenerationService {
	if now == nil {
		now = time.Now
	}
	return &generationService{
		generations: generations,
		now:         now,
	}
}

func (s *generationService) Create(ctx context.Context, userID int64, kind domain.GenerationType, text string, voice domain.VoiceConfig) (int64, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("unknown generation type %q", kind)
	}
	if strings.TrimSpace(text) == "" {
		return 0, fmt.Errorf("text is required")
	}

	cfg, err := voice.Marshal()
	if err != nil {
		return 0, err
	}

	gen := &domain.VoiceGeneration{
		UserID:      userID,
		Type:        kind,
		Text:        text,
		VoiceConfig: cfg,
		Characters:  domain.CountCharacters(text),
		Status:      domain.GenerationStatusPending,
		CreatedAt:   s.now().UTC(),
	}
	return s.generations.Create(ctx, gen)
}

// Update applies a partial update. Status changes are checked against the
// lifecycle before touching the store; the store re-checks atomically.
func (s *generationService) Update(ctx context.Context, id int64, update domain.GenerationUpdate) error {
	if update.Status != nil && len(domain.AllowedPredecessors(*update.Status)) == 0 {
		return fmt.Errorf("%w: cannot enter %s", domain.ErrInvalidTransition, *update.Status)
	}
	return s.generations.Update(ctx, id, update)
}

func (s *generationService) MarkProcessing(ctx context.Context, id int64) error {
	status := domain.GenerationStatusProcessing
	return s.Update(ctx, id, domain.GenerationUpdate{Status: &status})
}

func (s *generationService) MarkCompleted(ctx context.Context, id int64, audioURL, audioFilename string, duration float64) error {
	status := domain.GenerationStatusCompleted
	completedAt := s.now().UTC()
	update := domain.GenerationUpdate{
		AudioURL:    &audioURL,
		Duration:    &duration,
		Status:      &status,
		CompletedAt: &completedAt,
	}
	if audioFilename != "" {
		update.AudioFilename = &audioFilename
	}
	return s.Update(ctx, id, update)
}

func (s *generationService) MarkFailed(ctx context.Context, id int64, message string) error {
	status := domain.GenerationStatusFailed
	completedAt := s.now().UTC()
	if message == "" {
		message = "Unknown error"
	}
	return s.Update(ctx, id, domain.GenerationUpdate{
		Status:       &status,
		ErrorMessage: &message,
		CompletedAt:  &completedAt,
	})
}

func (s *generationService) Get(ctx context.Context, id int64) (*domain.VoiceGeneration, error) {
	return s.generations.Get(ctx, id)
}

func (s *generationService) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.VoiceGeneration, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.generations.ListByUser(ctx, userID, limit, offset)
}
