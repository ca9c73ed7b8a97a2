package service

import (
	"context"
	"math"
	"time"

	"voice-808/internal/domain"
	"voice-808/internal/repository"
)

// UsageLimits are the monthly allowances reported to users.
type UsageLimits struct {
	MonthlyCharacters int64
	MonthlyAPICalls   int64
}

// DefaultUsageLimits mirrors the published free plan.
var DefaultUsageLimits = UsageLimits{
	MonthlyCharacters: 100000,
	MonthlyAPICalls:   2000,
}

// UsageService meters characters, calls and audio seconds per month.
type UsageService interface {
	Record(ctx context.Context, userID, characters, apiCalls int64, audioSeconds float64) error
	RecordCall(ctx context.Context, userID, characters int64) error
	Get(ctx context.Context, userID int64, month string) (*domain.UserUsage, error)
	Stats(ctx context.Context, userID int64) (*domain.UserStats, error)
	Quota(ctx context.Context, userID int64) (*domain.Quota, error)
}

type usageService struct {
	usage       repository.UsageRepository
	generations repository.GenerationRepository
	limits      UsageLimits
	now         func() time.Time
}

func NewUsageService(usage repository.UsageRepository, generations repository.GenerationRepository, limits UsageLimits, now func() time.Time) UsageService {
	if now == nil {
		now = time.Now
	}
	return &usageService{
		usage:       usage,
		generations: generations,
		limits:      limits,
		now:         now,
	}
}

// Record adds the deltas to the current month bucket in a single upsert.
func (s *usageService) Record(ctx context.Context, userID, characters, apiCalls int64, audioSeconds float64) error {
	return s.usage.Add(ctx, userID, domain.MonthKey(s.now()), characters, apiCalls, audioSeconds)
}

func (s *usageService) RecordCall(ctx context.Context, userID, characters int64) error {
	return s.Record(ctx, userID, characters, 1, 0)
}

// Get returns nil when the month has no usage; that means zero, not an error.
func (s *usageService) Get(ctx context.Context, userID int64, month string) (*domain.UserUsage, error) {
	if month == "" {
		month = domain.MonthKey(s.now())
	}
	return s.usage.Get(ctx, userID, month)
}

func (s *usageService) Stats(ctx context.Context, userID int64) (*domain.UserStats, error) {
	count, characters, duration, err := s.generations.CompletedTotals(ctx, userID)
	if err != nil {
		return nil, err
	}
	month, err := s.Get(ctx, userID, "")
	if err != nil {
		return nil, err
	}
	return &domain.UserStats{
		TotalGenerations: count,
		TotalCharacters:  characters,
		TotalDuration:    duration,
		ThisMonthUsage:   month,
	}, nil
}

func (s *usageService) Quota(ctx context.Context, userID int64) (*domain.Quota, error) {
	month := domain.MonthKey(s.now())
	usage, err := s.usage.Get(ctx, userID, month)
	if err != nil {
		return nil, err
	}

	q := &domain.Quota{
		Month:           month,
		CharactersLimit: s.limits.MonthlyCharacters,
		APICallsLimit:   s.limits.MonthlyAPICalls,
	}
	if usage != nil {
		q.CharactersUsed = usage.CharactersUsed
		q.APICalls = usage.APICalls
		q.AudioGenerated = usage.AudioGeneratedSeconds
	}
	q.CharactersPercentage = percentage(q.CharactersUsed, q.CharactersLimit)
	q.APICallsPercentage = percentage(q.APICalls, q.APICallsLimit)
	return q, nil
}

func percentage(used, limit int64) int {
	if limit <= 0 {
		return 0
	}
	return int(math.Round(float64(used) / float64(limit) * 100))
}
