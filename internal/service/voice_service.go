package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"voice-808/internal/domain"
	"voice-808/internal/metrics"
	"voice-808/internal/storage"
	"voice-808/internal/tts"
)

// Synthesizer turns text into audio hosted by the backend.
type Synthesizer interface {
	Synthesize(ctx context.Context, req tts.Request) (*tts.Result, error)
}

// AudioArchive keeps a durable copy of generated audio.
type AudioArchive interface {
	Archive(ctx context.Context, userID int64, sourceURL string) (string, error)
	PlaybackURL(ctx context.Context, location string) (string, error)
	List(ctx context.Context, userID int64) ([]storage.ArchivedFile, error)
	Purge(ctx context.Context, userID int64) error
}

// GenerateRequest is a validated synthesis request of one user.
type GenerateRequest struct {
	Type     domain.GenerationType
	Text     string
	Voice    string
	Speakers map[string]string
}

// GenerateResult describes a completed generation.
type GenerateResult struct {
	ID             int64
	AudioURL       string
	Duration       float64
	CharactersUsed int
	Status         domain.GenerationStatus
}

// HistoryItem is a generation prepared for display.
type HistoryItem struct {
	Generation domain.VoiceGeneration
	AudioURL   string
	Voice      string
	Speakers   []string
}

// HistoryPage is one page of a user's generations plus their totals.
type HistoryPage struct {
	Items   []HistoryItem
	Stats   *domain.UserStats
	Limit   int
	Offset  int
	HasMore bool
}

// VoiceService runs a synthesis request end to end and serves its history.
type VoiceService interface {
	Generate(ctx context.Context, userID int64, req GenerateRequest) (*GenerateResult, error)
	History(ctx context.Context, userID int64, kind domain.GenerationType, limit, offset int) (*HistoryPage, error)
	Recent(ctx context.Context, userID int64, n int) ([]domain.VoiceGeneration, error)
	ArchivedFiles(ctx context.Context, userID int64) ([]storage.ArchivedFile, error)
	PurgeArchive(ctx context.Context, userID int64) error
}

// VoiceServiceConfig wires the collaborators of the voice flow. Archive is
// optional; EnforceQuota rejects requests once a monthly limit is reached.
type VoiceServiceConfig struct {
	Generations  GenerationService
	Usage        UsageService
	Synthesizer  Synthesizer
	Archive      AudioArchive
	EnforceQuota bool
	Logger       logrus.FieldLogger
}

type voiceService struct {
	generations GenerationService
	usage       UsageService
	synth       Synthesizer
	archive     AudioArchive
	enforce     bool
	log         logrus.FieldLogger
}

func NewVoiceService(cfg VoiceServiceConfig) VoiceService {
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &voiceService{
		generations: cfg.Generations,
		usage:       cfg.Usage,
		synth:       cfg.Synthesizer,
		archive:     cfg.Archive,
		enforce:     cfg.EnforceQuota,
		log:         log,
	}
}

func (s *voiceService) Generate(ctx context.Context, userID int64, req GenerateRequest) (*GenerateResult, error) {
	voice, err := requestVoiceConfig(req)
	if err != nil {
		return nil, err
	}

	if s.enforce {
		quota, err := s.usage.Quota(ctx, userID)
		if err != nil {
			return nil, err
		}
		if quota.Exceeded() {
			return nil, domain.ErrQuotaExceeded
		}
	}

	id, err := s.generations.Create(ctx, userID, req.Type, req.Text, voice)
	if err != nil {
		return nil, fmt.Errorf("create generation: %w", err)
	}
	log := s.log.WithFields(logrus.Fields{"generation_id": id, "user_id": userID, "type": req.Type})

	if err := s.generations.MarkProcessing(ctx, id); err != nil {
		return nil, fmt.Errorf("mark generation processing: %w", err)
	}
	// Once processing, the record must reach completed or failed even if the
	// caller goes away.
	done := context.WithoutCancel(ctx)

	characters := domain.CountCharacters(req.Text)
	started := time.Now()
	result, err := s.synth.Synthesize(ctx, tts.Request{
		UserID:   userID,
		Type:     req.Type,
		Text:     req.Text,
		Voice:    req.Voice,
		Speakers: req.Speakers,
	})
	metrics.ObserveSynthesis(time.Since(started))
	if err != nil {
		log.WithError(err).Warn("synthesis failed")
		s.fail(done, log, id, req.Type, characters, err)
		return nil, domain.ErrSynthesisFailed
	}

	duration := result.Duration
	if duration <= 0 {
		duration = tts.EstimateDuration(characters)
	}
	filename := audioFilename(result.AudioURL)

	stored, playback := result.AudioURL, result.AudioURL
	if s.archive != nil {
		location, err := s.archive.Archive(done, userID, result.AudioURL)
		if err != nil {
			log.WithError(err).Warn("archive audio, keeping backend url")
		} else {
			stored = location
			if signed, err := s.archive.PlaybackURL(done, location); err != nil {
				log.WithError(err).Warn("presign archived audio")
			} else {
				playback = signed
			}
		}
	}

	if err := s.generations.MarkCompleted(done, id, stored, filename, duration); err != nil {
		return nil, fmt.Errorf("mark generation completed: %w", err)
	}
	metrics.RecordGeneration(string(req.Type), string(domain.GenerationStatusCompleted), characters)

	if err := s.usage.Record(done, userID, int64(characters), 1, duration); err != nil {
		log.WithError(err).Error("record usage")
	}

	log.WithFields(logrus.Fields{"characters": characters, "duration": duration}).Info("generation completed")

	return &GenerateResult{
		ID:             id,
		AudioURL:       playback,
		Duration:       duration,
		CharactersUsed: characters,
		Status:         domain.GenerationStatusCompleted,
	}, nil
}

func (s *voiceService) fail(ctx context.Context, log logrus.FieldLogger, id int64, kind domain.GenerationType, characters int, cause error) {
	if err := s.generations.MarkFailed(ctx, id, cause.Error()); err != nil {
		log.WithError(err).Error("mark generation failed")
	}
	metrics.RecordGeneration(string(kind), string(domain.GenerationStatusFailed), characters)
}

// History lists a page newest first. HasMore is judged on the unfiltered
// page, so a type filter can yield short pages that still have more.
func (s *voiceService) History(ctx context.Context, userID int64, kind domain.GenerationType, limit, offset int) (*HistoryPage, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	gens, err := s.generations.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	stats, err := s.usage.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}

	page := &HistoryPage{
		Items:   make([]HistoryItem, 0, len(gens)),
		Stats:   stats,
		Limit:   limit,
		Offset:  offset,
		HasMore: len(gens) == limit,
	}
	for _, gen := range gens {
		if kind != "" && gen.Type != kind {
			continue
		}
		page.Items = append(page.Items, s.historyItem(ctx, gen))
	}
	return page, nil
}

// Recent returns the n newest generations of any status, without totals.
func (s *voiceService) Recent(ctx context.Context, userID int64, n int) ([]domain.VoiceGeneration, error) {
	if n <= 0 {
		return []domain.VoiceGeneration{}, nil
	}
	return s.generations.ListByUser(ctx, userID, n, 0)
}

func (s *voiceService) historyItem(ctx context.Context, gen domain.VoiceGeneration) HistoryItem {
	item := HistoryItem{Generation: gen}

	if cfg, err := gen.Voice(); err != nil {
		s.log.WithError(err).WithField("generation_id", gen.ID).Warn("unreadable voice config")
	} else {
		item.Voice = cfg.Voice
		if len(cfg.Speakers) > 0 {
			item.Speakers = make([]string, 0, len(cfg.Speakers))
			for name := range cfg.Speakers {
				item.Speakers = append(item.Speakers, name)
			}
			sort.Strings(item.Speakers)
		}
	}

	if gen.AudioURL != nil {
		item.AudioURL = *gen.AudioURL
		if s.archive != nil && storage.IsLocation(item.AudioURL) {
			signed, err := s.archive.PlaybackURL(ctx, item.AudioURL)
			if err != nil {
				s.log.WithError(err).WithField("generation_id", gen.ID).Warn("presign archived audio")
			} else {
				item.AudioURL = signed
			}
		}
	}
	return item
}

func (s *voiceService) ArchivedFiles(ctx context.Context, userID int64) ([]storage.ArchivedFile, error) {
	if s.archive == nil {
		return []storage.ArchivedFile{}, nil
	}
	return s.archive.List(ctx, userID)
}

func (s *voiceService) PurgeArchive(ctx context.Context, userID int64) error {
	if s.archive == nil {
		return nil
	}
	return s.archive.Purge(ctx, userID)
}

// ValidationError is returned for requests that cannot be synthesized as given.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// IsValidationError reports whether err was caused by bad caller input.
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func requestVoiceConfig(req GenerateRequest) (domain.VoiceConfig, error) {
	if strings.TrimSpace(req.Text) == "" {
		return domain.VoiceConfig{}, &ValidationError{Message: "Text is required"}
	}
	switch req.Type {
	case domain.GenerationTypeMultiSpeaker:
		if len(req.Speakers) == 0 {
			return domain.VoiceConfig{}, &ValidationError{Message: "Speakers configuration is required for multi-speaker TTS"}
		}
		return domain.VoiceConfig{Speakers: req.Speakers}, nil
	case domain.GenerationTypeTTS:
		if strings.TrimSpace(req.Voice) == "" {
			return domain.VoiceConfig{}, &ValidationError{Message: "Voice is required for single-speaker TTS"}
		}
		return domain.VoiceConfig{Voice: req.Voice}, nil
	default:
		return domain.VoiceConfig{}, &ValidationError{Message: fmt.Sprintf("Unknown generation type %q", req.Type)}
	}
}

// audioFilename is the last path segment of the backend URL.
func audioFilename(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		raw = u.Path
	}
	name := path.Base(raw)
	if name == "." || name == "/" {
		return ""
	}
	return name
}
