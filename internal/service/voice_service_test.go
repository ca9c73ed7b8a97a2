package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-808/internal/domain"
	"voice-808/internal/storage"
	"voice-808/internal/tts"
)

type synthFunc func(ctx context.Context, req tts.Request) (*tts.Result, error)

func (f synthFunc) Synthesize(ctx context.Context, req tts.Request) (*tts.Result, error) {
	return f(ctx, req)
}

type fakeArchive struct {
	archiveFn  func(ctx context.Context, userID int64, sourceURL string) (string, error)
	playbackFn func(ctx context.Context, location string) (string, error)
	listFn     func(ctx context.Context, userID int64) ([]storage.ArchivedFile, error)
	purgeFn    func(ctx context.Context, userID int64) error
}

func (f *fakeArchive) Archive(ctx context.Context, userID int64, sourceURL string) (string, error) {
	return f.archiveFn(ctx, userID, sourceURL)
}

func (f *fakeArchive) PlaybackURL(ctx context.Context, location string) (string, error) {
	return f.playbackFn(ctx, location)
}

func (f *fakeArchive) List(ctx context.Context, userID int64) ([]storage.ArchivedFile, error) {
	return f.listFn(ctx, userID)
}

func (f *fakeArchive) Purge(ctx context.Context, userID int64) error {
	return f.purgeFn(ctx, userID)
}

type voiceFixture struct {
	store  testStore
	clock  *fakeClock
	gens   GenerationService
	usage  UsageService
	userID int64
	logs   *test.Hook
}

func newVoiceFixture(t *testing.T) *voiceFixture {
	t.Helper()
	store := newTestStore(t)
	clock := newFakeClock(time.Date(2026, 9, 10, 8, 0, 0, 0, time.UTC))
	return &voiceFixture{
		store:  store,
		clock:  clock,
		gens:   NewGenerationService(store.generations, clock.Now),
		usage:  NewUsageService(store.usage, store.generations, UsageLimits{MonthlyCharacters: 20, MonthlyAPICalls: 100}, clock.Now),
		userID: seedServiceUser(t, store, "voice@example.com"),
	}
}

func (f *voiceFixture) service(synth Synthesizer, archive AudioArchive, enforce bool) VoiceService {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	f.logs = hook
	cfg := VoiceServiceConfig{
		Generations:  f.gens,
		Usage:        f.usage,
		Synthesizer:  synth,
		Archive:      archive,
		EnforceQuota: enforce,
		Logger:       logger,
	}
	return NewVoiceService(cfg)
}

func okSynth(url string, duration float64) synthFunc {
	return func(context.Context, tts.Request) (*tts.Result, error) {
		return &tts.Result{AudioURL: url, Duration: duration}, nil
	}
}

func TestGenerateCompletesAndRecordsUsage(t *testing.T) {
	ctx := context.Background()
	f := newVoiceFixture(t)

	var got tts.Request
	synth := synthFunc(func(_ context.Context, req tts.Request) (*tts.Result, error) {
		got = req
		return &tts.Result{AudioURL: "http://backend/audio/abc.wav?x=1"}, nil
	})
	svc := f.service(synth, nil, false)

	res, err := svc.Generate(ctx, f.userID, GenerateRequest{Type: domain.GenerationTypeTTS, Text: "hello world", Voice: "Kore"})
	require.NoError(t, err)

	assert.Equal(t, f.userID, got.UserID)
	assert.Equal(t, "Kore", got.Voice)
	assert.Equal(t, domain.GenerationStatusCompleted, res.Status)
	assert.Equal(t, 11, res.CharactersUsed)
	assert.InDelta(t, 0.55, res.Duration, 1e-9)
	assert.Equal(t, "http://backend/audio/abc.wav?x=1", res.AudioURL)

	gen, err := f.gens.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.GenerationStatusCompleted, gen.Status)
	require.NotNil(t, gen.AudioFilename)
	assert.Equal(t, "abc.wav", *gen.AudioFilename)

	usage, err := f.usage.Get(ctx, f.userID, "")
	require.NoError(t, err)
	require.NotNil(t, usage)
	assert.EqualValues(t, 11, usage.CharactersUsed)
	assert.EqualValues(t, 1, usage.APICalls)
	assert.InDelta(t, 0.55, usage.AudioGeneratedSeconds, 1e-9)
}

func TestGenerateSynthesisFailure(t *testing.T) {
	ctx := context.Background()
	f := newVoiceFixture(t)
	synth := synthFunc(func(context.Context, tts.Request) (*tts.Result, error) {
		return nil, errors.New("TTS API error: Bad Gateway")
	})
	svc := f.service(synth, nil, false)

	_, err := svc.Generate(ctx, f.userID, GenerateRequest{Type: domain.GenerationTypeTTS, Text: "hello", Voice: "Kore"})
	assert.ErrorIs(t, err, domain.ErrSynthesisFailed)

	gens, err := f.gens.ListByUser(ctx, f.userID, 10, 0)
	require.NoError(t, err)
	require.Len(t, gens, 1)
	assert.Equal(t, domain.GenerationStatusFailed, gens[0].Status)
	require.NotNil(t, gens[0].ErrorMessage)
	assert.Equal(t, "TTS API error: Bad Gateway", *gens[0].ErrorMessage)
	assert.NotNil(t, gens[0].CompletedAt)

	usage, err := f.usage.Get(ctx, f.userID, "")
	require.NoError(t, err)
	assert.Nil(t, usage)
}

func TestGenerateCanceledContextStillMarksFailed(t *testing.T) {
	f := newVoiceFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	synth := synthFunc(func(context.Context, tts.Request) (*tts.Result, error) {
		cancel()
		return nil, context.Canceled
	})
	svc := f.service(synth, nil, false)

	_, err := svc.Generate(ctx, f.userID, GenerateRequest{Type: domain.GenerationTypeTTS, Text: "hello", Voice: "Kore"})
	assert.ErrorIs(t, err, domain.ErrSynthesisFailed)

	gens, err := f.gens.ListByUser(context.Background(), f.userID, 10, 0)
	require.NoError(t, err)
	require.Len(t, gens, 1)
	assert.Equal(t, domain.GenerationStatusFailed, gens[0].Status)
}

func TestGenerateCanceledAfterSynthesisStillCompletes(t *testing.T) {
	f := newVoiceFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	synth := synthFunc(func(context.Context, tts.Request) (*tts.Result, error) {
		cancel()
		return &tts.Result{AudioURL: "http://backend/audio/late.wav", Duration: 2}, nil
	})
	archive := &fakeArchive{
		archiveFn: func(ctx context.Context, _ int64, _ string) (string, error) {
			require.NoError(t, ctx.Err())
			return "s3://voice-bucket/808-voice/users/1/late.wav", nil
		},
		playbackFn: func(ctx context.Context, location string) (string, error) {
			require.NoError(t, ctx.Err())
			return "https://signed/late.wav", nil
		},
	}
	svc := f.service(synth, archive, false)

	res, err := svc.Generate(ctx, f.userID, GenerateRequest{Type: domain.GenerationTypeTTS, Text: "hello", Voice: "Kore"})
	require.NoError(t, err)
	assert.Equal(t, "https://signed/late.wav", res.AudioURL)

	bg := context.Background()
	gen, err := f.gens.Get(bg, res.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.GenerationStatusCompleted, gen.Status)

	usage, err := f.usage.Get(bg, f.userID, "")
	require.NoError(t, err)
	require.NotNil(t, usage)
	assert.EqualValues(t, 5, usage.CharactersUsed)
	assert.EqualValues(t, 1, usage.APICalls)
}

func TestGenerateValidation(t *testing.T) {
	f := newVoiceFixture(t)
	called := false
	svc := f.service(synthFunc(func(context.Context, tts.Request) (*tts.Result, error) {
		called = true
		return nil, nil
	}), nil, false)

	tests := []struct {
		name string
		req  GenerateRequest
		msg  string
	}{
		{"empty text", GenerateRequest{Type: domain.GenerationTypeTTS, Text: " ", Voice: "Kore"}, "Text is required"},
		{"no voice", GenerateRequest{Type: domain.GenerationTypeTTS, Text: "hi"}, "Voice is required for single-speaker TTS"},
		{"no speakers", GenerateRequest{Type: domain.GenerationTypeMultiSpeaker, Text: "hi"}, "Speakers configuration is required for multi-speaker TTS"},
		{"bad type", GenerateRequest{Type: "karaoke", Text: "hi"}, `Unknown generation type "karaoke"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Generate(context.Background(), f.userID, tt.req)
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
			assert.Equal(t, tt.msg, err.Error())
		})
	}
	assert.False(t, called)
}

func TestGenerateEnforcesQuota(t *testing.T) {
	ctx := context.Background()
	f := newVoiceFixture(t)
	svc := f.service(okSynth("http://backend/audio/a.wav", 1), nil, true)

	_, err := svc.Generate(ctx, f.userID, GenerateRequest{Type: domain.GenerationTypeTTS, Text: strings.Repeat("a", 20), Voice: "Kore"})
	require.NoError(t, err)

	_, err = svc.Generate(ctx, f.userID, GenerateRequest{Type: domain.GenerationTypeTTS, Text: "more", Voice: "Kore"})
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)

	gens, err := f.gens.ListByUser(ctx, f.userID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, gens, 1)
}

func TestGenerateArchivesAudio(t *testing.T) {
	ctx := context.Background()
	f := newVoiceFixture(t)
	archive := &fakeArchive{
		archiveFn: func(_ context.Context, userID int64, sourceURL string) (string, error) {
			assert.Equal(t, "http://backend/audio/a.wav", sourceURL)
			return "s3://voices/users/1/x.wav", nil
		},
		playbackFn: func(_ context.Context, location string) (string, error) {
			return "https://signed.example/" + strings.TrimPrefix(location, "s3://"), nil
		},
	}
	svc := f.service(okSynth("http://backend/audio/a.wav", 2), archive, false)

	res, err := svc.Generate(ctx, f.userID, GenerateRequest{Type: domain.GenerationTypeTTS, Text: "hi", Voice: "Kore"})
	require.NoError(t, err)
	assert.Equal(t, "https://signed.example/voices/users/1/x.wav", res.AudioURL)
	assert.InDelta(t, 2.0, res.Duration, 1e-9)

	gen, err := f.gens.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "s3://voices/users/1/x.wav", *gen.AudioURL)
	assert.Equal(t, "a.wav", *gen.AudioFilename)

	page, err := svc.History(ctx, f.userID, "", 10, 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "https://signed.example/voices/users/1/x.wav", page.Items[0].AudioURL)
}

func TestGenerateArchiveFailureKeepsBackendURL(t *testing.T) {
	ctx := context.Background()
	f := newVoiceFixture(t)
	archive := &fakeArchive{
		archiveFn: func(context.Context, int64, string) (string, error) {
			return "", errors.New("bucket unavailable")
		},
	}
	svc := f.service(okSynth("http://backend/audio/a.wav", 2), archive, false)

	res, err := svc.Generate(ctx, f.userID, GenerateRequest{Type: domain.GenerationTypeTTS, Text: "hi", Voice: "Kore"})
	require.NoError(t, err)
	assert.Equal(t, "http://backend/audio/a.wav", res.AudioURL)

	gen, err := f.gens.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "http://backend/audio/a.wav", *gen.AudioURL)

	var warned bool
	for _, entry := range f.logs.AllEntries() {
		if entry.Level == logrus.WarnLevel && strings.Contains(entry.Message, "archive audio") {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestRecentIncludesFailedNewestFirst(t *testing.T) {
	ctx := context.Background()
	f := newVoiceFixture(t)

	ok := f.service(okSynth("http://backend/audio/a.wav", 1), nil, false)
	_, err := ok.Generate(ctx, f.userID, GenerateRequest{Type: domain.GenerationTypeTTS, Text: "one", Voice: "Kore"})
	require.NoError(t, err)
	f.clock.Advance(time.Minute)

	bad := f.service(synthFunc(func(context.Context, tts.Request) (*tts.Result, error) {
		return nil, errors.New("TTS API error: Bad Gateway")
	}), nil, false)
	_, err = bad.Generate(ctx, f.userID, GenerateRequest{Type: domain.GenerationTypeTTS, Text: "two", Voice: "Kore"})
	require.Error(t, err)

	recent, err := bad.Recent(ctx, f.userID, 3)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, domain.GenerationStatusFailed, recent[0].Status)
	assert.Equal(t, domain.GenerationStatusCompleted, recent[1].Status)

	none, err := bad.Recent(ctx, f.userID, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestHistoryFilterAndPaging(t *testing.T) {
	ctx := context.Background()
	f := newVoiceFixture(t)
	svc := f.service(okSynth("http://backend/audio/a.wav", 1), nil, false)

	speakers := map[string]string{"Bob": "Puck", "Alice": "Kore"}
	for i := 0; i < 3; i++ {
		f.clock.Advance(time.Minute)
		req := GenerateRequest{Type: domain.GenerationTypeTTS, Text: "single", Voice: "Kore"}
		if i == 1 {
			req = GenerateRequest{Type: domain.GenerationTypeMultiSpeaker, Text: "multi", Speakers: speakers}
		}
		_, err := svc.Generate(ctx, f.userID, req)
		require.NoError(t, err)
	}

	page, err := svc.History(ctx, f.userID, domain.GenerationTypeMultiSpeaker, 2, 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.True(t, page.HasMore)
	assert.Equal(t, []string{"Alice", "Bob"}, page.Items[0].Speakers)
	assert.Empty(t, page.Items[0].Voice)
	assert.EqualValues(t, 3, page.Stats.TotalGenerations)
	require.NotNil(t, page.Stats.ThisMonthUsage)
	assert.EqualValues(t, 3, page.Stats.ThisMonthUsage.APICalls)

	page, err = svc.History(ctx, f.userID, "", 2, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.False(t, page.HasMore)
	assert.Equal(t, "Kore", page.Items[0].Voice)
	assert.Equal(t, "single", page.Items[0].Generation.Text)

	page, err = svc.History(ctx, f.userID, "", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultHistoryLimit, page.Limit)
	assert.Len(t, page.Items, 3)
}

func TestArchiveHelpersWithoutArchive(t *testing.T) {
	f := newVoiceFixture(t)
	svc := f.service(okSynth("http://x/a.wav", 1), nil, false)

	files, err := svc.ArchivedFiles(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.NoError(t, svc.PurgeArchive(context.Background(), f.userID))
}

func TestPurgeArchiveDelegates(t *testing.T) {
	f := newVoiceFixture(t)
	var purged int64
	archive := &fakeArchive{
		purgeFn: func(_ context.Context, userID int64) error {
			purged = userID
			return nil
		},
		listFn: func(context.Context, int64) ([]storage.ArchivedFile, error) {
			return []storage.ArchivedFile{{Key: "k", Size: 1}}, nil
		},
	}
	svc := f.service(okSynth("http://x/a.wav", 1), archive, false)

	require.NoError(t, svc.PurgeArchive(context.Background(), f.userID))
	assert.Equal(t, f.userID, purged)

	files, err := svc.ArchivedFiles(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestAudioFilename(t *testing.T) {
	assert.Equal(t, "abc.wav", audioFilename("http://backend/audio/abc.wav"))
	assert.Equal(t, "abc.wav", audioFilename("http://backend/audio/abc.wav?sig=1"))
	assert.Equal(t, "", audioFilename("http://backend/"))
	assert.Equal(t, "plain.wav", audioFilename("plain.wav"))
}
