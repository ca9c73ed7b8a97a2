package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"voice-808/internal/repository"
	"voice-808/internal/repository/sqlite"
)

type testStore struct {
	users       repository.UserRepository
	tokens      repository.AuthTokenRepository
	generations repository.GenerationRepository
	usage       repository.UsageRepository
}

func newTestStore(t *testing.T) testStore {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "voice.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlite.Migrate(context.Background(), db))

	return testStore{
		users:       sqlite.NewUserRepository(db),
		tokens:      sqlite.NewAuthTokenRepository(db),
		generations: sqlite.NewGenerationRepository(db),
		usage:       sqlite.NewUsageRepository(db),
	}
}

// fakeClock is a settable time source shared by services under test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
