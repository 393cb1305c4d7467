package importer

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/skuforge/skuforge/app/models"
	"github.com/skuforge/skuforge/internal/pkg/progress"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Product{}, &models.ImportJob{}))
	return db
}

// memoryBus records published events in order; Subscribe is not used by the
// pipeline and returns an already-closed channel.
type memoryBus struct {
	mu     sync.Mutex
	events map[string][]progress.Event
}

func newMemoryBus() *memoryBus {
	return &memoryBus{events: make(map[string][]progress.Event)}
}

func (b *memoryBus) Publish(_ context.Context, jobID string, event progress.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[jobID] = append(b.events[jobID], event)
	return nil
}

func (b *memoryBus) Subscribe(_ context.Context, _ string) (<-chan progress.Event, func()) {
	ch := make(chan progress.Event)
	close(ch)
	return ch, func() {}
}

func (b *memoryBus) published(jobID string) []progress.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]progress.Event, len(b.events[jobID]))
	copy(out, b.events[jobID])
	return out
}

// countingSignal reports cancellation from the nth IsRequested call onward
// (0 = never), mimicking a cancel request landing mid-import.
type countingSignal struct {
	mu          sync.Mutex
	cancelAtNth int
	calls       int
}

func (s *countingSignal) Request(_ context.Context, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelAtNth = 1
	return nil
}

func (s *countingSignal) IsRequested(_ context.Context, _ string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.cancelAtNth > 0 && s.calls >= s.cancelAtNth
}

func (s *countingSignal) Clear(_ context.Context, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelAtNth = 0
	s.calls = 0
	return nil
}
