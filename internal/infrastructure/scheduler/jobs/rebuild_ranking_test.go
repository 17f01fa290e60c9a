package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingo-hub/lingo-progress-hub/internal/domain/ranking"
	"github.com/lingo-hub/lingo-progress-hub/internal/domain/shared"
	"github.com/lingo-hub/lingo-progress-hub/internal/infrastructure/messaging"
	"github.com/lingo-hub/lingo-progress-hub/internal/infrastructure/persistence/memory"
	"github.com/lingo-hub/lingo-progress-hub/pkg/logger"
)

type staticSource struct {
	entries []ranking.Entry
	err     error
}

func (s *staticSource) AllEntries(ctx context.Context) ([]ranking.Entry, error) {
	return s.entries, s.err
}

func makeEntries(n int) []ranking.Entry {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	entries := make([]ranking.Entry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, ranking.Entry{
			AccountID: shared.AccountID(uuid.NewString()),
			Points:    (n - i) * 100,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			Rank:      ranking.Rank(i + 1),
		})
	}
	return entries
}

func TestRebuildRankingJob_Run(t *testing.T) {
	source := &staticSource{entries: makeEntries(5)}
	cache := memory.NewRankingCache()

	bus := messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{Logger: logger.Nop()})
	t.Cleanup(func() { _ = bus.Close() })

	var rebuilt []shared.Event
	require.NoError(t, bus.Subscribe(shared.EventRankingRebuilt, func(e shared.Event) error {
		rebuilt = append(rebuilt, e)
		return nil
	}))

	job := NewRebuildRankingJob(source, cache, bus, logger.Nop(), DefaultRebuildRankingConfig())

	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, 5, cache.Size())
	assert.Len(t, rebuilt, 1)

	stats := job.LastStats()
	require.NotNil(t, stats)
	assert.Equal(t, 5, stats.Entries)
}

func TestRebuildRankingJob_SourceError(t *testing.T) {
	source := &staticSource{err: errors.New("store down")}
	cache := memory.NewRankingCache()

	job := NewRebuildRankingJob(source, cache, nil, logger.Nop(), DefaultRebuildRankingConfig())

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, job.LastStats())
	assert.Equal(t, 0, cache.Size())
}

func TestRebuildRankingJob_Metadata(t *testing.T) {
	job := NewRebuildRankingJob(&staticSource{}, memory.NewRankingCache(), nil, nil, DefaultRebuildRankingConfig())

	assert.Equal(t, "rebuild_ranking", job.Name())
	assert.NotEmpty(t, job.Description())
}
