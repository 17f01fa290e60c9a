// Package jobs contains implementations of scheduled jobs for Lingo Progress Hub.
package jobs

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/lingo-hub/lingo-progress-hub/internal/domain/ranking"
	"github.com/lingo-hub/lingo-progress-hub/internal/domain/shared"
	"github.com/lingo-hub/lingo-progress-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REBUILD RANKING JOB
// ══════════════════════════════════════════════════════════════════════════════

// RankingSource supplies the full canonical ranking from the authoritative store.
type RankingSource interface {
	AllEntries(ctx context.Context) ([]ranking.Entry, error)
}

// RebuildRankingJob periodically replaces the ranking cache with a fresh
// snapshot built from the authoritative store. The cache is updated
// incrementally on every completion; this job corrects any drift caused by
// missed updates or cache restarts.
type RebuildRankingJob struct {
	source    RankingSource
	cache     ranking.Cache
	publisher shared.EventPublisher
	log       *logger.Logger

	config RebuildRankingConfig

	lastStats atomic.Value // *RebuildStats
}

// RebuildRankingConfig contains configuration for the rebuild job.
type RebuildRankingConfig struct {
	// Timeout is the maximum duration for a single rebuild pass.
	Timeout time.Duration
}

// DefaultRebuildRankingConfig returns sensible defaults.
func DefaultRebuildRankingConfig() RebuildRankingConfig {
	return RebuildRankingConfig{
		Timeout: 2 * time.Minute,
	}
}

// RebuildStats contains statistics from a rebuild run.
type RebuildStats struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Entries     int
}

// NewRebuildRankingJob creates a new ranking rebuild job.
func NewRebuildRankingJob(
	source RankingSource,
	cache ranking.Cache,
	publisher shared.EventPublisher,
	log *logger.Logger,
	config RebuildRankingConfig,
) *RebuildRankingJob {
	if log == nil {
		log = logger.Default()
	}

	return &RebuildRankingJob{
		source:    source,
		cache:     cache,
		publisher: publisher,
		log:       log.With(logger.Component("rebuild_ranking")),
		config:    config,
	}
}

// Name returns the job name.
func (j *RebuildRankingJob) Name() string {
	return "rebuild_ranking"
}

// Description returns a human-readable description.
func (j *RebuildRankingJob) Description() string {
	return "Rebuilds the ranking cache from the authoritative account store"
}

// Run executes the rebuild job.
func (j *RebuildRankingJob) Run(ctx context.Context) error {
	startedAt := time.Now()

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	entries, err := j.source.AllEntries(ctx)
	if err != nil {
		return fmt.Errorf("load ranking entries: %w", err)
	}

	if err := j.cache.Rebuild(ctx, entries); err != nil {
		return fmt.Errorf("rebuild ranking cache: %w", err)
	}

	completedAt := time.Now()
	duration := completedAt.Sub(startedAt)

	stats := &RebuildStats{
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		Duration:    duration,
		Entries:     len(entries),
	}
	j.lastStats.Store(stats)

	if j.publisher != nil {
		event := shared.NewRankingRebuiltEvent(len(entries), duration)
		if err := j.publisher.Publish(event); err != nil {
			j.log.Warn("failed to publish rebuild event", logger.Err(err))
		}
	}

	j.log.Info("ranking cache rebuilt",
		logger.Int("entries", len(entries)),
		logger.Duration("duration", duration),
	)

	return nil
}

// LastStats returns statistics from the last rebuild, or nil if none ran yet.
func (j *RebuildRankingJob) LastStats() *RebuildStats {
	stats := j.lastStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*RebuildStats)
}
