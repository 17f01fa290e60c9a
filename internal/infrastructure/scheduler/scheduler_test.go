package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingo-hub/lingo-progress-hub/pkg/logger"
)

type countingJob struct {
	name string
	runs atomic.Int64
	err  error
}

func (j *countingJob) Name() string        { return j.name }
func (j *countingJob) Description() string { return "counts runs" }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	return j.err
}

func newTestScheduler() *Scheduler {
	return New(Config{Logger: logger.Nop()})
}

func TestIntervalSchedule(t *testing.T) {
	s := Every(10 * time.Minute)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, base.Add(10*time.Minute), s.Next(base))
	assert.Equal(t, "@every 10m0s", s.String())
}

func TestScheduler_Register(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "rebuild"}

	require.NoError(t, s.Register(job, Every(time.Minute)))

	t.Run("rejects duplicate names", func(t *testing.T) {
		err := s.Register(&countingJob{name: "rebuild"}, Every(time.Minute))
		assert.ErrorIs(t, err, ErrJobAlreadyExists)
	})

	t.Run("rejects nil job", func(t *testing.T) {
		assert.ErrorIs(t, s.Register(nil, Every(time.Minute)), ErrNilJob)
	})

	t.Run("rejects nil schedule", func(t *testing.T) {
		assert.ErrorIs(t, s.Register(&countingJob{name: "other"}, nil), ErrNilSchedule)
	})
}

func TestScheduler_RunNow(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "rebuild"}
	require.NoError(t, s.Register(job, Every(time.Hour)))

	result, err := s.RunNow(context.Background(), "rebuild")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, int64(1), job.runs.Load())

	last, ok := s.LastRun("rebuild")
	require.True(t, ok)
	assert.Equal(t, "rebuild", last.JobName)

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestScheduler_RunNowPropagatesJobError(t *testing.T) {
	s := newTestScheduler()
	jobErr := errors.New("store down")
	job := &countingJob{name: "flaky", err: jobErr}
	require.NoError(t, s.Register(job, Every(time.Hour)))

	result, err := s.RunNow(context.Background(), "flaky")
	assert.ErrorIs(t, err, jobErr)
	assert.False(t, result.Success)
}

func TestScheduler_Lifecycle(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.Register(&countingJob{name: "rebuild"}, Every(time.Hour)))

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())

	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())

	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)
}

func TestScheduler_DisabledJobIsSkipped(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "rebuild"}
	require.NoError(t, s.Register(job, Every(time.Hour)))

	require.NoError(t, s.DisableJob("rebuild"))
	assert.ErrorIs(t, s.DisableJob("missing"), ErrJobNotFound)

	require.NoError(t, s.EnableJob("rebuild"))
}
