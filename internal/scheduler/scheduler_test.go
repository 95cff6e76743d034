package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastEvery is a sub-second schedule; cron.Every rounds up to one second
type fastEvery struct{ d time.Duration }

func (f fastEvery) Next(t time.Time) time.Time { return t.Add(f.d) }

func newFast(t *testing.T, opts Options) *Scheduler {
	t.Helper()
	s, err := New(opts)
	require.NoError(t, err)
	s.every = func(d time.Duration) cron.Schedule { return fastEvery{d} }
	return s
}

func TestNew_Validates(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)

	_, err = New(Options{Interval: time.Hour, Period: -time.Second})
	assert.Error(t, err)

	s, err := New(Options{Interval: 24 * time.Hour, Period: 14 * 24 * time.Hour})
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, s.every(24*time.Hour).Next(time.Time{}).Sub(time.Time{}))
}

func TestRun_RepeatsUntilPeriodEnds(t *testing.T) {
	s := newFast(t, Options{Interval: 20 * time.Millisecond, Period: 150 * time.Millisecond, RunImmediately: true})

	var seen []int
	stats, err := s.Run(context.Background(), func(ctx context.Context, attempt int) error {
		seen = append(seen, attempt)
		return nil
	})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, stats.Attempts, 3)
	assert.Equal(t, stats.Attempts, len(seen))
	assert.Equal(t, 1, seen[0])
	assert.Zero(t, stats.Failures)
	assert.True(t, stats.Stopped.After(stats.Started))
}

func TestRun_FailuresDoNotStopTheLoop(t *testing.T) {
	s := newFast(t, Options{Interval: 20 * time.Millisecond, Period: 150 * time.Millisecond, RunImmediately: true})

	stats, err := s.Run(context.Background(), func(ctx context.Context, attempt int) error {
		return errors.New("browser crashed")
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.Attempts, 3)
	assert.Equal(t, stats.Attempts, stats.Failures)
}

func TestRun_NoImmediateAttempt(t *testing.T) {
	s := newFast(t, Options{Interval: time.Hour, Period: 50 * time.Millisecond})

	stats, err := s.Run(context.Background(), func(ctx context.Context, attempt int) error {
		t.Error("job should not run")
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, stats.Attempts)
}

func TestRun_SkipsOverlappingTicks(t *testing.T) {
	s := newFast(t, Options{Interval: 10 * time.Millisecond, Period: 200 * time.Millisecond})

	var active, maxActive int32
	stats, err := s.Run(context.Background(), func(ctx context.Context, attempt int) error {
		n := atomic.AddInt32(&active, 1)
		defer atomic.AddInt32(&active, -1)
		for {
			m := atomic.LoadInt32(&maxActive)
			if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
				break
			}
		}
		time.Sleep(60 * time.Millisecond)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxActive))
	assert.Positive(t, stats.Skipped)
}

func TestRun_Cancelled(t *testing.T) {
	s := newFast(t, Options{Interval: time.Hour, RunImmediately: true})

	ctx, cancel := context.WithCancel(context.Background())
	stats, err := s.Run(ctx, func(ctx context.Context, attempt int) error {
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, stats.Attempts)
}
