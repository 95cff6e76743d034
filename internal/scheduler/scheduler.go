package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// Job is one voting attempt. attempt counts from 1.
type Job func(ctx context.Context, attempt int) error

// Options configures the loop
type Options struct {
	Interval time.Duration // Time between attempts
	Period   time.Duration // Total time to keep running; 0 means until ctx is cancelled
	// RunImmediately makes the first attempt right away instead of one interval in
	RunImmediately bool
}

// Stats summarises what a Run did
type Stats struct {
	Attempts int
	Failures int
	Skipped  int // Ticks dropped because the previous attempt was still running
	Started  time.Time
	Stopped  time.Time
}

// Scheduler runs a job on a fixed interval for a bounded period
type Scheduler struct {
	opts  Options
	every func(time.Duration) cron.Schedule

	mu      sync.Mutex
	stats   Stats
	running bool
}

// New creates a scheduler
func New(opts Options) (*Scheduler, error) {
	if opts.Interval <= 0 {
		return nil, errors.New("interval must be positive")
	}
	if opts.Period < 0 {
		return nil, errors.New("period must not be negative")
	}
	return &Scheduler{opts: opts, every: every}, nil
}

func every(d time.Duration) cron.Schedule {
	return cron.Every(d)
}

// Run blocks until the period has elapsed or ctx is cancelled, then waits
// for an in-flight attempt to finish. A failing attempt is logged and the
// next one happens at the following tick; there is no retry in between.
// The error is ctx's error when ctx ended the run.
func (s *Scheduler) Run(ctx context.Context, job Job) (Stats, error) {
	s.mu.Lock()
	s.stats = Stats{Started: time.Now()}
	s.mu.Unlock()

	logger := cronLogger{}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger)),
	)
	c.Schedule(s.every(s.opts.Interval), cron.FuncJob(func() { s.attempt(ctx, job) }))

	var deadline <-chan time.Time
	if s.opts.Period > 0 {
		timer := time.NewTimer(s.opts.Period)
		defer timer.Stop()
		deadline = timer.C
	}

	slog.Info("scheduler started", "interval", s.opts.Interval, "period", s.opts.Period)
	if s.opts.RunImmediately {
		s.attempt(ctx, job)
	}
	c.Start()

	var err error
	select {
	case <-ctx.Done():
		err = ctx.Err()
		slog.Info("scheduler cancelled")
	case <-deadline:
		slog.Info("voting period finished")
	}

	<-c.Stop().Done()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Stopped = time.Now()
	return s.stats, err
}

// attempt runs the job unless another attempt is still going
func (s *Scheduler) attempt(ctx context.Context, job Job) {
	s.mu.Lock()
	if s.running {
		s.stats.Skipped++
		s.mu.Unlock()
		slog.Warn("previous attempt still running, skipping tick")
		return
	}
	if ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stats.Attempts++
	n := s.stats.Attempts
	s.mu.Unlock()

	log := slog.With("run", uuid.NewString(), "attempt", n)
	log.Info("attempt started")
	start := time.Now()

	err := job(ctx, n)

	s.mu.Lock()
	s.running = false
	if err != nil {
		s.stats.Failures++
	}
	s.mu.Unlock()

	if err != nil {
		log.Error("attempt failed", "err", err, "took", time.Since(start).Round(time.Millisecond))
		return
	}
	log.Info("attempt finished", "took", time.Since(start).Round(time.Millisecond))
}

// cronLogger sends robfig/cron's own logging to slog
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug(fmt.Sprintf("cron: %s", msg), keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error(fmt.Sprintf("cron: %s", msg), append([]any{"err", err}, keysAndValues...)...)
}
