// Package jobs runs periodic maintenance tasks on cron schedules.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is a unit of scheduled work
type Job func(ctx context.Context) error

// Scheduler manages background jobs
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	timeout time.Duration
}

// NewScheduler creates a scheduler. Each run is bounded by timeout and
// skipped while the previous run of the same job is still in progress.
func NewScheduler(logger *slog.Logger, timeout time.Duration) *Scheduler {
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		logger:  logger,
		timeout: timeout,
	}
}

// Add registers job under name on a cron spec such as "@every 1m"
func (s *Scheduler) Add(spec, name string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.run(name, job)
	})
	if err != nil {
		return fmt.Errorf("scheduling %s job with spec %q: %w", name, spec, err)
	}
	return nil
}

// Len returns the number of registered jobs
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("job scheduler started", "jobs", s.Len())
}

// Stop stops scheduling and waits for running jobs or ctx, whichever ends first
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("job scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn("job scheduler stop timed out", "error", ctx.Err())
	}
}

func (s *Scheduler) run(name string, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	if err := job(ctx); err != nil {
		s.logger.Error("job failed", "job", name, "error", err)
		return
	}
	s.logger.Debug("job completed", "job", name, "duration", time.Since(start))
}

// cronLogger adapts slog to cron.Logger
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
