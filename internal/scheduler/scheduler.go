// Package scheduler runs the historical forecast export on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Runner performs one export run.
type Runner interface {
	RunOnce(ctx context.Context) error
}

// Scheduler calls a Runner every interval, starting immediately. A run that
// is still in progress when the next one is due causes that tick to be skipped.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    Runner
	interval  time.Duration
	logger    *slog.Logger

	cancel context.CancelFunc
}

// New creates a Scheduler. Start must be called to begin running.
func New(runner Runner, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		runner:    runner,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the export job. Runs receive a context derived from ctx
// that is cancelled by Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return errors.New("scheduler: interval must be positive")
	}
	ctx, s.cancel = context.WithCancel(ctx)

	_, err := s.scheduler.Every(s.interval).SingletonMode().Do(func() {
		if ctx.Err() != nil {
			return
		}
		start := time.Now()
		if err := s.runner.RunOnce(ctx); err != nil {
			s.logger.Error("scheduled export failed", "error", err, "duration", time.Since(start))
			return
		}
		s.logger.Debug("scheduled export finished", "duration", time.Since(start))
	})
	if err != nil {
		s.cancel()
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("export scheduler started", "interval", s.interval)
	return nil
}

// Stop cancels any running export and stops future runs.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.scheduler.Stop()
}
