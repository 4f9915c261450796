// Package autosave flushes deferred scheduler state on a fixed interval
// so that answer recording never waits on disk I/O.
package autosave

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Flusher is the part of the scheduler the saver drives.
type Flusher interface {
	Dirty() bool
	Flush(ctx context.Context) error
}

// Saver runs a background job that flushes a Flusher when it is dirty.
type Saver struct {
	target   Flusher
	interval time.Duration
	logger   *slog.Logger
	cron     *gocron.Scheduler
}

// New creates a saver. It does nothing until Start.
func New(target Flusher, interval time.Duration, logger *slog.Logger) *Saver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Saver{
		target:   target,
		interval: interval,
		logger:   logger,
		cron:     gocron.NewScheduler(time.UTC),
	}
}

// Start schedules the flush job and returns immediately.
func (s *Saver) Start() error {
	if s.interval <= 0 {
		return fmt.Errorf("autosave interval must be positive, got %s", s.interval)
	}
	_, err := s.cron.Every(s.interval).SingletonMode().WaitForSchedule().Do(s.tick)
	if err != nil {
		return fmt.Errorf("schedule autosave: %w", err)
	}
	s.cron.StartAsync()
	return nil
}

// Stop halts the job and performs a final flush.
func (s *Saver) Stop(ctx context.Context) error {
	s.cron.Stop()
	if !s.target.Dirty() {
		return nil
	}
	return s.target.Flush(ctx)
}

func (s *Saver) tick() {
	if !s.target.Dirty() {
		return
	}
	if err := s.target.Flush(context.Background()); err != nil {
		s.logger.Warn("autosave failed", "err", err)
	}
}
