package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler manages the periodic due-rule and resume sweeps.
type Scheduler struct {
	cron   *cron.Cron
	engine *Engine
	log    *slog.Logger
}

// NewScheduler creates a new Scheduler that runs engine sweeps on a schedule.
// The resume sweep runs much more often than the due sweep — an interrupted
// attempt has a listing sitting offline until it is finished.
func NewScheduler(
	eng *Engine,
	dueInterval time.Duration,
	resumeInterval time.Duration,
	log *slog.Logger,
) (*Scheduler, error) {
	c := cron.New()

	s := &Scheduler{
		cron:   c,
		engine: eng,
		log:    log,
	}

	if _, err := c.AddFunc(
		"@every "+dueInterval.String(),
		s.runDue,
	); err != nil {
		return nil, err
	}

	if _, err := c.AddFunc(
		"@every "+resumeInterval.String(),
		s.runResume,
	); err != nil {
		return nil, err
	}

	return s, nil
}

// Start begins running scheduled sweeps.
func (s *Scheduler) Start() {
	s.log.Info("scheduler started")
	s.cron.Start()
}

// Stop gracefully stops the scheduler, waiting for running jobs to finish.
func (s *Scheduler) Stop() context.Context {
	s.log.Info("scheduler stopping")
	return s.cron.Stop()
}

// Entries returns the registered cron entries for inspection.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

func (s *Scheduler) runDue() {
	ctx := context.Background()
	s.log.Info("scheduled due sweep starting")
	if err := s.engine.RunDue(ctx); err != nil {
		s.log.Error("scheduled due sweep failed", "error", err)
	}
}

func (s *Scheduler) runResume() {
	ctx := context.Background()
	if err := s.engine.RunResume(ctx); err != nil {
		s.log.Error("scheduled resume sweep failed", "error", err)
	}
}
