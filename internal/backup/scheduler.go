package backup

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
)

// Scheduler runs a Runner on a cron expression. Runs that would overlap a
// slow previous run are skipped.
type Scheduler struct {
	runner *Runner
	cron   *cron.Cron
}

// Schedule validates expr and starts running r on it. ctx is handed to
// every run.
func Schedule(ctx context.Context, r *Runner, expr string) (*Scheduler, error) {
	c := cron.New()
	_, err := c.AddFunc(expr, func() {
		if _, err := r.Run(ctx); err != nil {
			if errors.Is(err, ErrAlreadyRunning) {
				r.logger.Warn("skipping backup, previous run still going")
				return
			}
			r.logger.Error("scheduled backup failed", "err", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid backup schedule %q: %w", expr, err)
	}
	c.Start()
	r.logger.Info("backups scheduled", "schedule", expr)
	return &Scheduler{runner: r, cron: c}, nil
}

// Stop prevents further runs and waits for a run in progress.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.runner.Wait(ctx)
}
