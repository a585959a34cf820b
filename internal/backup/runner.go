// Package backup snapshots every album and writes the snapshot to one or
// more sinks, on demand or on a cron schedule.
package backup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"scrapbook/internal/domain"
)

var ErrAlreadyRunning = errors.New("backup already running")

// Snapshot is the full album tree at one point in time.
type Snapshot struct {
	ID      string         `json:"id"`
	TakenAt time.Time      `json:"takenAt"`
	Albums  []domain.Album `json:"albums"`
}

func (s Snapshot) PageCount() int {
	n := 0
	for _, a := range s.Albums {
		n += len(a.Pages)
	}
	return n
}

// Source provides the album tree, pages included.
type Source interface {
	Snapshot(ctx context.Context) ([]domain.Album, error)
}

type Sink interface {
	Name() string
	Write(ctx context.Context, s Snapshot) error
}

type Runner struct {
	source Source
	sinks  []Sink
	logger *log.Logger
	guard  runningGuard
	now    func() time.Time
}

func NewRunner(source Source, sinks []Sink, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		source: source,
		sinks:  sinks,
		logger: logger.WithPrefix("backup"),
		now:    time.Now,
	}
}

// Run takes one snapshot and writes it to every sink. A sink failure does
// not stop the others; all failures are returned together.
func (r *Runner) Run(ctx context.Context) (Snapshot, error) {
	if !r.guard.TryLock("run") {
		return Snapshot{}, ErrAlreadyRunning
	}
	defer r.guard.Unlock("run")

	albums, err := r.source.Snapshot(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("take snapshot: %w", err)
	}
	snap := Snapshot{ID: uuid.NewString(), TakenAt: r.now().UTC(), Albums: albums}

	var errs []error
	for _, sink := range r.sinks {
		if err := sink.Write(ctx, snap); err != nil {
			r.logger.Error("sink failed", "sink", sink.Name(), "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
			continue
		}
		r.logger.Info("snapshot written", "sink", sink.Name(), "albums", len(albums), "pages", snap.PageCount())
	}
	return snap, errors.Join(errs...)
}

// Wait blocks until a run in progress finishes or ctx is cancelled.
func (r *Runner) Wait(ctx context.Context) error {
	return r.guard.WaitAll(ctx)
}
