package assets

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"scrapbook/internal/schedule"
)

const watchDelay = 200 * time.Millisecond

// Watch reloads lists edited outside the library and calls onChange for
// each reloaded kind. It blocks until ctx is cancelled.
func (l *Library) Watch(ctx context.Context, onChange func(Kind)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(l.dir); err != nil {
		return fmt.Errorf("watch %s: %w", l.dir, err)
	}

	byFile := make(map[string]Kind, len(Kinds))
	for _, k := range Kinds {
		byFile[k.File()] = k
	}

	reload := schedule.New[Kind](watchDelay, func(_ context.Context, k Kind) error {
		if err := l.Reload(k); err != nil {
			return err
		}
		l.logger.Debug("reloaded", "kind", k)
		if onChange != nil {
			onChange(k)
		}
		return nil
	}, schedule.WithLogger[Kind](l.logger))
	defer reload.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if k, ok := byFile[filepath.Base(event.Name)]; ok {
				reload.Schedule(k)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Error("watcher error", "err", err)
		}
	}
}
