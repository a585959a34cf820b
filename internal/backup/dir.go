package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const filePrefix = "scrapbook-"

// DirSink writes snapshots as JSON files and keeps the newest Keep of them.
type DirSink struct {
	Dir  string
	Keep int
}

func (d DirSink) Name() string { return "dir:" + d.Dir }

func (d DirSink) Write(_ context.Context, s Snapshot) error {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	name := filePrefix + s.TakenAt.UTC().Format("20060102T150405.000Z") + ".json"
	if err := os.WriteFile(filepath.Join(d.Dir, name), data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return d.prune()
}

// Files lists snapshot files oldest first.
func (d DirSink) Files() ([]string, error) {
	entries, err := os.ReadDir(d.Dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), filePrefix) && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

func (d DirSink) prune() error {
	if d.Keep <= 0 {
		return nil
	}
	names, err := d.Files()
	if err != nil {
		return fmt.Errorf("list backups: %w", err)
	}
	for len(names) > d.Keep {
		if err := os.Remove(filepath.Join(d.Dir, names[0])); err != nil {
			return fmt.Errorf("prune backup: %w", err)
		}
		names = names[1:]
	}
	return nil
}

// ReadFile loads a snapshot written by DirSink.
func ReadFile(path string) (Snapshot, error) {
	var s Snapshot
	data, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return s, nil
}
