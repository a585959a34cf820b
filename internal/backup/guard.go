package backup

import (
	"context"
	"sync"
)

// runningGuard ensures only one run per key is in progress and lets
// shutdown wait for the ones that are.
type runningGuard struct {
	mu      sync.Mutex
	running map[string]struct{}
	idle    chan struct{}
}

// TryLock marks key as running. It returns false if it already is.
func (g *runningGuard) TryLock(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running == nil {
		g.running = make(map[string]struct{})
	}
	if _, ok := g.running[key]; ok {
		return false
	}
	if len(g.running) == 0 {
		g.idle = make(chan struct{})
	}
	g.running[key] = struct{}{}
	return true
}

// Unlock must follow a successful TryLock.
func (g *runningGuard) Unlock(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.running[key]; !ok {
		return
	}
	delete(g.running, key)
	if len(g.running) == 0 {
		close(g.idle)
	}
}

// WaitAll blocks until nothing is running or ctx is cancelled.
func (g *runningGuard) WaitAll(ctx context.Context) error {
	g.mu.Lock()
	if len(g.running) == 0 {
		g.mu.Unlock()
		return nil
	}
	idle := g.idle
	g.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
