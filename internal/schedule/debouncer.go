// Package schedule provides a keyed debounced task runner: repeated
// Schedule calls for the same key within the delay collapse into a single
// run, and Flush forces every pending run immediately.
package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// Task is the work run for a key once its timer fires or it is flushed.
type Task[K comparable] func(ctx context.Context, key K) error

type entry struct {
	timer *time.Timer
	gen   uint64
}

// Debouncer runs Task for a key delay after the last Schedule call for it.
type Debouncer[K comparable] struct {
	delay   time.Duration
	task    Task[K]
	ctx     context.Context
	logger  *log.Logger
	metrics *Metrics

	mu      sync.Mutex
	timers  map[K]*entry
	gen     uint64
	stopped bool

	// active counts runs in progress; idle is closed when it drops to zero.
	active int
	idle   chan struct{}
}

type Option[K comparable] func(*Debouncer[K])

// WithContext sets the context timer-fired runs receive. Defaults to Background.
func WithContext[K comparable](ctx context.Context) Option[K] {
	return func(d *Debouncer[K]) { d.ctx = ctx }
}

func WithLogger[K comparable](l *log.Logger) Option[K] {
	return func(d *Debouncer[K]) { d.logger = l }
}

func WithMetrics[K comparable](m *Metrics) Option[K] {
	return func(d *Debouncer[K]) { d.metrics = m }
}

func New[K comparable](delay time.Duration, task Task[K], opts ...Option[K]) *Debouncer[K] {
	d := &Debouncer[K]{
		delay:  delay,
		task:   task,
		ctx:    context.Background(),
		logger: log.Default(),
		timers: make(map[K]*entry),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Schedule (re)starts the timer for key.
func (d *Debouncer[K]) Schedule(key K) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if e, ok := d.timers[key]; ok {
		e.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timers[key] = &entry{
		gen:   gen,
		timer: time.AfterFunc(d.delay, func() { d.fire(key, gen) }),
	}
	d.metrics.scheduled()
}

// Cancel drops the pending run for key, if any.
func (d *Debouncer[K]) Cancel(key K) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.timers[key]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(d.timers, key)
	return true
}

// Pending returns the keys with a timer still armed.
func (d *Debouncer[K]) Pending() []K {
	d.mu.Lock()
	defer d.mu.Unlock()
	keys := make([]K, 0, len(d.timers))
	for k := range d.timers {
		keys = append(keys, k)
	}
	return keys
}

func (d *Debouncer[K]) fire(key K, gen uint64) {
	d.mu.Lock()
	e, ok := d.timers[key]
	// A newer Schedule or a Flush already claimed this key.
	if !ok || e.gen != gen {
		d.mu.Unlock()
		return
	}
	delete(d.timers, key)
	d.begin(1)
	d.mu.Unlock()

	defer d.done()
	if err := d.run(d.ctx, key); err != nil {
		d.logger.Error("debounced run failed", "key", key, "err", err)
	}
}

func (d *Debouncer[K]) run(ctx context.Context, key K) error {
	start := time.Now()
	err := d.task(ctx, key)
	d.metrics.observe(time.Since(start), err)
	return err
}

// Flush cancels every timer, runs all pending keys concurrently and waits
// for them plus any run that was already in progress. It returns the first
// task error.
func (d *Debouncer[K]) Flush(ctx context.Context) error {
	d.mu.Lock()
	keys := make([]K, 0, len(d.timers))
	for k, e := range d.timers {
		e.timer.Stop()
		keys = append(keys, k)
	}
	clear(d.timers)
	d.begin(len(keys))
	d.mu.Unlock()

	var g errgroup.Group
	for _, k := range keys {
		g.Go(func() error {
			defer d.done()
			return d.run(ctx, k)
		})
	}
	err := g.Wait()
	if werr := d.WaitRunning(ctx); err == nil {
		err = werr
	}
	return err
}

// WaitRunning blocks until in-progress runs finish or ctx is cancelled.
func (d *Debouncer[K]) WaitRunning(ctx context.Context) error {
	d.mu.Lock()
	if d.active == 0 {
		d.mu.Unlock()
		return nil
	}
	idle := d.idle
	d.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// begin must be called with d.mu held.
func (d *Debouncer[K]) begin(n int) {
	if n == 0 {
		return
	}
	if d.active == 0 {
		d.idle = make(chan struct{})
	}
	d.active += n
}

func (d *Debouncer[K]) done() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.active--
	if d.active == 0 {
		close(d.idle)
	}
}

// Stop disarms all timers without running them. Later Schedule calls are
// ignored.
func (d *Debouncer[K]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for _, e := range d.timers {
		e.timer.Stop()
	}
	clear(d.timers)
}
