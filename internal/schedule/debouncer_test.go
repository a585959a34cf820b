package schedule_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"scrapbook/internal/schedule"
)

type recorder struct {
	mu   sync.Mutex
	runs map[int]int
}

func (r *recorder) task(_ context.Context, key int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.runs == nil {
		r.runs = make(map[int]int)
	}
	r.runs[key]++
	return nil
}

func (r *recorder) count(key int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs[key]
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestScheduleCollapses(t *testing.T) {
	r := &recorder{}
	d := schedule.New(30*time.Millisecond, r.task)
	defer d.Stop()

	for i := 0; i < 10; i++ {
		d.Schedule(1)
	}
	waitFor(t, func() bool { return r.count(1) == 1 })

	time.Sleep(60 * time.Millisecond)
	if got := r.count(1); got != 1 {
		t.Errorf("runs = %d, want 1", got)
	}
	if len(d.Pending()) != 0 {
		t.Errorf("pending = %v, want none", d.Pending())
	}
}

func TestScheduleRestartsTimer(t *testing.T) {
	r := &recorder{}
	d := schedule.New(80*time.Millisecond, r.task)
	defer d.Stop()

	d.Schedule(1)
	time.Sleep(50 * time.Millisecond)
	d.Schedule(1)
	time.Sleep(50 * time.Millisecond)
	if got := r.count(1); got != 0 {
		t.Fatalf("ran after %d ms, timer was not restarted", 100)
	}
	waitFor(t, func() bool { return r.count(1) == 1 })
}

func TestFlushRunsAllPending(t *testing.T) {
	r := &recorder{}
	d := schedule.New(time.Hour, r.task)
	defer d.Stop()

	d.Schedule(1)
	d.Schedule(2)
	d.Schedule(2)
	d.Schedule(3)

	pending := d.Pending()
	sort.Ints(pending)
	if len(pending) != 3 {
		t.Fatalf("pending = %v, want 3 keys", pending)
	}

	if err := d.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	for _, k := range []int{1, 2, 3} {
		if got := r.count(k); got != 1 {
			t.Errorf("key %d ran %d times, want 1", k, got)
		}
	}
	if len(d.Pending()) != 0 {
		t.Errorf("timers not cleared: %v", d.Pending())
	}
}

func TestFlushWaitsForInFlightRun(t *testing.T) {
	release := make(chan struct{})
	var finished atomic.Bool
	started := make(chan struct{})
	d := schedule.New(10*time.Millisecond, func(ctx context.Context, key int) error {
		close(started)
		<-release
		finished.Store(true)
		return nil
	})
	defer d.Stop()

	d.Schedule(7)
	<-started

	flushed := make(chan error, 1)
	go func() { flushed <- d.Flush(context.Background()) }()

	select {
	case <-flushed:
		t.Fatal("Flush returned while a run was in flight")
	case <-time.After(30 * time.Millisecond):
	}
	close(release)
	if err := <-flushed; err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if !finished.Load() {
		t.Error("in-flight run not finished when Flush returned")
	}
}

func TestFlushReturnsTaskError(t *testing.T) {
	boom := errors.New("boom")
	d := schedule.New(time.Hour, func(ctx context.Context, key string) error {
		if key == "bad" {
			return boom
		}
		return nil
	})
	defer d.Stop()

	d.Schedule("good")
	d.Schedule("bad")
	if err := d.Flush(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Flush err = %v, want %v", err, boom)
	}
}

func TestFlushHonorsContext(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	started := make(chan struct{})
	d := schedule.New(time.Millisecond, func(ctx context.Context, key int) error {
		close(started)
		<-block
		return nil
	})
	defer d.Stop()

	d.Schedule(1)
	<-started
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.Flush(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Flush err = %v, want deadline exceeded", err)
	}
}

func TestCancelAndStop(t *testing.T) {
	r := &recorder{}
	d := schedule.New(20*time.Millisecond, r.task)

	d.Schedule(1)
	if !d.Cancel(1) {
		t.Error("Cancel should report a pending key")
	}
	if d.Cancel(1) {
		t.Error("second Cancel should report nothing pending")
	}
	d.Schedule(2)
	d.Stop()
	d.Schedule(3)
	time.Sleep(60 * time.Millisecond)
	if r.count(1)+r.count(2)+r.count(3) != 0 {
		t.Errorf("runs after cancel/stop: %v", r.runs)
	}
}

func TestMetricsCountRuns(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := schedule.NewMetrics(reg, "test")
	r := &recorder{}
	d := schedule.New(time.Hour, r.task, schedule.WithMetrics[int](m))
	defer d.Stop()

	d.Schedule(1)
	d.Schedule(1)
	if err := d.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := testutil.ToFloat64(m.RunsTotal().WithLabelValues("ok")); got != 1 {
		t.Errorf("ok runs = %v, want 1", got)
	}
}
