package schedule

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts debounced runs. A nil *Metrics is valid and records nothing.
type Metrics struct {
	scheduledTotal prometheus.Counter
	runsTotal      *prometheus.CounterVec
	runDuration    prometheus.Histogram
}

// NewMetrics registers the run metrics under the given subsystem.
func NewMetrics(reg prometheus.Registerer, subsystem string) *Metrics {
	m := &Metrics{
		scheduledTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "scrapbook",
			Subsystem: subsystem,
			Name:      "scheduled_total",
			Help:      "Schedule calls, including ones that collapsed into a pending run.",
		}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scrapbook",
			Subsystem: subsystem,
			Name:      "runs_total",
			Help:      "Debounced runs by result.",
		}, []string{"result"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "scrapbook",
			Subsystem: subsystem,
			Name:      "run_duration_seconds",
			Help:      "Duration of debounced runs.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.scheduledTotal, m.runsTotal, m.runDuration)
	}
	return m
}

func (m *Metrics) scheduled() {
	if m == nil {
		return
	}
	m.scheduledTotal.Inc()
}

func (m *Metrics) observe(d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.runsTotal.WithLabelValues(result).Inc()
	m.runDuration.Observe(d.Seconds())
}

// RunsTotal exposes the per-result run counter.
func (m *Metrics) RunsTotal() *prometheus.CounterVec { return m.runsTotal }
