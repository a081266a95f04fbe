package ledger

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for ledger transitions.
type Metrics struct {
	Transitions *prometheus.CounterVec
	Failures    *prometheus.CounterVec
	Duration    *prometheus.HistogramVec
	Height      prometheus.Gauge
}

// NewMetrics creates the ledger metrics and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bui_ledger_transitions_total",
			Help: "Total number of transitions by operation and outcome",
		}, []string{"op", "outcome"}),
		Failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bui_ledger_failures_total",
			Help: "Total number of rejected transitions by operation and error kind",
		}, []string{"op", "kind"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bui_ledger_transition_duration_seconds",
			Help:    "Duration of transitions including lock wait",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"op"}),
		Height: f.NewGauge(prometheus.GaugeOpts{
			Name: "bui_ledger_height",
			Help: "Number of committed transitions",
		}),
	}
}

func (m *Metrics) observe(op string, err error, start time.Time) {
	if m == nil {
		return
	}
	m.Duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		kind := KindOf(err)
		if kind == "" {
			kind = KindInternal
		}
		m.Transitions.WithLabelValues(op, "rejected").Inc()
		m.Failures.WithLabelValues(op, string(kind)).Inc()
		return
	}
	m.Transitions.WithLabelValues(op, "committed").Inc()
}

// setHeight is called with the ledger lock held so the gauge never moves
// backwards.
func (m *Metrics) setHeight(height uint64) {
	if m == nil {
		return
	}
	m.Height.Set(float64(height))
}
