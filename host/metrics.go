package host

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"crowd-chess/board"
	"crowd-chess/chesserr"
)

const (
	metricsNamespace = "crowdchess"
	metricsSubsystem = "board"
)

// Metrics holds the Prometheus collectors a Service reports to.
type Metrics struct {
	// CallsTotal counts operations by op and result code ("ok" on success).
	CallsTotal *prometheus.CounterVec

	// CallDurationSeconds measures the full load, apply and save cycle.
	CallDurationSeconds *prometheus.HistogramVec

	// GamesFinishedTotal counts games that reached a result.
	GamesFinishedTotal *prometheus.CounterVec
}

// NewMetrics registers the service collectors on reg. Passing a fresh
// prometheus.NewRegistry() keeps tests isolated from the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CallsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "calls_total",
				Help:      "Board operations by op and result code",
			},
			[]string{"op", "code"},
		),
		CallDurationSeconds: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "call_duration_seconds",
				Help:      "Latency of board operations including storage",
				Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"op"},
		),
		GamesFinishedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "games_finished_total",
				Help:      "Games that ended, by result",
			},
			[]string{"result"},
		),
	}
}

func codeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if name := chesserr.NameOf(err); name != "" {
		return name
	}
	return "internal"
}

func (m *Metrics) observe(op string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.CallsTotal.WithLabelValues(op, codeLabel(err)).Inc()
	m.CallDurationSeconds.WithLabelValues(op).Observe(seconds)
}

func (m *Metrics) finished(r board.Result) {
	if m == nil {
		return
	}
	m.GamesFinishedTotal.WithLabelValues(r.String()).Inc()
}
