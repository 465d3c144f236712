package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for totals recomputation and analytics.
type Metrics struct {
	RecomputeLatency *prometheus.HistogramVec
	RecomputeTotal   *prometheus.CounterVec
	QueryLatency     *prometheus.HistogramVec
}

// New registers the aggregation metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RecomputeLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "donorhub_aggregation_recompute_duration_seconds",
			Help:    "Duration of a full totals recomputation by aggregate kind",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"kind"}), // kind: "cause", "campaign"

		RecomputeTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "donorhub_aggregation_recomputes_total",
			Help: "Totals recomputations by aggregate kind and outcome",
		}, []string{"kind", "outcome"}),

		QueryLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "donorhub_aggregation_query_duration_seconds",
			Help:    "Duration of analytics queries by report",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"report"}),
	}
}

// ObserveRecompute records one recomputation.
func (m *Metrics) ObserveRecompute(kind string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.RecomputeLatency.WithLabelValues(kind).Observe(d.Seconds())
	m.RecomputeTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ObserveQuery(report string, d time.Duration) {
	if m != nil {
		m.QueryLatency.WithLabelValues(report).Observe(d.Seconds())
	}
}
