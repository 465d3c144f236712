package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for receipt generation.
type Metrics struct {
	Issued         prometheus.Counter
	Failures       *prometheus.CounterVec
	IssueDuration  prometheus.Histogram
	BreakerOpen    prometheus.Gauge
	BytesPersisted *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Issued: factory.NewCounter(prometheus.CounterOpts{
			Name: "donorhub_receipt_issued_total",
			Help: "Total number of receipts issued",
		}),
		Failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "donorhub_receipt_failures_total",
			Help: "Receipt generation failures by stage",
		}, []string{"stage"}), // stage: "circuit_open", "image", "render", "document"
		IssueDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "donorhub_receipt_issue_duration_seconds",
			Help:    "Time spent storing evidence and rendering the receipt document",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		BreakerOpen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "donorhub_receipt_breaker_open",
			Help: "1 while the receipt storage circuit breaker is open",
		}),
		BytesPersisted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "donorhub_receipt_bytes_persisted_total",
			Help: "Bytes written to blob storage by kind",
		}, []string{"kind"}), // kind: "image", "document"
	}
}

func (m *Metrics) IncrementIssued() {
	if m != nil {
		m.Issued.Inc()
	}
}

func (m *Metrics) IncrementFailure(stage string) {
	if m != nil {
		m.Failures.WithLabelValues(stage).Inc()
	}
}

func (m *Metrics) ObserveIssueDuration(d time.Duration) {
	if m != nil {
		m.IssueDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) SetBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerOpen.Set(1)
		return
	}
	m.BreakerOpen.Set(0)
}

func (m *Metrics) AddBytes(kind string, n int) {
	if m != nil {
		m.BytesPersisted.WithLabelValues(kind).Add(float64(n))
	}
}
