package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for outbox delivery.
type Metrics struct {
	Published     *prometheus.CounterVec
	Failed        *prometheus.CounterVec
	DeadLettered  prometheus.Counter
	RelayLag      prometheus.Histogram
	AsyncDropped  prometheus.Counter
	BatchDuration prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Published: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "donorhub_outbox_published_total",
			Help: "Outbox events delivered by event type",
		}, []string{"type"}),
		Failed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "donorhub_outbox_publish_failures_total",
			Help: "Failed delivery attempts by event type",
		}, []string{"type"}),
		DeadLettered: factory.NewCounter(prometheus.CounterOpts{
			Name: "donorhub_outbox_dead_total",
			Help: "Outbox events that exhausted their delivery attempts",
		}),
		RelayLag: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "donorhub_outbox_relay_lag_seconds",
			Help:    "Time between an event occurring and its delivery",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
		}),
		AsyncDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "donorhub_notification_async_dropped_total",
			Help: "Events dropped by the async publisher because its buffer was full",
		}),
		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "donorhub_outbox_batch_duration_seconds",
			Help:    "Time spent relaying one outbox batch",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncrementPublished(eventType string) {
	if m != nil {
		m.Published.WithLabelValues(eventType).Inc()
	}
}

func (m *Metrics) IncrementFailed(eventType string) {
	if m != nil {
		m.Failed.WithLabelValues(eventType).Inc()
	}
}

func (m *Metrics) IncrementDead() {
	if m != nil {
		m.DeadLettered.Inc()
	}
}

func (m *Metrics) ObserveLag(d time.Duration) {
	if m != nil {
		m.RelayLag.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementAsyncDropped() {
	if m != nil {
		m.AsyncDropped.Inc()
	}
}

func (m *Metrics) ObserveBatch(d time.Duration) {
	if m != nil {
		m.BatchDuration.Observe(d.Seconds())
	}
}
