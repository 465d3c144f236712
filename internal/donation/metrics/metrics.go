package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	DonationsCreated   *prometheus.CounterVec
	IdempotentReplays  prometheus.Counter
	Transitions        *prometheus.CounterVec
	TransitionDuration prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DonationsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "donorhub_donations_created_total",
			Help: "Number of donations created, by contribution type",
		}, []string{"type"}),
		IdempotentReplays: factory.NewCounter(prometheus.CounterOpts{
			Name: "donorhub_donation_idempotent_replays_total",
			Help: "Number of donation creations answered from an idempotency key",
		}),
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "donorhub_donation_transitions_total",
			Help: "Donation status transitions by source, target and outcome",
		}, []string{"from", "to", "outcome"}),
		TransitionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "donorhub_donation_transition_duration_seconds",
			Help:    "Time to apply a donation transition, including receipt issuing",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
	}
}

func (m *Metrics) IncrementCreated(contributionType string) {
	if m == nil {
		return
	}
	m.DonationsCreated.WithLabelValues(contributionType).Inc()
}

func (m *Metrics) IncrementReplay() {
	if m == nil {
		return
	}
	m.IdempotentReplays.Inc()
}

func (m *Metrics) ObserveTransition(from, to string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Transitions.WithLabelValues(from, to, outcome).Inc()
	m.TransitionDuration.Observe(d.Seconds())
}
