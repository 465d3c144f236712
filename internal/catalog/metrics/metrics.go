package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the catalog module.
type Metrics struct {
	CausesCreated       prometheus.Counter
	CampaignsCreated    prometheus.Counter
	AssociationChanges  *prometheus.CounterVec
	CampaignTransitions *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CausesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "donorhub_catalog_causes_created_total",
			Help: "Total number of causes created",
		}),
		CampaignsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "donorhub_catalog_campaigns_created_total",
			Help: "Total number of campaigns created",
		}),
		AssociationChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "donorhub_catalog_association_changes_total",
			Help: "Cause/campaign association changes by action",
		}, []string{"action"}), // action: "associate", "dissociate"
		CampaignTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "donorhub_catalog_campaign_transitions_total",
			Help: "Campaign status changes by target status and trigger",
		}, []string{"to", "trigger"}), // trigger: "actor", "scheduler"
	}
}

func (m *Metrics) IncrementCauseCreated() {
	if m != nil {
		m.CausesCreated.Inc()
	}
}

func (m *Metrics) IncrementCampaignCreated() {
	if m != nil {
		m.CampaignsCreated.Inc()
	}
}

func (m *Metrics) IncrementAssociation(action string) {
	if m != nil {
		m.AssociationChanges.WithLabelValues(action).Inc()
	}
}

func (m *Metrics) IncrementCampaignTransition(to, trigger string) {
	if m != nil {
		m.CampaignTransitions.WithLabelValues(to, trigger).Inc()
	}
}
