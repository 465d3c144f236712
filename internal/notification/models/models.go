// Package models defines the logical events the core emits for delivery.
package models

import (
	"time"

	"github.com/google/uuid"

	"donorhub/pkg/domain"
)

// EventType names a logical event. Consumers route on it.
type EventType string

const (
	EventDonationCreated   EventType = "donation.created"
	EventDonationApproved  EventType = "donation.approved"
	EventDonationReceived  EventType = "donation.received"
	EventDonationConfirmed EventType = "donation.confirmed"
	EventDonationCancelled EventType = "donation.cancelled"
	EventCampaignStatus    EventType = "campaign.status_changed"
)

// Event is what the notification layer receives. It carries references only;
// consumers look up whatever else they need.
type Event struct {
	ID             string                `json:"id"`
	Type           EventType             `json:"type"`
	DonationID     domain.DonationID     `json:"donation_id"`
	CauseID        domain.CauseID        `json:"cause_id"`
	CampaignID     domain.CampaignID     `json:"campaign_id"`
	OrganizationID domain.OrganizationID `json:"organization_id"`
	DonorID        domain.DonorID        `json:"donor_id"`
	Status         string                `json:"status"`
	OccurredAt     time.Time             `json:"occurred_at"`
}

// Key is the partition key: events for one donation stay ordered.
func (e Event) Key() string {
	if !e.DonationID.IsNil() {
		return e.DonationID.String()
	}
	return e.CampaignID.String()
}

func NewEvent(t EventType, status string, now time.Time) Event {
	return Event{ID: uuid.NewString(), Type: t, Status: status, OccurredAt: now}
}

// RecordState tracks an outbox row through delivery.
type RecordState string

const (
	RecordPending   RecordState = "pending"
	RecordPublished RecordState = "published"
	// RecordDead marks rows that exhausted their attempts.
	RecordDead RecordState = "dead"
)

// Record is an outbox row, written in the same unit of work as the state
// change it describes and delivered after commit.
type Record struct {
	ID            string      `json:"id"`
	Event         Event       `json:"event"`
	State         RecordState `json:"state"`
	Attempts      int         `json:"attempts"`
	LastError     string      `json:"last_error,omitempty"`
	NextAttemptAt time.Time   `json:"next_attempt_at"`
	CreatedAt     time.Time   `json:"created_at"`
	PublishedAt   *time.Time  `json:"published_at,omitempty"`
}

func NewRecord(e Event) *Record {
	return &Record{
		ID:            e.ID,
		Event:         e,
		State:         RecordPending,
		NextAttemptAt: e.OccurredAt,
		CreatedAt:     e.OccurredAt,
	}
}
