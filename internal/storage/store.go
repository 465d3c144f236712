// Package storage defines the persistence contracts shared by the catalog,
// donation, aggregation and notification modules, and the unit of work that
// lets one operation touch all of them atomically.
//
// Implementations live in storage/memory and storage/postgres. Stores are
// pure I/O: every rule about what may be written lives in the services.
package storage

import (
	"context"
	"time"

	catalog "donorhub/internal/catalog/models"
	donation "donorhub/internal/donation/models"
	notification "donorhub/internal/notification/models"
	"donorhub/pkg/domain"
)

type CauseStore interface {
	Create(ctx context.Context, cause *catalog.Cause) error
	Get(ctx context.Context, id domain.CauseID) (*catalog.Cause, error)
	Update(ctx context.Context, cause *catalog.Cause) error
	// Delete removes the cause with its associations and cancelled donations.
	Delete(ctx context.Context, id domain.CauseID) error
	List(ctx context.Context, filter CauseFilter) ([]*catalog.Cause, error)
}

type CampaignStore interface {
	Create(ctx context.Context, campaign *catalog.Campaign) error
	Get(ctx context.Context, id domain.CampaignID) (*catalog.Campaign, error)
	Update(ctx context.Context, campaign *catalog.Campaign) error
	List(ctx context.Context, filter CampaignFilter) ([]*catalog.Campaign, error)
	// ListByCauses returns, per cause, every campaign the cause is associated with.
	ListByCauses(ctx context.Context, causeIDs []domain.CauseID) (map[domain.CauseID][]*catalog.Campaign, error)
}

type AssociationStore interface {
	// Create returns ErrAlreadyUsed when the pair already exists.
	Create(ctx context.Context, a *catalog.Association) error
	// Delete returns ErrNotFound when the pair does not exist.
	Delete(ctx context.Context, causeID domain.CauseID, campaignID domain.CampaignID) error
	ListByCampaign(ctx context.Context, campaignID domain.CampaignID) ([]*catalog.Association, error)
	ListByCause(ctx context.Context, causeID domain.CauseID) ([]*catalog.Association, error)
}

type DonationStore interface {
	Create(ctx context.Context, d *donation.Donation) error
	Get(ctx context.Context, id domain.DonationID) (*donation.Donation, error)
	// Update persists d only if the stored version equals expectedVersion,
	// otherwise it returns ErrConflict.
	Update(ctx context.Context, d *donation.Donation, expectedVersion int64) error
	List(ctx context.Context, filter DonationFilter) ([]*donation.Donation, error)
	// CountOpen counts non-cancelled donations on a cause.
	CountOpen(ctx context.Context, causeID domain.CauseID) (int, error)
	// DistinctDonors counts donors with at least one non-cancelled donation on a cause.
	DistinctDonors(ctx context.Context, causeID domain.CauseID) (int, error)
	// Rollup groups donations for aggregation. Rows are always split by
	// contribution type so callers can apply their own valuation.
	Rollup(ctx context.Context, q RollupQuery) ([]RollupRow, error)
}

type OutboxStore interface {
	Append(ctx context.Context, r *notification.Record) error
	// ListDue returns pending records whose next attempt is at or before now,
	// oldest first.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*notification.Record, error)
	MarkPublished(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, reason string, nextAttempt time.Time, dead bool) error
}

// Stores is the bundle of stores visible inside and outside a transaction.
type Stores interface {
	Causes() CauseStore
	Campaigns() CampaignStore
	Associations() AssociationStore
	Donations() DonationStore
	Outbox() OutboxStore
}

// Tx is a unit of work. Writes made through its stores become visible to
// others only when the surrounding RunInTx returns nil.
type Tx interface {
	Stores
	// Lock takes exclusive keyed locks held until the transaction ends.
	// Keys already held by this transaction are skipped.
	Lock(ctx context.Context, keys ...LockKey) error
}

// DB is the root persistence handle.
type DB interface {
	Stores
	// RunInTx runs fn in a transaction. fn's error rolls everything back.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Ping(ctx context.Context) error
}

type CauseFilter struct {
	OrganizationID *domain.OrganizationID
	ActiveOnly     bool
	Tag            string
	Type           domain.ContributionType
	// Query matches case-insensitively against the title.
	Query string
}

type CampaignFilter struct {
	OrganizationID *domain.OrganizationID
	Statuses       []catalog.CampaignStatus
}

type DonationFilter struct {
	DonorID        *domain.DonorID
	OrganizationID *domain.OrganizationID
	CauseID        *domain.CauseID
	Statuses       []donation.Status
	CreatedFrom    time.Time
	CreatedTo      time.Time
	Limit          int
	Offset         int
}
