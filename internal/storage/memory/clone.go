package memory

import (
	"slices"
	"time"

	catalog "donorhub/internal/catalog/models"
	donation "donorhub/internal/donation/models"
	notification "donorhub/internal/notification/models"
)

func cloneCause(c *catalog.Cause) *catalog.Cause {
	out := *c
	out.Tags = slices.Clone(c.Tags)
	out.AcceptedTypes = slices.Clone(c.AcceptedTypes)
	return &out
}

func cloneCampaign(c *catalog.Campaign) *catalog.Campaign {
	out := *c
	out.OrganizationIDs = slices.Clone(c.OrganizationIDs)
	out.AcceptedTypes = slices.Clone(c.AcceptedTypes)
	return &out
}

func cloneAssociation(a *catalog.Association) *catalog.Association {
	out := *a
	return &out
}

func cloneDonation(d *donation.Donation) *donation.Donation {
	out := *d
	out.ApprovedAt = cloneTime(d.ApprovedAt)
	out.ReceivedAt = cloneTime(d.ReceivedAt)
	out.ConfirmedAt = cloneTime(d.ConfirmedAt)
	out.CancelledAt = cloneTime(d.CancelledAt)
	return &out
}

func cloneRecord(r *notification.Record) *notification.Record {
	out := *r
	out.PublishedAt = cloneTime(r.PublishedAt)
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
