package service

import (
	"context"
	"time"

	catalog "donorhub/internal/catalog/models"
	notification "donorhub/internal/notification/models"
	"donorhub/internal/storage"
	"donorhub/pkg/domain"
	dErrors "donorhub/pkg/domain-errors"
	"donorhub/pkg/requestcontext"
)

// Transition triggers recorded on campaign status metrics.
const (
	triggerManual    = "manual"
	triggerScheduler = "scheduler"
)

// CreateCampaign registers a draft campaign. When no owners are given the
// acting organization owns it alone; otherwise the actor must be among them.
func (s *Service) CreateCampaign(ctx context.Context, actor domain.Actor, details catalog.CampaignDetails) (*catalog.Campaign, error) {
	if err := requireOrganization(actor); err != nil {
		return nil, err
	}
	if len(details.OrganizationIDs) == 0 {
		details.OrganizationIDs = []domain.OrganizationID{actor.OrganizationID}
	}
	campaign, err := catalog.NewCampaign(domain.NewCampaignID(), details, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if !campaign.OwnedBy(actor.OrganizationID) {
		return nil, dErrors.New(dErrors.CodeForbidden, "campaign owners must include the acting organization")
	}
	if err := s.db.Campaigns().Create(ctx, campaign); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create campaign")
	}
	s.logAudit(ctx, "campaign_created",
		"campaign_id", campaign.ID.String(),
		"actor_id", actor.ID(),
	)
	s.metrics.IncrementCampaignCreated()
	return campaign, nil
}

func (s *Service) GetCampaign(ctx context.Context, id domain.CampaignID) (*catalog.Campaign, error) {
	return loadCampaign(ctx, s.db, id)
}

// ListCampaigns returns campaigns owned by the acting organization, or every
// campaign for the system actor.
func (s *Service) ListCampaigns(ctx context.Context, actor domain.Actor, statuses []catalog.CampaignStatus) ([]*catalog.Campaign, error) {
	filter := storage.CampaignFilter{Statuses: statuses}
	switch {
	case actor.IsSystem():
	case actor.IsOrganization():
		org := actor.OrganizationID
		filter.OrganizationID = &org
	default:
		return nil, dErrors.New(dErrors.CodeForbidden, "only organizations can list campaigns")
	}
	campaigns, err := s.db.Campaigns().List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list campaigns")
	}
	return campaigns, nil
}

// UpdateCampaignWindow moves a campaign's window. The window is frozen once
// the campaign has started.
func (s *Service) UpdateCampaignWindow(ctx context.Context, actor domain.Actor, id domain.CampaignID, start, end time.Time) (*catalog.Campaign, error) {
	if err := requireOrganization(actor); err != nil {
		return nil, err
	}

	var updated *catalog.Campaign
	err := s.db.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.Lock(ctx, storage.CampaignLock(id)); err != nil {
			return err
		}
		campaign, err := loadCampaign(ctx, tx, id)
		if err != nil {
			return err
		}
		if !campaign.OwnedBy(actor.OrganizationID) {
			return dErrors.New(dErrors.CodeForbidden, "campaign belongs to other organizations")
		}
		now := requestcontext.Now(ctx)
		if err := campaign.CanReschedule(start, end, now); err != nil {
			return err
		}
		campaign.ApplyReschedule(start, end, now)
		if err := tx.Campaigns().Update(ctx, campaign); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update campaign")
		}
		updated = campaign
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "campaign_rescheduled",
		"campaign_id", id.String(),
		"actor_id", actor.ID(),
	)
	return updated, nil
}

// SetCampaignStatus moves a campaign through its lifecycle. Owners and the
// system actor may do so. Cause visibility follows from the new status
// without any per-cause write.
func (s *Service) SetCampaignStatus(ctx context.Context, actor domain.Actor, id domain.CampaignID, target catalog.CampaignStatus) (*catalog.Campaign, error) {
	if !actor.IsOrganization() && !actor.IsSystem() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only organizations can change campaign status")
	}
	if !target.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid campaign status")
	}
	trigger := triggerManual
	if actor.IsSystem() {
		trigger = triggerScheduler
	}

	var updated *catalog.Campaign
	var from catalog.CampaignStatus
	err := s.db.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.Lock(ctx, storage.CampaignLock(id)); err != nil {
			return err
		}
		campaign, err := loadCampaign(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := campaign.CanTransitionTo(target); err != nil {
			return err
		}
		if !actor.IsSystem() && !campaign.OwnedBy(actor.OrganizationID) {
			return dErrors.New(dErrors.CodeForbidden, "campaign belongs to other organizations")
		}

		now := requestcontext.Now(ctx)
		from = campaign.Status
		campaign.ApplyStatus(target, now)
		if err := tx.Campaigns().Update(ctx, campaign); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update campaign status")
		}

		event := notification.NewEvent(notification.EventCampaignStatus, target.String(), now)
		event.CampaignID = campaign.ID
		if len(campaign.OrganizationIDs) > 0 {
			event.OrganizationID = campaign.OrganizationIDs[0]
		}
		if err := tx.Outbox().Append(ctx, notification.NewRecord(event)); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record campaign event")
		}
		updated = campaign
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "campaign_status_changed",
		"campaign_id", id.String(),
		"from", from.String(),
		"to", target.String(),
		"trigger", trigger,
		"actor_id", actor.ID(),
	)
	s.metrics.IncrementCampaignTransition(target.String(), trigger)
	return updated, nil
}

// CompleteEndedCampaigns completes active and paused campaigns whose window
// has closed. It returns how many were completed. A campaign that fails is
// logged and skipped so one bad row does not stall the sweep.
func (s *Service) CompleteEndedCampaigns(ctx context.Context) (int, error) {
	now := requestcontext.Now(ctx)
	campaigns, err := s.db.Campaigns().List(ctx, storage.CampaignFilter{
		Statuses: []catalog.CampaignStatus{catalog.CampaignStatusActive, catalog.CampaignStatusPaused},
	})
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list campaigns")
	}
	completed := 0
	for _, c := range campaigns {
		if !c.HasEnded(now) {
			continue
		}
		applied, err := s.sweepStatus(ctx, c.ID, catalog.CampaignStatusCompleted)
		if err != nil {
			return completed, err
		}
		if applied {
			completed++
		}
	}
	return completed, nil
}

// StartScheduledCampaigns activates auto-start drafts whose window has
// opened and not yet closed.
func (s *Service) StartScheduledCampaigns(ctx context.Context) (int, error) {
	now := requestcontext.Now(ctx)
	campaigns, err := s.db.Campaigns().List(ctx, storage.CampaignFilter{
		Statuses: []catalog.CampaignStatus{catalog.CampaignStatusDraft},
	})
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list campaigns")
	}
	started := 0
	for _, c := range campaigns {
		if !c.AutoStart || !c.InWindow(now) {
			continue
		}
		applied, err := s.sweepStatus(ctx, c.ID, catalog.CampaignStatusActive)
		if err != nil {
			return started, err
		}
		if applied {
			started++
		}
	}
	return started, nil
}

// sweepStatus applies a scheduler transition. Illegal transitions mean a
// concurrent writer got there first and are not failures.
func (s *Service) sweepStatus(ctx context.Context, id domain.CampaignID, target catalog.CampaignStatus) (bool, error) {
	_, err := s.SetCampaignStatus(ctx, domain.SystemActor(), id, target)
	if err == nil {
		return true, nil
	}
	if dErrors.HasCode(err, dErrors.CodeIllegalTransition) {
		return false, nil
	}
	if ctx.Err() != nil {
		return false, err
	}
	if s.logger != nil {
		s.logger.WarnContext(ctx, "scheduled campaign transition failed",
			"campaign_id", id.String(),
			"target", target.String(),
			"error", err,
		)
	}
	return false, nil
}
