package service

import (
	"context"
	"errors"

	catalog "donorhub/internal/catalog/models"
	"donorhub/internal/storage"
	"donorhub/pkg/domain"
	dErrors "donorhub/pkg/domain-errors"
	"donorhub/pkg/requestcontext"
)

// Associate links a cause to a campaign and recomputes the campaign's
// totals in the same unit of work.
func (s *Service) Associate(ctx context.Context, actor domain.Actor, causeID domain.CauseID, campaignID domain.CampaignID) (*catalog.Campaign, error) {
	if err := requireOrganization(actor); err != nil {
		return nil, err
	}

	var updated *catalog.Campaign
	err := s.db.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.Lock(ctx, storage.CauseLock(causeID), storage.CampaignLock(campaignID)); err != nil {
			return err
		}
		cause, err := loadCause(ctx, tx, causeID)
		if err != nil {
			return err
		}
		campaign, err := loadCampaign(ctx, tx, campaignID)
		if err != nil {
			return err
		}
		if !cause.OwnedBy(actor.OrganizationID) {
			return dErrors.New(dErrors.CodeForbidden, "cause belongs to another organization")
		}

		now := requestcontext.Now(ctx)
		assoc, err := catalog.NewAssociation(cause, campaign, now)
		if err != nil {
			return err
		}
		if err := tx.Associations().Create(ctx, assoc); err != nil {
			if errors.Is(err, storage.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeConflict, "cause is already associated with the campaign")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to associate cause")
		}
		updated, err = s.engine.RecomputeCampaign(ctx, tx, campaignID, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "cause_associated",
		"cause_id", causeID.String(),
		"campaign_id", campaignID.String(),
		"actor_id", actor.ID(),
	)
	s.metrics.IncrementAssociation("associate")
	return updated, nil
}

// Dissociate removes a link and recomputes the campaign's totals in the same
// unit of work. Existing donations keep their cause.
func (s *Service) Dissociate(ctx context.Context, actor domain.Actor, causeID domain.CauseID, campaignID domain.CampaignID) (*catalog.Campaign, error) {
	if err := requireOrganization(actor); err != nil {
		return nil, err
	}

	var updated *catalog.Campaign
	err := s.db.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.Lock(ctx, storage.CauseLock(causeID), storage.CampaignLock(campaignID)); err != nil {
			return err
		}
		cause, err := loadCause(ctx, tx, causeID)
		if err != nil {
			return err
		}
		if !cause.OwnedBy(actor.OrganizationID) {
			return dErrors.New(dErrors.CodeForbidden, "cause belongs to another organization")
		}
		if err := tx.Associations().Delete(ctx, causeID, campaignID); err != nil {
			if storage.IsNotFound(err) {
				return dErrors.New(dErrors.CodeNotFound, "cause is not associated with the campaign")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to dissociate cause")
		}
		updated, err = s.engine.RecomputeCampaign(ctx, tx, campaignID, requestcontext.Now(ctx))
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "cause_dissociated",
		"cause_id", causeID.String(),
		"campaign_id", campaignID.String(),
		"actor_id", actor.ID(),
	)
	s.metrics.IncrementAssociation("dissociate")
	return updated, nil
}
