package service

import (
	"context"

	catalog "donorhub/internal/catalog/models"
	"donorhub/internal/storage"
	"donorhub/pkg/domain"
	dErrors "donorhub/pkg/domain-errors"
	"donorhub/pkg/requestcontext"
)

// CreateCause registers a cause owned by the acting organization. New
// causes have zero totals and are not visible until associated with a live
// campaign.
func (s *Service) CreateCause(ctx context.Context, actor domain.Actor, details catalog.CauseDetails) (*catalog.Cause, error) {
	if err := requireOrganization(actor); err != nil {
		return nil, err
	}
	cause, err := catalog.NewCause(domain.NewCauseID(), actor.OrganizationID, details, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.db.Causes().Create(ctx, cause); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create cause")
	}
	s.logAudit(ctx, "cause_created",
		"cause_id", cause.ID.String(),
		"actor_id", actor.ID(),
	)
	s.metrics.IncrementCauseCreated()
	return cause, nil
}

// GetCause returns a cause to its owner, or to anyone else while it is
// visible.
func (s *Service) GetCause(ctx context.Context, actor domain.Actor, id domain.CauseID) (*catalog.Cause, error) {
	cause, err := loadCause(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if actor.IsSystem() || (actor.IsOrganization() && cause.OwnedBy(actor.OrganizationID)) {
		return cause, nil
	}
	visible, err := Visible(ctx, s.db, cause, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, dErrors.New(dErrors.CodeCauseNotVisible, "cause is not currently open for donations")
	}
	return cause, nil
}

// UpdateCause replaces a cause's editable details. Accepted types may not
// shrink so far that an existing association loses its common type, and a
// target change flows into the totals of every associated campaign.
func (s *Service) UpdateCause(ctx context.Context, actor domain.Actor, id domain.CauseID, details catalog.CauseDetails) (*catalog.Cause, error) {
	if err := requireOrganization(actor); err != nil {
		return nil, err
	}

	var updated *catalog.Cause
	err := s.db.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.Lock(ctx, storage.CauseLock(id)); err != nil {
			return err
		}
		cause, err := loadCause(ctx, tx, id)
		if err != nil {
			return err
		}
		if !cause.OwnedBy(actor.OrganizationID) {
			return dErrors.New(dErrors.CodeForbidden, "cause belongs to another organization")
		}

		now := requestcontext.Now(ctx)
		if err := cause.ApplyDetails(details, now); err != nil {
			return err
		}

		byCause, err := tx.Campaigns().ListByCauses(ctx, []domain.CauseID{id})
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load campaigns")
		}
		for _, campaign := range byCause[id] {
			if !cause.AcceptedTypes.Intersects(campaign.AcceptedTypes) {
				return dErrors.New(dErrors.CodeInvalidAssociation,
					"accepted types would no longer overlap campaign "+campaign.ID.String())
			}
		}

		if err := tx.Causes().Update(ctx, cause); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update cause")
		}
		if err := s.engine.RecomputeCampaignsOf(ctx, tx, id, now); err != nil {
			return err
		}
		updated = cause
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "cause_updated",
		"cause_id", id.String(),
		"actor_id", actor.ID(),
	)
	return updated, nil
}

// DeactivateCause hides a cause from donors permanently without touching
// its donations or totals.
func (s *Service) DeactivateCause(ctx context.Context, actor domain.Actor, id domain.CauseID) (*catalog.Cause, error) {
	if err := requireOrganization(actor); err != nil {
		return nil, err
	}

	var updated *catalog.Cause
	err := s.db.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.Lock(ctx, storage.CauseLock(id)); err != nil {
			return err
		}
		cause, err := loadCause(ctx, tx, id)
		if err != nil {
			return err
		}
		if !cause.OwnedBy(actor.OrganizationID) {
			return dErrors.New(dErrors.CodeForbidden, "cause belongs to another organization")
		}
		if err := cause.CanDeactivate(); err != nil {
			return err
		}
		cause.ApplyDeactivation(requestcontext.Now(ctx))
		if err := tx.Causes().Update(ctx, cause); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate cause")
		}
		updated = cause
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "cause_deactivated",
		"cause_id", id.String(),
		"actor_id", actor.ID(),
	)
	return updated, nil
}

// DeleteCause removes a cause that has no open donations. Its associations
// and cancelled donations go with it, and the campaigns it belonged to are
// recomputed before commit.
func (s *Service) DeleteCause(ctx context.Context, actor domain.Actor, id domain.CauseID) error {
	if err := requireOrganization(actor); err != nil {
		return err
	}

	err := s.db.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.Lock(ctx, storage.CauseLock(id)); err != nil {
			return err
		}
		cause, err := loadCause(ctx, tx, id)
		if err != nil {
			return err
		}
		if !cause.OwnedBy(actor.OrganizationID) {
			return dErrors.New(dErrors.CodeForbidden, "cause belongs to another organization")
		}

		open, err := tx.Donations().CountOpen(ctx, id)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count donations")
		}
		if open > 0 {
			return dErrors.New(dErrors.CodeInvariantViolation,
				"cause has donations that are not cancelled; deactivate it instead")
		}

		assocs, err := tx.Associations().ListByCause(ctx, id)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list associations")
		}
		keys := make([]storage.LockKey, 0, len(assocs))
		for _, a := range assocs {
			keys = append(keys, storage.CampaignLock(a.CampaignID))
		}
		if err := tx.Lock(ctx, keys...); err != nil {
			return err
		}

		if err := tx.Causes().Delete(ctx, id); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete cause")
		}
		now := requestcontext.Now(ctx)
		for _, a := range assocs {
			if _, err := s.engine.RecomputeCampaign(ctx, tx, a.CampaignID, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logAudit(ctx, "cause_deleted",
		"cause_id", id.String(),
		"actor_id", actor.ID(),
	)
	return nil
}

// ListOrganizationCauses returns every cause the acting organization owns,
// visible or not.
func (s *Service) ListOrganizationCauses(ctx context.Context, actor domain.Actor) ([]*catalog.Cause, error) {
	if err := requireOrganization(actor); err != nil {
		return nil, err
	}
	org := actor.OrganizationID
	causes, err := s.db.Causes().List(ctx, storage.CauseFilter{OrganizationID: &org})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list causes")
	}
	return causes, nil
}
