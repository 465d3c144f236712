package service

import (
	"context"

	catalogsvc "donorhub/internal/catalog/service"
	donation "donorhub/internal/donation/models"
	notification "donorhub/internal/notification/models"
	"donorhub/internal/storage"
	"donorhub/pkg/domain"
	dErrors "donorhub/pkg/domain-errors"
	"donorhub/pkg/requestcontext"
)

// CreateResult reports the donation and whether it was replayed from an
// earlier request with the same Idempotency-Key.
type CreateResult struct {
	Donation *donation.Donation
	Replayed bool
}

// CreateDonation records a PENDING donation from a donor to a visible cause.
// The cause must accept the contribution's type. The donor count of the
// cause is recomputed in the same unit of work.
func (s *Service) CreateDonation(ctx context.Context, actor domain.Actor, causeID domain.CauseID, contribution domain.Contribution, idempotencyKey string) (*CreateResult, error) {
	if !actor.IsDonor() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only donors can create donations")
	}

	useKey := idempotencyKey != "" && s.idempotency != nil
	locks := []storage.LockKey{storage.CauseLock(causeID)}
	if useKey {
		locks = append(locks, storage.IdempotencyLock(actor.DonorID, idempotencyKey))
	}

	var result *CreateResult
	err := s.db.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.Lock(ctx, locks...); err != nil {
			return err
		}

		if useKey {
			existing, err := s.replay(ctx, tx, actor.DonorID, idempotencyKey, causeID)
			if err != nil {
				return err
			}
			if existing != nil {
				result = &CreateResult{Donation: existing, Replayed: true}
				return nil
			}
		}

		cause, err := tx.Causes().Get(ctx, causeID)
		if err != nil {
			if storage.IsNotFound(err) {
				return dErrors.New(dErrors.CodeNotFound, "cause not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load cause")
		}
		now := requestcontext.Now(ctx)
		visible, err := catalogsvc.Visible(ctx, tx, cause, now)
		if err != nil {
			return err
		}
		if !visible {
			return dErrors.New(dErrors.CodeCauseNotVisible, "cause is not currently open for donations")
		}
		if !cause.Accepts(contribution.Type) {
			return dErrors.New(dErrors.CodeUnsupportedContributionType,
				"cause does not accept "+contribution.Type.String()+" contributions")
		}

		d, err := donation.NewDonation(domain.NewDonationID(), actor.DonorID, cause.ID, cause.OrganizationID, contribution, now)
		if err != nil {
			return err
		}
		if err := tx.Donations().Create(ctx, d); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create donation")
		}
		if err := appendEvent(ctx, tx, d, notification.EventDonationCreated, now); err != nil {
			return err
		}
		if _, err := s.engine.RecomputeCause(ctx, tx, cause.ID, now); err != nil {
			return err
		}
		if useKey {
			if err := s.idempotency.Put(ctx, actor.DonorID, idempotencyKey, d.ID); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record idempotency key")
			}
		}
		result = &CreateResult{Donation: d}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Replayed {
		s.metrics.IncrementReplay()
		return result, nil
	}
	s.logAudit(ctx, "donation_created",
		"donation_id", result.Donation.ID.String(),
		"cause_id", causeID.String(),
		"actor_id", actor.ID(),
		"contribution_type", contribution.Type.String(),
	)
	s.metrics.IncrementCreated(contribution.Type.String())
	return result, nil
}

// replay returns the donation an idempotency key already produced. A key
// whose donation never committed is treated as unused; a key already spent
// on another cause is a conflict.
func (s *Service) replay(ctx context.Context, stores storage.Stores, donorID domain.DonorID, key string, causeID domain.CauseID) (*donation.Donation, error) {
	id, ok, err := s.idempotency.Get(ctx, donorID, key)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read idempotency key")
	}
	if !ok {
		return nil, nil
	}
	d, err := stores.Donations().Get(ctx, id)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load donation")
	}
	if d.DonorID != donorID {
		return nil, nil
	}
	if d.CauseID != causeID {
		return nil, dErrors.New(dErrors.CodeConflict, "idempotency key was already used for a different cause")
	}
	return d, nil
}
