package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	donation "donorhub/internal/donation/models"
	notification "donorhub/internal/notification/models"
	"donorhub/internal/storage"
	"donorhub/pkg/domain"
	dErrors "donorhub/pkg/domain-errors"
	"donorhub/pkg/requestcontext"
)

// TransitionInput carries the optional parts of a transition request.
type TransitionInput struct {
	// ExpectedVersion, when set, must equal the stored version.
	ExpectedVersion *int64
	// Evidence is required when the target is RECEIVED.
	Evidence *donation.ReceiptEvidence
}

var transitionEvents = map[donation.Status]notification.EventType{
	donation.StatusApproved:  notification.EventDonationApproved,
	donation.StatusReceived:  notification.EventDonationReceived,
	donation.StatusConfirmed: notification.EventDonationConfirmed,
	donation.StatusCancelled: notification.EventDonationCancelled,
}

// TransitionDonation moves a donation along the state machine. Donations the
// actor may not read are reported as not found, as GetDonation does. Entering
// RECEIVED issues the receipt in the same unit of work, so a failed issue
// leaves the donation APPROVED. Transitions that change what counts toward
// the cause recompute the cause and its campaigns before commit.
func (s *Service) TransitionDonation(ctx context.Context, actor domain.Actor, id domain.DonationID, target donation.Status, in TransitionInput) (updated *donation.Donation, err error) {
	ctx, span := s.tracer.Start(ctx, "donation.Transition", trace.WithAttributes(
		attribute.String("donation_id", id.String()),
		attribute.String("target", target.String()),
		attribute.String("actor_role", string(actor.Role)),
	))
	start := time.Now()
	from := "unknown"
	defer func() {
		s.metrics.ObserveTransition(from, target.String(), time.Since(start), err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		}
		span.End()
	}()

	if !target.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid donation status")
	}

	current, err := s.loadVisible(ctx, s.db, actor, id)
	if err != nil {
		return nil, err
	}
	causeID := current.CauseID

	err = s.db.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.Lock(ctx, storage.CauseLock(causeID)); err != nil {
			return err
		}
		d, err := s.loadVisible(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		from = d.Status.String()

		if err := d.CanTransition(target, actor); err != nil {
			return err
		}
		if in.ExpectedVersion != nil && *in.ExpectedVersion != d.Version {
			return dErrors.New(dErrors.CodeConflict, "donation was modified concurrently; reload and retry")
		}

		now := requestcontext.Now(ctx)
		var refs *donation.ReceiptRefs
		if target == donation.StatusReceived {
			refs, err = s.issueReceipt(ctx, tx, d, in.Evidence, now)
			if err != nil {
				return err
			}
		}

		loaded := d.Version
		if err := d.ApplyTransition(target, refs, now); err != nil {
			return err
		}
		if err := tx.Donations().Update(ctx, d, loaded); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "donation was modified concurrently; reload and retry")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update donation")
		}
		if err := appendEvent(ctx, tx, d, transitionEvents[target], now); err != nil {
			return err
		}

		switch target {
		case donation.StatusReceived:
			if _, err := s.engine.PropagateCause(ctx, tx, causeID, now); err != nil {
				return err
			}
		case donation.StatusCancelled:
			if _, err := s.engine.RecomputeCause(ctx, tx, causeID, now); err != nil {
				return err
			}
		}
		updated = d
		return nil
	})
	if err != nil {
		if s.logger != nil && dErrors.CodeOf(err) == dErrors.CodeReceiptGenerationFailed {
			s.logger.WarnContext(ctx, "receipt generation failed; donation left unchanged",
				"donation_id", id.String(),
				"error", err,
			)
		}
		return nil, err
	}

	s.logAudit(ctx, "donation_transitioned",
		"donation_id", id.String(),
		"cause_id", causeID.String(),
		"from", from,
		"to", target.String(),
		"actor_id", actor.ID(),
	)
	span.SetAttributes(attribute.Int64("version", updated.Version))
	return updated, nil
}

func (s *Service) issueReceipt(ctx context.Context, stores storage.Stores, d *donation.Donation, evidence *donation.ReceiptEvidence, now time.Time) (*donation.ReceiptRefs, error) {
	if err := evidence.Validate(); err != nil {
		return nil, err
	}
	if s.receipts == nil {
		return nil, dErrors.New(dErrors.CodeReceiptGenerationFailed, "receipt issuing is not configured")
	}
	cause, err := stores.Causes().Get(ctx, d.CauseID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load cause")
	}
	refs, err := s.receipts.Issue(ctx, d, cause, *evidence, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeReceiptGenerationFailed) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeReceiptGenerationFailed, "failed to generate receipt")
	}
	if refs.ImageRef == "" || refs.DocumentRef == "" {
		return nil, dErrors.New(dErrors.CodeReceiptGenerationFailed, "receipt issuer returned incomplete references")
	}
	return &refs, nil
}

func appendEvent(ctx context.Context, tx storage.Tx, d *donation.Donation, t notification.EventType, now time.Time) error {
	event := notification.NewEvent(t, d.Status.String(), now)
	event.DonationID = d.ID
	event.CauseID = d.CauseID
	event.OrganizationID = d.OrganizationID
	event.DonorID = d.DonorID
	if err := tx.Outbox().Append(ctx, notification.NewRecord(event)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record donation event")
	}
	return nil
}
