// Package aggregation keeps cause and campaign totals equal to a full
// recomputation over current donation state.
//
// The Engine runs inside the caller's unit of work. Callers must hold the
// cause lock of every cause they recompute; the engine takes campaign locks
// itself, which is safe because campaign keys sort after cause keys.
package aggregation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"donorhub/internal/aggregation/metrics"
	catalog "donorhub/internal/catalog/models"
	"donorhub/internal/storage"
	"donorhub/pkg/domain"
	dErrors "donorhub/pkg/domain-errors"
)

type Engine struct {
	valuation Valuation
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func NewEngine(valuation Valuation, opts ...Option) *Engine {
	e := &Engine{
		valuation: valuation,
		tracer:    otel.Tracer("donorhub/aggregation"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Valuation() Valuation {
	return e.valuation
}

// RecomputeCause rebuilds raisedAmount and donorCount of a cause from its
// RECEIVED and CONFIRMED donations and persists the result.
func (e *Engine) RecomputeCause(ctx context.Context, stores storage.Stores, causeID domain.CauseID, now time.Time) (cause *catalog.Cause, err error) {
	ctx, span := e.tracer.Start(ctx, "aggregation.RecomputeCause",
		trace.WithAttributes(attribute.String("cause_id", causeID.String())))
	start := time.Now()
	defer func() {
		e.metrics.ObserveRecompute("cause", time.Since(start), err)
		endSpan(span, err)
	}()

	cause, err = stores.Causes().Get(ctx, causeID)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, dErrors.New(dErrors.CodeNotFound, "cause not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load cause")
	}

	rows, err := stores.Donations().Rollup(ctx, storage.RollupQuery{CauseID: &causeID})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sum donations")
	}
	donors, err := stores.Donations().DistinctDonors(ctx, causeID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count donors")
	}

	raised := e.valuation.Total(rows)
	if err := domain.ValidateTotalAmount(raised); err != nil {
		return nil, err
	}
	cause.ApplyTotals(raised, donors, now)
	if err := stores.Causes().Update(ctx, cause); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store cause totals")
	}
	span.SetAttributes(attribute.String("raised_amount", cause.RaisedAmount.String()))
	return cause, nil
}

// RecomputeCampaign rebuilds a campaign's target and raised totals as the sum
// over its currently associated causes.
func (e *Engine) RecomputeCampaign(ctx context.Context, stores storage.Stores, campaignID domain.CampaignID, now time.Time) (campaign *catalog.Campaign, err error) {
	ctx, span := e.tracer.Start(ctx, "aggregation.RecomputeCampaign",
		trace.WithAttributes(attribute.String("campaign_id", campaignID.String())))
	start := time.Now()
	defer func() {
		e.metrics.ObserveRecompute("campaign", time.Since(start), err)
		endSpan(span, err)
	}()

	campaign, err = stores.Campaigns().Get(ctx, campaignID)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, dErrors.New(dErrors.CodeNotFound, "campaign not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load campaign")
	}

	assocs, err := stores.Associations().ListByCampaign(ctx, campaignID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list associations")
	}

	target, raised := decimal.Zero, decimal.Zero
	for _, a := range assocs {
		cause, err := stores.Causes().Get(ctx, a.CauseID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("failed to load associated cause %s", a.CauseID))
		}
		target = target.Add(cause.TargetAmount)
		raised = raised.Add(cause.RaisedAmount)
	}

	if err := domain.ValidateTotalAmount(target); err != nil {
		return nil, err
	}
	if err := domain.ValidateTotalAmount(raised); err != nil {
		return nil, err
	}
	campaign.ApplyTotals(target, raised, now)
	if err := stores.Campaigns().Update(ctx, campaign); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store campaign totals")
	}
	return campaign, nil
}

// PropagateCause recomputes a cause and then every campaign it belongs to.
// The caller holds the cause lock.
func (e *Engine) PropagateCause(ctx context.Context, tx storage.Tx, causeID domain.CauseID, now time.Time) (*catalog.Cause, error) {
	cause, err := e.RecomputeCause(ctx, tx, causeID, now)
	if err != nil {
		return nil, err
	}
	if err := e.RecomputeCampaignsOf(ctx, tx, causeID, now); err != nil {
		return nil, err
	}
	return cause, nil
}

// RecomputeCampaignsOf locks and recomputes every campaign the cause is
// associated with.
func (e *Engine) RecomputeCampaignsOf(ctx context.Context, tx storage.Tx, causeID domain.CauseID, now time.Time) error {
	assocs, err := tx.Associations().ListByCause(ctx, causeID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list associations")
	}
	if len(assocs) == 0 {
		return nil
	}
	keys := make([]storage.LockKey, 0, len(assocs))
	for _, a := range assocs {
		keys = append(keys, storage.CampaignLock(a.CampaignID))
	}
	if err := tx.Lock(ctx, keys...); err != nil {
		return err
	}
	for _, a := range assocs {
		if _, err := e.RecomputeCampaign(ctx, tx, a.CampaignID, now); err != nil {
			return err
		}
	}
	return nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
