// Package service answers totals and analytics queries and drives manual
// recomputation.
package service

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"donorhub/internal/aggregation"
	"donorhub/internal/aggregation/metrics"
	"donorhub/internal/aggregation/models"
	"donorhub/internal/platform/middleware"
	"donorhub/internal/storage"
	"donorhub/pkg/domain"
	dErrors "donorhub/pkg/domain-errors"
	"donorhub/pkg/requestcontext"
)

const (
	defaultMonthsBack = 12
	maxMonthsBack     = 60
	defaultTopLimit   = 10
	maxTopLimit       = 100
)

type Service struct {
	db      storage.DB
	engine  *aggregation.Engine
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(db storage.DB, engine *aggregation.Engine, opts ...Option) *Service {
	s := &Service{db: db, engine: engine}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetCauseTotals reads the stored totals of a cause. They are kept equal to a
// full recomputation by every write that can change them.
func (s *Service) GetCauseTotals(ctx context.Context, id domain.CauseID) (models.Totals, error) {
	cause, err := s.db.Causes().Get(ctx, id)
	if err != nil {
		if storage.IsNotFound(err) {
			return models.Totals{}, dErrors.New(dErrors.CodeNotFound, "cause not found")
		}
		return models.Totals{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load cause")
	}
	return models.NewTotals(cause.TargetAmount, cause.RaisedAmount, cause.DonorCount), nil
}

func (s *Service) GetCampaignTotals(ctx context.Context, id domain.CampaignID) (models.Totals, error) {
	campaign, err := s.db.Campaigns().Get(ctx, id)
	if err != nil {
		if storage.IsNotFound(err) {
			return models.Totals{}, dErrors.New(dErrors.CodeNotFound, "campaign not found")
		}
		return models.Totals{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load campaign")
	}
	return models.NewTotals(campaign.TargetAmount, campaign.RaisedAmount, 0), nil
}

// authorize pins an organization actor's scope to its own organization.
// Donors have no analytics access.
func authorize(actor domain.Actor, scope models.Scope) (models.Scope, error) {
	switch {
	case actor.IsSystem():
		return scope, nil
	case actor.IsOrganization():
		if scope.OrganizationID != nil && *scope.OrganizationID != actor.OrganizationID {
			return scope, dErrors.New(dErrors.CodeForbidden, "analytics are limited to your organization")
		}
		org := actor.OrganizationID
		scope.OrganizationID = &org
		return scope, nil
	}
	return scope, dErrors.New(dErrors.CodeForbidden, "analytics are available to organizations only")
}

func rollupQuery(scope models.Scope) storage.RollupQuery {
	return storage.RollupQuery{
		CauseID:        scope.CauseID,
		OrganizationID: scope.OrganizationID,
		Type:           scope.Type,
	}
}

// MonthlyTrend buckets counted donations by calendar month of receipt,
// oldest first, covering monthsBack months up to and including now's month.
// Months without activity are present with zero count and total.
func (s *Service) MonthlyTrend(ctx context.Context, actor domain.Actor, scope models.Scope, monthsBack int) ([]models.TrendBucket, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveQuery("trend", time.Since(start)) }()

	scope, err := authorize(actor, scope)
	if err != nil {
		return nil, err
	}
	if monthsBack == 0 {
		monthsBack = defaultMonthsBack
	}
	if monthsBack < 1 || monthsBack > maxMonthsBack {
		return nil, dErrors.New(dErrors.CodeValidation, "months must be between 1 and 60")
	}

	current := storage.MonthStart(requestcontext.Now(ctx))
	first := current.AddDate(0, -(monthsBack - 1), 0)

	q := rollupQuery(scope)
	q.ReceivedFrom = first
	q.ReceivedTo = current.AddDate(0, 1, 0)
	q.GroupBy.Month = true
	rows, err := s.db.Donations().Rollup(ctx, q)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load trend")
	}

	buckets := make([]models.TrendBucket, monthsBack)
	index := make(map[time.Time]int, monthsBack)
	for i := range buckets {
		month := first.AddDate(0, i, 0)
		buckets[i] = models.TrendBucket{Year: month.Year(), Month: int(month.Month()), Total: decimal.Zero}
		index[month] = i
	}
	valuation := s.engine.Valuation()
	for _, row := range rows {
		i, ok := index[row.Month]
		if !ok {
			continue
		}
		buckets[i].Count += row.Count
		buckets[i].Total = buckets[i].Total.Add(valuation.Value(row))
	}
	for i := range buckets {
		buckets[i].Total = buckets[i].Total.Round(2)
	}
	return buckets, nil
}

// TypeBreakdown groups counted donations by contribution type, in canonical
// type order.
func (s *Service) TypeBreakdown(ctx context.Context, actor domain.Actor, scope models.Scope) ([]models.TypeTotal, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveQuery("breakdown", time.Since(start)) }()

	scope, err := authorize(actor, scope)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Donations().Rollup(ctx, rollupQuery(scope))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load breakdown")
	}

	valuation := s.engine.Valuation()
	byType := make(map[domain.ContributionType]*models.TypeTotal)
	for _, row := range rows {
		t, ok := byType[row.Type]
		if !ok {
			t = &models.TypeTotal{Type: row.Type, Quantity: decimal.Zero, Total: decimal.Zero}
			byType[row.Type] = t
		}
		t.Count += row.Count
		t.Quantity = t.Quantity.Add(row.Quantity)
		t.Total = t.Total.Add(valuation.Value(row))
	}

	types := make(domain.ContributionTypes, 0, len(byType))
	for typ := range byType {
		types = append(types, typ)
	}
	out := make([]models.TypeTotal, 0, len(byType))
	for _, typ := range types.Normalize() {
		t := byType[typ]
		t.Total = t.Total.Round(2)
		out = append(out, *t)
	}
	return out, nil
}

// TopEntities ranks causes or organizations by donation count or valued
// total, descending, with ties broken by ascending id.
func (s *Service) TopEntities(ctx context.Context, actor domain.Actor, scope models.Scope, entity models.Entity, metric models.Metric, limit int) ([]models.RankedEntity, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveQuery("top", time.Since(start)) }()

	scope, err := authorize(actor, scope)
	if err != nil {
		return nil, err
	}
	if limit == 0 {
		limit = defaultTopLimit
	}
	if limit < 1 || limit > maxTopLimit {
		return nil, dErrors.New(dErrors.CodeValidation, "limit must be between 1 and 100")
	}

	q := rollupQuery(scope)
	switch entity {
	case models.EntityCause:
		q.GroupBy.Cause = true
	case models.EntityOrganization:
		q.GroupBy.Organization = true
	default:
		return nil, dErrors.New(dErrors.CodeValidation, "entity must be cause or organization")
	}
	if metric != models.MetricCount && metric != models.MetricTotal {
		return nil, dErrors.New(dErrors.CodeValidation, "metric must be count or total")
	}

	rows, err := s.db.Donations().Rollup(ctx, q)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load ranking")
	}

	valuation := s.engine.Valuation()
	byID := make(map[string]*models.RankedEntity)
	for _, row := range rows {
		id := row.CauseID.String()
		if entity == models.EntityOrganization {
			id = row.OrganizationID.String()
		}
		r, ok := byID[id]
		if !ok {
			r = &models.RankedEntity{Entity: entity, ID: id, Total: decimal.Zero}
			byID[id] = r
		}
		r.Count += row.Count
		r.Total = r.Total.Add(valuation.Value(row))
	}

	out := make([]models.RankedEntity, 0, len(byID))
	for _, r := range byID {
		r.Total = r.Total.Round(2)
		out = append(out, *r)
	}
	slices.SortStableFunc(out, func(a, b models.RankedEntity) int {
		var c int
		if metric == models.MetricCount {
			c = cmp.Compare(b.Count, a.Count)
		} else {
			c = b.Total.Cmp(a.Total)
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Dashboard runs the breakdown, trend and cause ranking concurrently.
func (s *Service) Dashboard(ctx context.Context, actor domain.Actor, scope models.Scope, monthsBack int) (*models.Dashboard, error) {
	scope, err := authorize(actor, scope)
	if err != nil {
		return nil, err
	}

	out := &models.Dashboard{GeneratedAt: requestcontext.Now(ctx), Total: decimal.Zero}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		breakdown, err := s.TypeBreakdown(gctx, actor, scope)
		out.Breakdown = breakdown
		return err
	})
	g.Go(func() error {
		trend, err := s.MonthlyTrend(gctx, actor, scope, monthsBack)
		out.Trend = trend
		return err
	})
	g.Go(func() error {
		top, err := s.TopEntities(gctx, actor, scope, models.EntityCause, models.MetricTotal, defaultTopLimit)
		out.TopCauses = top
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, t := range out.Breakdown {
		out.Count += t.Count
		out.Total = out.Total.Add(t.Total)
	}
	return out, nil
}

// RecomputeReport summarizes a RecomputeAll run.
type RecomputeReport struct {
	Causes    int `json:"causes"`
	Campaigns int `json:"campaigns"`
}

// RecomputeAll rebuilds every cause total and then every campaign total,
// each in its own unit of work. Used for manual correction.
func (s *Service) RecomputeAll(ctx context.Context) (RecomputeReport, error) {
	var report RecomputeReport

	causes, err := s.db.Causes().List(ctx, storage.CauseFilter{})
	if err != nil {
		return report, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list causes")
	}
	for _, c := range causes {
		err := s.db.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			if err := tx.Lock(ctx, storage.CauseLock(c.ID)); err != nil {
				return err
			}
			_, err := s.engine.RecomputeCause(ctx, tx, c.ID, requestcontext.Now(ctx))
			return err
		})
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeNotFound) {
				continue
			}
			return report, err
		}
		report.Causes++
	}

	campaigns, err := s.db.Campaigns().List(ctx, storage.CampaignFilter{})
	if err != nil {
		return report, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list campaigns")
	}
	for _, k := range campaigns {
		err := s.db.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			if err := tx.Lock(ctx, storage.CampaignLock(k.ID)); err != nil {
				return err
			}
			_, err := s.engine.RecomputeCampaign(ctx, tx, k.ID, requestcontext.Now(ctx))
			return err
		})
		if err != nil {
			return report, err
		}
		report.Campaigns++
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "totals recomputed",
			"causes", report.Causes,
			"campaigns", report.Campaigns,
			"request_id", middleware.GetRequestID(ctx),
		)
	}
	return report, nil
}
