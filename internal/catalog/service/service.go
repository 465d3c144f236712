// Package service orchestrates causes, campaigns and their associations.
//
// Every write runs in a storage unit of work. Writes that can change a
// total (association changes, cause target edits, cause deletion) recompute
// the affected aggregates before the unit of work commits, so callers
// observe consistent totals as soon as the call returns.
package service

import (
	"context"
	"log/slog"

	"donorhub/internal/aggregation"
	catalog "donorhub/internal/catalog/models"
	"donorhub/internal/catalog/metrics"
	"donorhub/internal/platform/middleware"
	"donorhub/internal/storage"
	"donorhub/pkg/domain"
	dErrors "donorhub/pkg/domain-errors"
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

func requireOrganization(actor domain.Actor) error {
	if !actor.IsOrganization() {
		return dErrors.New(dErrors.CodeForbidden, "only organizations can manage causes and campaigns")
	}
	return nil
}

func loadCause(ctx context.Context, stores storage.Stores, id domain.CauseID) (*catalog.Cause, error) {
	cause, err := stores.Causes().Get(ctx, id)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, dErrors.New(dErrors.CodeNotFound, "cause not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load cause")
	}
	return cause, nil
}

func loadCampaign(ctx context.Context, stores storage.Stores, id domain.CampaignID) (*catalog.Campaign, error) {
	campaign, err := stores.Campaigns().Get(ctx, id)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, dErrors.New(dErrors.CodeNotFound, "campaign not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load campaign")
	}
	return campaign, nil
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if s.logger == nil {
		return
	}
	if requestID := middleware.GetRequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}
