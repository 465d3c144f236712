// Package service owns the donation lifecycle: creation against visible
// causes, the status state machine, and receipt gating.
//
// Every write locks the donation's cause, so writes to one cause serialize
// with each other and with the aggregate recomputation they trigger.
package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"donorhub/internal/aggregation"
	catalog "donorhub/internal/catalog/models"
	"donorhub/internal/donation/metrics"
	donation "donorhub/internal/donation/models"
	"donorhub/internal/platform/middleware"
	"donorhub/internal/storage"
	"donorhub/pkg/domain"
)

// ReceiptIssuer stores the receipt image and renders the receipt document
// for a donation entering RECEIVED. Any error aborts the transition.
type ReceiptIssuer interface {
	Issue(ctx context.Context, d *donation.Donation, cause *catalog.Cause, evidence donation.ReceiptEvidence, now time.Time) (donation.ReceiptRefs, error)
}

// IdempotencyStore remembers which donation an Idempotency-Key produced for
// a donor.
type IdempotencyStore interface {
	Get(ctx context.Context, donorID domain.DonorID, key string) (domain.DonationID, bool, error)
	Put(ctx context.Context, donorID domain.DonorID, key string, id domain.DonationID) error
}

type Service struct {
	db          storage.DB
	engine      *aggregation.Engine
	receipts    ReceiptIssuer
	idempotency IdempotencyStore
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
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

// WithIdempotency enables Idempotency-Key replay on creation.
func WithIdempotency(store IdempotencyStore) Option {
	return func(s *Service) {
		s.idempotency = store
	}
}

func New(db storage.DB, engine *aggregation.Engine, receipts ReceiptIssuer, opts ...Option) *Service {
	s := &Service{
		db:       db,
		engine:   engine,
		receipts: receipts,
		tracer:   otel.Tracer("donorhub/donation"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
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
