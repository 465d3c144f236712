package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"donorhub/internal/aggregation"
	aggmetrics "donorhub/internal/aggregation/metrics"
	donationsvc "donorhub/internal/donation/service"
	"donorhub/internal/idempotency"
	"donorhub/internal/notification"
	notifymetrics "donorhub/internal/notification/metrics"
	"donorhub/internal/platform/config"
	"donorhub/internal/platform/kafka"
	"donorhub/internal/platform/logger"
	"donorhub/internal/platform/metrics"
	"donorhub/internal/platform/postgres"
	"donorhub/internal/platform/redis"
	"donorhub/internal/receipt"
	receiptmetrics "donorhub/internal/receipt/metrics"
	"donorhub/internal/storage"
	"donorhub/internal/storage/memory"
	pgstore "donorhub/internal/storage/postgres"
	"donorhub/pkg/platform/circuit"
)

// app holds the process-wide dependencies shared by every command.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	db      storage.DB
	redis   *redis.Client
	kafka   *kgo.Client
	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{
		cfg:     cfg,
		logger:  logger.New(cfg.Log.Level, cfg.Log.Format),
		metrics: metrics.New(),
	}
	if err := a.openStorage(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) openStorage(ctx context.Context) error {
	switch a.cfg.Storage.Driver {
	case "postgres":
		sqlDB, err := postgres.Open(ctx, a.cfg.Postgres)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, sqlDB.Close)
		a.db = pgstore.New(sqlDB, pgstore.WithTxTimeout(a.cfg.Storage.TxTimeout))
	default:
		a.logger.WarnContext(ctx, "using in-memory storage; data is lost on restart")
		a.db = memory.New(memory.WithTxTimeout(a.cfg.Storage.TxTimeout))
	}
	return nil
}

func (a *app) engine() (*aggregation.Engine, *aggmetrics.Metrics, error) {
	table, err := a.cfg.ValuationTable()
	if err != nil {
		return nil, nil, err
	}
	m := aggmetrics.New(a.metrics.Registry)
	return aggregation.NewEngine(aggregation.Valuation(table),
		aggregation.WithLogger(a.logger),
		aggregation.WithMetrics(m),
	), m, nil
}

// idempotencyStore prefers Redis and falls back to process memory when no
// URL is configured.
func (a *app) idempotencyStore(ctx context.Context) (donationsvc.IdempotencyStore, error) {
	client, err := redis.New(ctx, a.cfg.Redis)
	if err != nil {
		return nil, err
	}
	if client == nil {
		a.logger.WarnContext(ctx, "redis not configured; idempotency keys are per instance")
		return idempotency.NewMemoryStore(a.cfg.Idempotency.TTL), nil
	}
	a.redis = client
	a.closers = append(a.closers, client.Close)
	return idempotency.NewRedisStore(client.Client, a.cfg.Idempotency.TTL), nil
}

func (a *app) blobStore(ctx context.Context) (receipt.BlobStore, error) {
	rc := a.cfg.Receipt
	switch rc.Backend {
	case "s3":
		return receipt.NewS3Store(ctx, rc.Region, rc.Bucket)
	case "gcs":
		store, err := receipt.NewGCSStore(ctx, rc.Bucket)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	default:
		return receipt.NewMemoryStore(), nil
	}
}

func (a *app) receiptIssuer(ctx context.Context) (*receipt.Issuer, error) {
	blobs, err := a.blobStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("receipt storage: %w", err)
	}
	renderer, err := receipt.NewRenderer()
	if err != nil {
		return nil, err
	}
	rc := a.cfg.Receipt
	return receipt.NewIssuer(blobs, renderer,
		receipt.WithPrefix(rc.Prefix),
		receipt.WithIssuerName(rc.Issuer),
		receipt.WithTimeout(rc.RenderTimeout),
		receipt.WithBreaker(circuit.New("receipt-storage",
			circuit.WithFailureThreshold(rc.FailureThreshold),
			circuit.WithOpenTimeout(rc.OpenTimeout),
		)),
		receipt.WithLogger(a.logger),
		receipt.WithMetrics(receiptmetrics.New(a.metrics.Registry)),
	), nil
}

// publisher delivers to Kafka when enabled and always mirrors events to the
// log through a buffered async sink.
func (a *app) publisher(ctx context.Context, m *notifymetrics.Metrics) (notification.Publisher, error) {
	logSink := notification.NewAsync(notification.NewLogPublisher(a.logger), 1024, a.logger, m)
	a.closers = append(a.closers, func() error {
		logSink.Close()
		return nil
	})
	if !a.cfg.Kafka.Enabled {
		return logSink, nil
	}

	client, err := kafka.NewClient(a.cfg.Kafka)
	if err != nil {
		return nil, err
	}
	a.kafka = client
	a.closers = append(a.closers, func() error {
		client.Close()
		return nil
	})
	if err := kafka.EnsureTopic(ctx, client, a.cfg.Kafka.Topic, 3, 1); err != nil {
		a.logger.WarnContext(ctx, "could not ensure kafka topic", "topic", a.cfg.Kafka.Topic, "error", err)
	}
	return notification.Multi{notification.NewKafkaPublisher(client, a.cfg.Kafka.Topic), logSink}, nil
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
