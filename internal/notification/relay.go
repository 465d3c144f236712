package notification

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"donorhub/internal/notification/metrics"
	"donorhub/internal/storage"
)

const (
	defaultBatchSize    = 100
	defaultMaxAttempts  = 10
	defaultPollInterval = time.Second
	defaultBaseDelay    = time.Second
	defaultMaxDelay     = 5 * time.Minute
	publishTimeout      = 10 * time.Second
)

// Relay moves due outbox rows to a Publisher.
type Relay struct {
	outbox       storage.OutboxStore
	publisher    Publisher
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
	baseDelay    time.Duration
	maxDelay     time.Duration
	now          func() time.Time
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

type RelayOption func(*Relay)

func WithLogger(logger *slog.Logger) RelayOption {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) RelayOption {
	return func(r *Relay) {
		r.metrics = m
	}
}

func WithBatchSize(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithMaxAttempts sets how many failed deliveries a row gets before it is
// marked dead.
func WithMaxAttempts(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

func WithPollInterval(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.pollInterval = d
		}
	}
}

func WithBackoff(base, maxDelay time.Duration) RelayOption {
	return func(r *Relay) {
		if base > 0 {
			r.baseDelay = base
		}
		if maxDelay > 0 {
			r.maxDelay = maxDelay
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) RelayOption {
	return func(r *Relay) {
		if now != nil {
			r.now = now
		}
	}
}

func NewRelay(outbox storage.OutboxStore, publisher Publisher, opts ...RelayOption) *Relay {
	r := &Relay{
		outbox:       outbox,
		publisher:    publisher,
		batchSize:    defaultBatchSize,
		maxAttempts:  defaultMaxAttempts,
		pollInterval: defaultPollInterval,
		baseDelay:    defaultBaseDelay,
		maxDelay:     defaultMaxDelay,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// RelayResult counts the outcome of one batch.
type RelayResult struct {
	Published int
	Failed    int
	Dead      int
}

// Run relays batches until ctx is cancelled. A full batch is followed
// immediately by the next one; otherwise the relay waits for the poll
// interval.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		res, err := r.RelayOnce(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			r.logger.ErrorContext(ctx, "outbox relay batch failed", "error", err)
		}
		if err == nil && res.Published+res.Failed+res.Dead >= r.batchSize {
			continue
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RelayOnce delivers one batch of due rows.
func (r *Relay) RelayOnce(ctx context.Context) (RelayResult, error) {
	start := time.Now()
	defer func() { r.metrics.ObserveBatch(time.Since(start)) }()

	now := r.now()
	due, err := r.outbox.ListDue(ctx, now, r.batchSize)
	if err != nil {
		return RelayResult{}, err
	}

	var res RelayResult
	for _, rec := range due {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		eventType := string(rec.Event.Type)

		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		pubErr := r.publisher.Publish(pubCtx, rec.Event)
		cancel()

		if pubErr == nil {
			if err := r.outbox.MarkPublished(ctx, rec.ID, now); err != nil {
				return res, err
			}
			res.Published++
			r.metrics.IncrementPublished(eventType)
			r.metrics.ObserveLag(now.Sub(rec.Event.OccurredAt))
			continue
		}

		attempts := rec.Attempts + 1
		dead := attempts >= r.maxAttempts
		if err := r.outbox.MarkFailed(ctx, rec.ID, pubErr.Error(), now.Add(r.delay(attempts)), dead); err != nil {
			return res, err
		}
		r.metrics.IncrementFailed(eventType)
		if dead {
			res.Dead++
			r.metrics.IncrementDead()
			r.logger.ErrorContext(ctx, "outbox event exhausted delivery attempts",
				"event_id", rec.ID,
				"event_type", eventType,
				"attempts", attempts,
				"error", pubErr,
			)
			continue
		}
		res.Failed++
		r.logger.WarnContext(ctx, "outbox publish failed, will retry",
			"event_id", rec.ID,
			"event_type", eventType,
			"attempts", attempts,
			"error", pubErr,
		)
	}
	return res, nil
}

// delay is the wait before the given attempt number is retried: base,
// doubling each attempt, capped at max.
func (r *Relay) delay(attempts int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.baseDelay
	b.MaxInterval = r.maxDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	d := b.NextBackOff()
	for i := 1; i < attempts; i++ {
		d = b.NextBackOff()
	}
	return d
}
