// Package notification delivers outbox events after commit.
//
// Services append events to the outbox inside their unit of work. The Relay
// reads due rows, hands them to a Publisher and records the outcome; a failed
// publish is retried with backoff and never affects the state change that
// produced the event.
package notification

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"donorhub/internal/notification/metrics"
	"donorhub/internal/notification/models"
)

// Publisher delivers one event. Implementations must be safe for concurrent
// use.
type Publisher interface {
	Publish(ctx context.Context, event models.Event) error
}

// MemoryPublisher keeps delivered events in process, for tests and local runs.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []models.Event
	fail   error
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(ctx context.Context, event models.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.events = append(p.events, event)
	return nil
}

// FailWith makes every following Publish return err until called with nil.
func (p *MemoryPublisher) FailWith(err error) {
	p.mu.Lock()
	p.fail = err
	p.mu.Unlock()
}

// Events returns a copy of everything published so far.
func (p *MemoryPublisher) Events() []models.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.Event, len(p.events))
	copy(out, p.events)
	return out
}

// LogPublisher writes events to the structured log.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event models.Event) error {
	p.logger.InfoContext(ctx, "notification",
		"event_id", event.ID,
		"event_type", string(event.Type),
		"status", event.Status,
		"donation_id", event.DonationID.String(),
		"campaign_id", event.CampaignID.String(),
		"occurred_at", event.OccurredAt,
	)
	return nil
}

// Multi publishes to every publisher in order and joins their errors. A row
// counts as delivered only when all of them succeed.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event models.Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Async hands events to a background goroutine and never reports failure.
// Use it for best-effort sinks; when the buffer is full the event is dropped.
type Async struct {
	next    Publisher
	queue   chan models.Event
	logger  *slog.Logger
	metrics *metrics.Metrics
	wg      sync.WaitGroup
	once    sync.Once
}

func NewAsync(next Publisher, buffer int, logger *slog.Logger, m *metrics.Metrics) *Async {
	if buffer <= 0 {
		buffer = 1024
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &Async{
		next:    next,
		queue:   make(chan models.Event, buffer),
		logger:  logger,
		metrics: m,
	}
	a.wg.Add(1)
	go a.drain()
	return a
}

func (a *Async) Publish(_ context.Context, event models.Event) error {
	select {
	case a.queue <- event:
	default:
		a.metrics.IncrementAsyncDropped()
		a.logger.Warn("async notification buffer full, dropping event",
			"event_id", event.ID,
			"event_type", string(event.Type),
		)
	}
	return nil
}

func (a *Async) drain() {
	defer a.wg.Done()
	for event := range a.queue {
		if err := a.next.Publish(context.Background(), event); err != nil {
			a.logger.Warn("async notification publish failed",
				"event_id", event.ID,
				"error", err,
			)
		}
	}
}

// Close stops accepting events and waits for the buffer to drain. Publish
// must not be called after Close.
func (a *Async) Close() {
	a.once.Do(func() {
		close(a.queue)
	})
	a.wg.Wait()
}
