package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"donorhub/internal/notification/metrics"
	"donorhub/internal/notification/models"
	"donorhub/internal/storage/memory"
	"donorhub/pkg/domain"
)

type RelaySuite struct {
	suite.Suite
	ctx       context.Context
	db        *memory.DB
	publisher *MemoryPublisher
	clock     time.Time
	relay     *Relay
}

func TestRelaySuite(t *testing.T) {
	suite.Run(t, new(RelaySuite))
}

func (s *RelaySuite) SetupTest() {
	s.ctx = context.Background()
	s.db = memory.New()
	s.publisher = NewMemoryPublisher()
	s.clock = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s.relay = NewRelay(s.db.Outbox(), s.publisher,
		WithBatchSize(10),
		WithMaxAttempts(3),
		WithBackoff(time.Second, 4*time.Second),
		WithClock(func() time.Time { return s.clock }),
		WithMetrics(metrics.New(prometheus.NewRegistry())),
	)
}

func (s *RelaySuite) appendEvent(t models.EventType, at time.Time) models.Event {
	e := models.NewEvent(t, "PENDING", at)
	e.DonationID = domain.NewDonationID()
	s.Require().NoError(s.db.Outbox().Append(s.ctx, models.NewRecord(e)))
	return e
}

func (s *RelaySuite) TestPublishesDueEventsInOrder() {
	first := s.appendEvent(models.EventDonationCreated, s.clock.Add(-2*time.Minute))
	second := s.appendEvent(models.EventDonationApproved, s.clock.Add(-time.Minute))
	s.appendEvent(models.EventDonationReceived, s.clock.Add(time.Minute))

	res, err := s.relay.RelayOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(RelayResult{Published: 2}, res)

	events := s.publisher.Events()
	s.Require().Len(events, 2)
	s.Equal(first.ID, events[0].ID)
	s.Equal(second.ID, events[1].ID)

	res, err = s.relay.RelayOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(RelayResult{}, res, "published rows are not delivered twice")
}

func (s *RelaySuite) TestFailedPublishIsRetriedWithBackoff() {
	e := s.appendEvent(models.EventDonationCreated, s.clock)
	s.publisher.FailWith(errors.New("broker down"))

	res, err := s.relay.RelayOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(RelayResult{Failed: 1}, res)

	due, err := s.db.Outbox().ListDue(s.ctx, s.clock.Add(999*time.Millisecond), 10)
	s.Require().NoError(err)
	s.Empty(due, "row waits for the first backoff step")

	s.publisher.FailWith(nil)
	s.clock = s.clock.Add(time.Second)
	res, err = s.relay.RelayOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(RelayResult{Published: 1}, res)
	s.Equal(e.ID, s.publisher.Events()[0].ID)
}

func (s *RelaySuite) TestRowIsDeadAfterMaxAttempts() {
	s.appendEvent(models.EventCampaignStatus, s.clock)
	s.publisher.FailWith(errors.New("broker down"))

	var total RelayResult
	for range 5 {
		res, err := s.relay.RelayOnce(s.ctx)
		s.Require().NoError(err)
		total.Failed += res.Failed
		total.Dead += res.Dead
		s.clock = s.clock.Add(time.Minute)
	}
	s.Equal(RelayResult{Failed: 2, Dead: 1}, total)

	due, err := s.db.Outbox().ListDue(s.ctx, s.clock.Add(time.Hour), 10)
	s.Require().NoError(err)
	s.Empty(due)
}

func (s *RelaySuite) TestRunStopsOnCancel() {
	ctx, cancel := context.WithCancel(s.ctx)
	relay := NewRelay(s.db.Outbox(), s.publisher, WithPollInterval(5*time.Millisecond))
	s.appendEvent(models.EventDonationCreated, time.Now().Add(-time.Second))

	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	s.Eventually(func() bool { return len(s.publisher.Events()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	s.ErrorIs(<-done, context.Canceled)
}

func TestRelayDelay(t *testing.T) {
	r := NewRelay(nil, nil, WithBackoff(time.Second, 5*time.Second))
	assert.Equal(t, time.Second, r.delay(1))
	assert.Equal(t, 2*time.Second, r.delay(2))
	assert.Equal(t, 4*time.Second, r.delay(3))
	assert.Equal(t, 5*time.Second, r.delay(4))
	assert.Equal(t, 5*time.Second, r.delay(10))
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e models.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func TestMulti(t *testing.T) {
	ok := &recordingPublisher{}
	failing := &recordingPublisher{err: errors.New("sink down")}

	err := Multi{ok, failing}.Publish(context.Background(), models.NewEvent(models.EventDonationCreated, "PENDING", time.Now()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink down")
	assert.Equal(t, 1, ok.count())
	assert.Equal(t, 1, failing.count())
}

func TestAsync(t *testing.T) {
	t.Run("delivers in background and drains on close", func(t *testing.T) {
		next := &recordingPublisher{err: errors.New("ignored")}
		async := NewAsync(next, 8, nil, metrics.New(prometheus.NewRegistry()))
		for range 5 {
			require.NoError(t, async.Publish(context.Background(), models.NewEvent(models.EventDonationCreated, "PENDING", time.Now())))
		}
		async.Close()
		assert.Equal(t, 5, next.count())
	})

	t.Run("drops when buffer is full", func(t *testing.T) {
		block := make(chan struct{})
		next := blockingPublisher{release: block}
		async := NewAsync(next, 1, nil, nil)
		for range 4 {
			require.NoError(t, async.Publish(context.Background(), models.NewEvent(models.EventDonationCreated, "PENDING", time.Now())))
		}
		close(block)
		async.Close()
	})
}

type blockingPublisher struct {
	release chan struct{}
}

func (p blockingPublisher) Publish(context.Context, models.Event) error {
	<-p.release
	return nil
}
