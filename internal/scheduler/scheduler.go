// Package scheduler runs the periodic campaign sweep: ended campaigns are
// completed and auto-start drafts whose window opened are activated.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"donorhub/pkg/requestcontext"
)

const defaultInterval = time.Minute

// CampaignSweeper applies time-driven campaign transitions as of the time in
// ctx.
type CampaignSweeper interface {
	CompleteEndedCampaigns(ctx context.Context) (int, error)
	StartScheduledCampaigns(ctx context.Context) (int, error)
}

type Scheduler struct {
	sweeper  CampaignSweeper
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

type Option func(*Scheduler)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

func New(sweeper CampaignSweeper, opts ...Option) *Scheduler {
	s := &Scheduler{
		sweeper:  sweeper,
		interval: defaultInterval,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Result counts campaigns moved by one sweep.
type Result struct {
	Completed int
	Started   int
}

// Tick runs one sweep. Completion runs first so a campaign whose window
// already closed is never activated. Both halves run even if one fails.
func (s *Scheduler) Tick(ctx context.Context) (Result, error) {
	ctx = requestcontext.WithTime(ctx, s.now())

	var res Result
	completed, completeErr := s.sweeper.CompleteEndedCampaigns(ctx)
	res.Completed = completed
	started, startErr := s.sweeper.StartScheduledCampaigns(ctx)
	res.Started = started

	if res.Completed > 0 || res.Started > 0 {
		s.logger.InfoContext(ctx, "campaign sweep applied",
			"completed", res.Completed,
			"started", res.Started,
		)
	}
	return res, errors.Join(completeErr, startErr)
}

// Run sweeps immediately and then every interval until ctx is cancelled.
// Sweep errors are logged; the next tick retries.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.Tick(ctx); err != nil && ctx.Err() == nil {
			s.logger.ErrorContext(ctx, "campaign sweep failed", "error", err)
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
