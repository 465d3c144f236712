package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donorhub/internal/aggregation"
	catalog "donorhub/internal/catalog/models"
	catalogsvc "donorhub/internal/catalog/service"
	"donorhub/internal/storage/memory"
	"donorhub/pkg/domain"
	"donorhub/pkg/requestcontext"
)

type fakeSweeper struct {
	mu          sync.Mutex
	calls       []string
	seen        []time.Time
	completeErr error
	startErr    error
}

func (f *fakeSweeper) CompleteEndedCampaigns(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "complete")
	f.seen = append(f.seen, requestcontext.Now(ctx))
	return 2, f.completeErr
}

func (f *fakeSweeper) StartScheduledCampaigns(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "start")
	f.seen = append(f.seen, requestcontext.Now(ctx))
	return 1, f.startErr
}

func (f *fakeSweeper) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestTick(t *testing.T) {
	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	t.Run("completes before starting and pins time", func(t *testing.T) {
		sweeper := &fakeSweeper{}
		s := New(sweeper, WithClock(func() time.Time { return now }))

		res, err := s.Tick(context.Background())
		require.NoError(t, err)
		assert.Equal(t, Result{Completed: 2, Started: 1}, res)
		assert.Equal(t, []string{"complete", "start"}, sweeper.calls)
		assert.Equal(t, []time.Time{now, now}, sweeper.seen)
	})

	t.Run("a failing half does not skip the other", func(t *testing.T) {
		sweeper := &fakeSweeper{completeErr: errors.New("db down")}
		s := New(sweeper, WithClock(func() time.Time { return now }))

		res, err := s.Tick(context.Background())
		require.Error(t, err)
		assert.Equal(t, 1, res.Started)
		assert.Equal(t, []string{"complete", "start"}, sweeper.calls)
	})
}

func TestRunSweepsUntilCancelled(t *testing.T) {
	sweeper := &fakeSweeper{}
	s := New(sweeper, WithInterval(5*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool { return sweeper.callCount() >= 4 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestTickAgainstCatalog(t *testing.T) {
	db := memory.New()
	svc := catalogsvc.New(db, aggregation.NewEngine(aggregation.Valuation{}))
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	org := domain.OrganizationActor(domain.OrganizationID(uuid.New()))
	ctx := requestcontext.WithTime(context.Background(), start.Add(-48*time.Hour))

	scheduled, err := svc.CreateCampaign(ctx, org, catalog.CampaignDetails{
		Title:         "Back to school",
		StartDate:     start,
		EndDate:       start.Add(10 * 24 * time.Hour),
		AcceptedTypes: domain.ContributionTypes{domain.ContributionBooks},
		AutoStart:     true,
	})
	require.NoError(t, err)

	now := start.Add(time.Hour)
	s := New(svc, WithClock(func() time.Time { return now }))
	res, err := s.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Started: 1}, res)

	got, err := svc.GetCampaign(context.Background(), scheduled.ID)
	require.NoError(t, err)
	assert.Equal(t, catalog.CampaignStatusActive, got.Status)

	now = start.Add(11 * 24 * time.Hour)
	res, err = s.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Completed: 1}, res)
}
