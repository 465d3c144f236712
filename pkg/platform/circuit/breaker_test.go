package circuit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestBreaker(clock *fakeClock, opts ...Option) *Breaker {
	return New("receipts", append([]Option{WithClock(clock.Now)}, opts...)...)
}

func TestBreakerDefaults(t *testing.T) {
	b := New("receipts")
	assert.Equal(t, "receipts", b.Name())
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "closed", b.State().String())

	for i := 0; i < 4; i++ {
		useFallback, change := b.RecordFailure()
		require.False(t, useFallback, "failure %d", i+1)
		require.False(t, change.Opened)
	}
	useFallback, change := b.RecordFailure()
	assert.True(t, useFallback)
	assert.True(t, change.Opened)
	assert.Equal(t, "open", b.State().String())
}

func TestBreakerOpensOnConsecutiveFailures(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
	b := newTestBreaker(clock, WithFailureThreshold(3))

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	assert.False(t, b.IsOpen(), "a success resets the failure streak")

	b.RecordFailure()
	b.RecordFailure()
	_, change := b.RecordFailure()
	assert.True(t, change.Opened)
	assert.True(t, b.IsOpen())
	assert.False(t, b.Allow())

	useFallback, change := b.RecordFailure()
	assert.True(t, useFallback)
	assert.False(t, change.Opened, "already open")
}

func TestBreakerProbesAfterOpenTimeout(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
	b := newTestBreaker(clock, WithFailureThreshold(1), WithOpenTimeout(10*time.Second))

	b.RecordFailure()
	require.False(t, b.Allow())

	clock.Advance(9 * time.Second)
	assert.False(t, b.Allow())
	clock.Advance(2 * time.Second)
	assert.True(t, b.Allow())

	// a failed probe restarts the open window
	b.RecordFailure()
	assert.False(t, b.Allow())
	clock.Advance(10 * time.Second)
	assert.True(t, b.Allow())
}

func TestBreakerClosesAfterSuccessThreshold(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
	b := newTestBreaker(clock, WithFailureThreshold(1), WithSuccessThreshold(2))
	b.RecordFailure()

	usePrimary, change := b.RecordSuccess()
	assert.False(t, usePrimary)
	assert.False(t, change.Closed)

	b.RecordFailure()
	usePrimary, _ = b.RecordSuccess()
	assert.False(t, usePrimary, "a failure in between resets the success streak")

	usePrimary, change = b.RecordSuccess()
	assert.True(t, usePrimary)
	assert.True(t, change.Closed)
	assert.True(t, b.Allow())
}

func TestBreakerIgnoresNonPositiveOptions(t *testing.T) {
	b := New("receipts", WithFailureThreshold(0), WithSuccessThreshold(-1), WithOpenTimeout(0), WithClock(nil))
	assert.Equal(t, 5, b.failureThreshold)
	assert.Equal(t, 3, b.successThreshold)
	assert.Equal(t, 30*time.Second, b.openTimeout)
	assert.NotNil(t, b.now)
}

func TestBreakerReset(t *testing.T) {
	b := New("receipts", WithFailureThreshold(1))
	b.RecordFailure()
	require.True(t, b.IsOpen())

	b.Reset()
	assert.False(t, b.IsOpen())
	assert.True(t, b.Allow())
	_, change := b.RecordFailure()
	assert.True(t, change.Opened, "reset clears counters")
}

func TestBreakerConcurrentRecords(t *testing.T) {
	b := New("receipts", WithFailureThreshold(1000))
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				b.RecordFailure()
				_ = b.Allow()
			}
		}()
	}
	wg.Wait()
	assert.False(t, b.IsOpen())

	_, change := b.RecordFailure()
	assert.False(t, change.Opened)
	assert.Equal(t, 501, b.failureCount)
}
