// Package idempotency remembers which donation an Idempotency-Key produced,
// per donor, for a bounded time.
package idempotency

import (
	"context"
	"sync"
	"time"

	"donorhub/pkg/domain"
)

// DefaultTTL is how long a key replays its donation.
const DefaultTTL = 24 * time.Hour

type entry struct {
	donationID domain.DonationID
	expiresAt  time.Time
}

type memoryKey struct {
	donor domain.DonorID
	key   string
}

// MemoryStore is the in-process store used when Redis is not configured.
// Expired keys are dropped lazily on read and by Sweep.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[memoryKey]entry
	ttl     time.Duration
	now     func() time.Time
}

type MemoryOption func(*MemoryStore)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewMemoryStore(ttl time.Duration, opts ...MemoryOption) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &MemoryStore{
		entries: make(map[memoryKey]entry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, donorID domain.DonorID, key string) (domain.DonationID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memoryKey{donor: donorID, key: key}
	e, ok := s.entries[k]
	if !ok {
		return domain.DonationID{}, false, nil
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, k)
		return domain.DonationID{}, false, nil
	}
	return e.donationID, true, nil
}

func (s *MemoryStore) Put(_ context.Context, donorID domain.DonorID, key string, id domain.DonationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[memoryKey{donor: donorID, key: key}] = entry{donationID: id, expiresAt: s.now().Add(s.ttl)}
	return nil
}

// Sweep removes expired keys and reports how many it removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

// StartCleanup runs Sweep periodically until ctx is cancelled.
func (s *MemoryStore) StartCleanup(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
