package memory

import (
	"context"
	"slices"
	"time"

	notification "donorhub/internal/notification/models"
	"donorhub/internal/storage"
)

type outboxStore struct{ v *view }

func (s outboxStore) Append(_ context.Context, r *notification.Record) error {
	return s.v.write(func(tx *txState) error {
		tx.outbox = append(tx.outbox, cloneRecord(r))
		return nil
	})
}

func (s outboxStore) ListDue(_ context.Context, now time.Time, limit int) ([]*notification.Record, error) {
	s.v.db.mu.RLock()
	out := make([]*notification.Record, 0)
	for _, r := range s.v.db.outbox {
		if r.State == notification.RecordPending && !r.NextAttemptAt.After(now) {
			out = append(out, cloneRecord(r))
		}
	}
	s.v.db.mu.RUnlock()

	slices.SortFunc(out, func(a, b *notification.Record) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s outboxStore) MarkPublished(_ context.Context, id string, at time.Time) error {
	return s.mark(id, func(r *notification.Record) {
		r.State = notification.RecordPublished
		r.Attempts++
		r.PublishedAt = &at
		r.LastError = ""
	})
}

func (s outboxStore) MarkFailed(_ context.Context, id string, reason string, nextAttempt time.Time, dead bool) error {
	return s.mark(id, func(r *notification.Record) {
		r.Attempts++
		r.LastError = reason
		r.NextAttemptAt = nextAttempt
		if dead {
			r.State = notification.RecordDead
		}
	})
}

func (s outboxStore) mark(id string, apply func(r *notification.Record)) error {
	s.v.db.mu.RLock()
	cur, ok := s.v.db.outbox[id]
	s.v.db.mu.RUnlock()
	if !ok {
		return storage.ErrNotFound
	}
	return s.v.write(func(tx *txState) error {
		next := cloneRecord(cur)
		apply(next)
		tx.outboxMarks[id] = next
		return nil
	})
}
