package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	notification "donorhub/internal/notification/models"
)

type outboxStore struct{ conn }

func (s outboxStore) Append(ctx context.Context, r *notification.Record) error {
	payload, err := json.Marshal(r.Event)
	if err != nil {
		return fmt.Errorf("marshal outbox event: %w", err)
	}
	_, err = s.q(ctx).ExecContext(ctx, `
		INSERT INTO outbox (id, event_type, payload, state, attempts, last_error, next_attempt_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.ID, string(r.Event.Type), payload, string(r.State), r.Attempts, r.LastError, r.NextAttemptAt, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append outbox: %w", err)
	}
	return nil
}

// ListDue skips rows locked by another relay when called inside a
// transaction, so parallel relays never publish the same row twice.
func (s outboxStore) ListDue(ctx context.Context, now time.Time, limit int) ([]*notification.Record, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, payload, state, attempts, last_error, next_attempt_at, created_at, published_at
		FROM outbox
		WHERE state = 'pending' AND next_attempt_at <= $1
		ORDER BY created_at
		LIMIT $2`
	if s.tx != nil {
		query += ` FOR UPDATE SKIP LOCKED`
	}
	rows, err := s.q(ctx).QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due outbox: %w", err)
	}
	defer rows.Close()

	out := make([]*notification.Record, 0)
	for rows.Next() {
		var (
			r         notification.Record
			payload   []byte
			state     string
			published sql.NullTime
		)
		if err := rows.Scan(&r.ID, &payload, &state, &r.Attempts, &r.LastError, &r.NextAttemptAt, &r.CreatedAt, &published); err != nil {
			return nil, fmt.Errorf("scan outbox: %w", err)
		}
		if err := json.Unmarshal(payload, &r.Event); err != nil {
			return nil, fmt.Errorf("decode outbox %s: %w", r.ID, err)
		}
		r.State = notification.RecordState(state)
		r.PublishedAt = timePtr(published)
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s outboxStore) MarkPublished(ctx context.Context, id string, at time.Time) error {
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE outbox SET state = 'published', attempts = attempts + 1, last_error = '', published_at = $2
		WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return expectOneRow(res)
}

func (s outboxStore) MarkFailed(ctx context.Context, id string, reason string, nextAttempt time.Time, dead bool) error {
	state := string(notification.RecordPending)
	if dead {
		state = string(notification.RecordDead)
	}
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE outbox SET state = $2, attempts = attempts + 1, last_error = $3, next_attempt_at = $4
		WHERE id = $1`, id, state, reason, nextAttempt)
	if err != nil {
		return fmt.Errorf("mark outbox failed: %w", err)
	}
	return expectOneRow(res)
}
