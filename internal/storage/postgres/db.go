// Package postgres is the PostgreSQL implementation of storage.DB.
//
// Serialization domains map onto transaction-scoped advisory locks, and
// donation writes carry an optimistic version check, so the same
// guarantees hold as with the in-memory implementation.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"donorhub/internal/platform/postgres"
	"donorhub/internal/storage"
	dErrors "donorhub/pkg/domain-errors"
	txcontext "donorhub/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn picks the querier for a statement: the owning transaction, a
// transaction carried by ctx, or the pool.
type conn struct {
	db *sql.DB
	tx *sql.Tx
}

func (c conn) q(ctx context.Context) querier {
	if c.tx != nil {
		return c.tx
	}
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return c.db
}

type DB struct {
	db      *sql.DB
	timeout time.Duration
}

type Option func(*DB)

func WithTxTimeout(d time.Duration) Option {
	return func(db *DB) {
		if d > 0 {
			db.timeout = d
		}
	}
}

func New(db *sql.DB, opts ...Option) *DB {
	out := &DB{db: db, timeout: defaultTxTimeout}
	for _, opt := range opts {
		opt(out)
	}
	return out
}

func (d *DB) pool() conn { return conn{db: d.db} }

func (d *DB) Causes() storage.CauseStore             { return causeStore{d.pool()} }
func (d *DB) Campaigns() storage.CampaignStore       { return campaignStore{d.pool()} }
func (d *DB) Associations() storage.AssociationStore { return associationStore{d.pool()} }
func (d *DB) Donations() storage.DonationStore       { return donationStore{d.pool()} }
func (d *DB) Outbox() storage.OutboxStore            { return outboxStore{d.pool()} }

func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// RunInTx runs fn inside a READ COMMITTED transaction. Cancellation before
// or during the transaction surfaces as CodeTimeout.
func (d *DB) RunInTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	sqlTx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return translateTxError(ctx, fmt.Errorf("begin tx: %w", err))
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	t := &tx{conn: conn{db: d.db, tx: sqlTx}, held: make(map[storage.LockKey]struct{})}
	if err := fn(txcontext.WithTx(ctx, sqlTx), t); err != nil {
		return translateTxError(ctx, err)
	}
	if err := sqlTx.Commit(); err != nil {
		return translateTxError(ctx, fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

func translateTxError(ctx context.Context, err error) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction timed out")
	}
	if postgres.IsSerializationFailure(err) {
		return fmt.Errorf("%w: %v", storage.ErrConflict, err)
	}
	return err
}

type tx struct {
	conn
	held map[storage.LockKey]struct{}
}

func (t *tx) Causes() storage.CauseStore             { return causeStore{t.conn} }
func (t *tx) Campaigns() storage.CampaignStore       { return campaignStore{t.conn} }
func (t *tx) Associations() storage.AssociationStore { return associationStore{t.conn} }
func (t *tx) Donations() storage.DonationStore       { return donationStore{t.conn} }
func (t *tx) Outbox() storage.OutboxStore            { return outboxStore{t.conn} }

// Lock takes pg_advisory_xact_lock for each key in canonical order. The
// locks are released by Postgres at commit or rollback.
func (t *tx) Lock(ctx context.Context, keys ...storage.LockKey) error {
	for _, key := range storage.SortLockKeys(keys) {
		if _, ok := t.held[key]; ok {
			continue
		}
		if _, err := t.tx.ExecContext(ctx,
			`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key.String(),
		); err != nil {
			if ctx.Err() != nil {
				return dErrors.Wrap(err, dErrors.CodeTimeout, "timed out waiting for "+key.String())
			}
			return fmt.Errorf("lock %s: %w", key, err)
		}
		t.held[key] = struct{}{}
	}
	return nil
}
