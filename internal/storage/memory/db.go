// Package memory is the in-process implementation of storage.DB.
//
// Transactions stage their writes in a private overlay and publish them in
// one step at commit, so readers never see half of a unit of work. Keyed
// locks provide the same serialization that advisory locks give the
// Postgres implementation.
package memory

import (
	"context"
	"sync"
	"time"

	catalog "donorhub/internal/catalog/models"
	donation "donorhub/internal/donation/models"
	notification "donorhub/internal/notification/models"
	"donorhub/internal/storage"
	"donorhub/pkg/domain"
	dErrors "donorhub/pkg/domain-errors"
)

const defaultTxTimeout = 5 * time.Second

type assocKey struct {
	cause    domain.CauseID
	campaign domain.CampaignID
}

// DB holds committed state. Committed records are never mutated in place;
// commit swaps in fresh copies.
type DB struct {
	mu        sync.RWMutex
	causes    map[domain.CauseID]*catalog.Cause
	campaigns map[domain.CampaignID]*catalog.Campaign
	assocs    map[assocKey]*catalog.Association
	donations map[domain.DonationID]*donation.Donation
	outbox    map[string]*notification.Record

	locks   *keyLocks
	timeout time.Duration
}

type Option func(*DB)

// WithTxTimeout bounds transactions whose context carries no deadline.
func WithTxTimeout(d time.Duration) Option {
	return func(db *DB) {
		if d > 0 {
			db.timeout = d
		}
	}
}

func New(opts ...Option) *DB {
	db := &DB{
		causes:    make(map[domain.CauseID]*catalog.Cause),
		campaigns: make(map[domain.CampaignID]*catalog.Campaign),
		assocs:    make(map[assocKey]*catalog.Association),
		donations: make(map[domain.DonationID]*donation.Donation),
		outbox:    make(map[string]*notification.Record),
		locks:     newKeyLocks(),
		timeout:   defaultTxTimeout,
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

func (db *DB) direct() *view {
	return &view{db: db}
}

func (db *DB) Causes() storage.CauseStore             { return causeStore{db.direct()} }
func (db *DB) Campaigns() storage.CampaignStore       { return campaignStore{db.direct()} }
func (db *DB) Associations() storage.AssociationStore { return associationStore{db.direct()} }
func (db *DB) Donations() storage.DonationStore       { return donationStore{db.direct()} }
func (db *DB) Outbox() storage.OutboxStore            { return outboxStore{db.direct()} }

func (db *DB) Ping(context.Context) error { return nil }

// RunInTx runs fn against a private overlay and publishes its writes if fn
// succeeds. Locks taken through the Tx are released after commit.
func (db *DB) RunInTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, db.timeout)
		defer cancel()
	}

	t := &tx{view: view{db: db, tx: newTxState()}}
	defer t.release()

	if err := fn(ctx, t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: deadline exceeded")
	}
	return db.commit(t.view.tx)
}

type tx struct {
	view
	held []storage.LockKey
}

func (t *tx) Causes() storage.CauseStore             { return causeStore{&t.view} }
func (t *tx) Campaigns() storage.CampaignStore       { return campaignStore{&t.view} }
func (t *tx) Associations() storage.AssociationStore { return associationStore{&t.view} }
func (t *tx) Donations() storage.DonationStore       { return donationStore{&t.view} }
func (t *tx) Outbox() storage.OutboxStore            { return outboxStore{&t.view} }

func (t *tx) Lock(ctx context.Context, keys ...storage.LockKey) error {
	for _, key := range storage.SortLockKeys(keys) {
		if t.holds(key) {
			continue
		}
		if err := t.db.locks.acquire(ctx, key.String()); err != nil {
			return dErrors.Wrap(err, dErrors.CodeTimeout, "timed out waiting for "+key.String())
		}
		t.held = append(t.held, key)
	}
	return nil
}

func (t *tx) holds(key storage.LockKey) bool {
	for _, k := range t.held {
		if k == key {
			return true
		}
	}
	return false
}

func (t *tx) release() {
	for i := len(t.held) - 1; i >= 0; i-- {
		t.db.locks.release(t.held[i].String())
	}
	t.held = nil
}

// txState is the overlay of a transaction. A nil map value is a delete.
type txState struct {
	causes       map[domain.CauseID]*catalog.Cause
	campaigns    map[domain.CampaignID]*catalog.Campaign
	assocs       map[assocKey]*catalog.Association
	assocCreated map[assocKey]bool
	donations    map[domain.DonationID]*donation.Donation
	// baseVersions records the committed version each touched donation had
	// when the transaction first read it; zero means created here.
	baseVersions map[domain.DonationID]int64
	outbox       []*notification.Record
	outboxMarks  map[string]*notification.Record
}

func newTxState() *txState {
	return &txState{
		causes:       make(map[domain.CauseID]*catalog.Cause),
		campaigns:    make(map[domain.CampaignID]*catalog.Campaign),
		assocs:       make(map[assocKey]*catalog.Association),
		assocCreated: make(map[assocKey]bool),
		donations:    make(map[domain.DonationID]*donation.Donation),
		baseVersions: make(map[domain.DonationID]int64),
		outboxMarks:  make(map[string]*notification.Record),
	}
}

func (db *DB) commit(s *txState) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for id, base := range s.baseVersions {
		cur, ok := db.donations[id]
		switch {
		case base == 0 && ok:
			return storage.ErrAlreadyUsed
		case base != 0 && (!ok || cur.Version != base):
			return storage.ErrConflict
		}
	}
	for key := range s.assocCreated {
		if _, ok := db.assocs[key]; ok && s.assocs[key] != nil {
			return storage.ErrAlreadyUsed
		}
	}

	for id, c := range s.causes {
		if c == nil {
			delete(db.causes, id)
			continue
		}
		db.causes[id] = c
	}
	for id, c := range s.campaigns {
		db.campaigns[id] = c
	}
	for key, a := range s.assocs {
		if a == nil {
			delete(db.assocs, key)
			continue
		}
		db.assocs[key] = a
	}
	for id, d := range s.donations {
		if d == nil {
			delete(db.donations, id)
			continue
		}
		db.donations[id] = d
	}
	for _, r := range s.outbox {
		db.outbox[r.ID] = r
	}
	for id, r := range s.outboxMarks {
		db.outbox[id] = r
	}
	return nil
}

// view reads through the overlay (if any) to committed state. Writes on a
// view without an overlay commit immediately.
type view struct {
	db *DB
	tx *txState
}

func (v *view) write(fn func(s *txState) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	s := newTxState()
	if err := fn(s); err != nil {
		return err
	}
	return v.db.commit(s)
}

// overlay merges committed and staged records. Callers hold db.mu for reading.
func overlay[K comparable, V any](committed, staged map[K]*V) map[K]*V {
	out := make(map[K]*V, len(committed)+len(staged))
	for k, v := range committed {
		out[k] = v
	}
	for k, v := range staged {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}
