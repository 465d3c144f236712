package storage

import (
	"cmp"
	"slices"

	"donorhub/pkg/domain"
)

type lockClass int

// Lock classes are acquired in ascending order: idempotency keys, then
// causes, then campaigns. Keeping that order keeps concurrent transactions
// from deadlocking.
const (
	lockClassIdempotency lockClass = iota + 1
	lockClassCause
	lockClassCampaign
)

// LockKey identifies a serialization domain: all writers of a cause's
// donations and totals share its key; all writers of a campaign's totals
// share the campaign key.
type LockKey struct {
	class lockClass
	id    string
}

func CauseLock(id domain.CauseID) LockKey {
	return LockKey{class: lockClassCause, id: id.String()}
}

func CampaignLock(id domain.CampaignID) LockKey {
	return LockKey{class: lockClassCampaign, id: id.String()}
}

// IdempotencyLock serializes requests that share a donor's Idempotency-Key,
// whatever cause they target.
func IdempotencyLock(donorID domain.DonorID, key string) LockKey {
	return LockKey{class: lockClassIdempotency, id: donorID.String() + ":" + key}
}

func (k LockKey) String() string {
	switch k.class {
	case lockClassIdempotency:
		return "idempotency:" + k.id
	case lockClassCause:
		return "cause:" + k.id
	case lockClassCampaign:
		return "campaign:" + k.id
	}
	return "unknown:" + k.id
}

// SortLockKeys orders keys by class then id and drops duplicates.
func SortLockKeys(keys []LockKey) []LockKey {
	out := slices.Clone(keys)
	slices.SortFunc(out, func(a, b LockKey) int {
		if c := cmp.Compare(a.class, b.class); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})
	return slices.Compact(out)
}
