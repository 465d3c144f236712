package storage

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"donorhub/pkg/domain"
)

func TestSortLockKeys_CausesBeforeCampaigns(t *testing.T) {
	cause := domain.CauseID(uuid.MustParse("ffffffff-ffff-4fff-bfff-ffffffffffff"))
	campaign := domain.CampaignID(uuid.MustParse("00000000-0000-4000-8000-000000000001"))

	got := SortLockKeys([]LockKey{CampaignLock(campaign), CauseLock(cause), CampaignLock(campaign)})

	assert.Equal(t, []LockKey{CauseLock(cause), CampaignLock(campaign)}, got)
	assert.Equal(t, "cause:"+cause.String(), got[0].String())
}

func TestSortLockKeys_IdempotencyFirst(t *testing.T) {
	donor := domain.DonorID(uuid.MustParse("ffffffff-ffff-4fff-bfff-ffffffffffff"))
	cause := domain.CauseID(uuid.MustParse("00000000-0000-4000-8000-000000000001"))

	got := SortLockKeys([]LockKey{CauseLock(cause), IdempotencyLock(donor, "k-1")})

	assert.Equal(t, []LockKey{IdempotencyLock(donor, "k-1"), CauseLock(cause)}, got)
	assert.Equal(t, "idempotency:"+donor.String()+":k-1", got[0].String())
}
