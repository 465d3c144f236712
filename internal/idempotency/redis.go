package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"donorhub/pkg/domain"
)

const keyPrefix = "idem:donation:"

// RedisStore shares idempotency keys across instances. Each key is a plain
// string holding the donation id, expiring after the TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(donorID domain.DonorID, key string) string {
	return keyPrefix + donorID.String() + ":" + key
}

func (s *RedisStore) Get(ctx context.Context, donorID domain.DonorID, key string) (domain.DonationID, bool, error) {
	raw, err := s.client.Get(ctx, redisKey(donorID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.DonationID{}, false, nil
	}
	if err != nil {
		return domain.DonationID{}, false, fmt.Errorf("get idempotency key: %w", err)
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return domain.DonationID{}, false, fmt.Errorf("decode idempotency key %q: %w", raw, err)
	}
	return domain.DonationID(parsed), true, nil
}

func (s *RedisStore) Put(ctx context.Context, donorID domain.DonorID, key string, id domain.DonationID) error {
	if err := s.client.Set(ctx, redisKey(donorID, key), id.String(), s.ttl).Err(); err != nil {
		return fmt.Errorf("set idempotency key: %w", err)
	}
	return nil
}
