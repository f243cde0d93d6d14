package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	statusInProgress = "IN_PROGRESS"
	statusApplied    = "APPLIED"

	// A crashed reconciler must not leave its key blocking redeliveries.
	inProgressExpiry = 30 * time.Second
	appliedExpiry    = 7 * 24 * time.Hour
)

// IdempotencyStore is the fast-path duplicate guard in front of the
// database unique index. Redis outages degrade to the index alone.
type IdempotencyStore interface {
	ClaimEvent(ctx context.Context, transactionReference string) (bool, error)
	MarkApplied(ctx context.Context, transactionReference string) error
	Release(ctx context.Context, transactionReference string)
}

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr, password string, db int) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

// ClaimEvent atomically claims the transaction reference via SETNX.
// It returns false when the event was already applied or is being applied
// by another handler.
func (r *RedisStore) ClaimEvent(ctx context.Context, transactionReference string) (bool, error) {
	key := eventKey(transactionReference)

	status, err := r.client.Get(ctx, key).Result()
	if err == nil && status == statusApplied {
		return false, nil
	}

	set, err := r.client.SetNX(ctx, key, statusInProgress, inProgressExpiry).Result()
	if err != nil {
		return false, fmt.Errorf("redis SETNX: %w", err)
	}
	return set, nil
}

func (r *RedisStore) MarkApplied(ctx context.Context, transactionReference string) error {
	return r.client.Set(ctx, eventKey(transactionReference), statusApplied, appliedExpiry).Err()
}

// Release frees a claimed reference after a failed application attempt so
// the provider's redelivery can try again immediately.
func (r *RedisStore) Release(ctx context.Context, transactionReference string) {
	_ = r.client.Del(ctx, eventKey(transactionReference)).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func eventKey(transactionReference string) string {
	return "webhook:" + transactionReference
}
