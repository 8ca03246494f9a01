package webhook

import (
	"context"
	"sync"
	"time"

	"zephyr-lounge/pkg/utils"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// DeliveryTTL bounds how long a delivery id is remembered; the provider stops retrying well before.
const DeliveryTTL = 24 * time.Hour

// DeliveryTracker remembers delivery ids so retried deliveries are processed at most once.
type DeliveryTracker interface {
	// Claim returns false when id was already claimed.
	Claim(ctx context.Context, id string) (bool, error)
	// Release forgets id so the provider's retry is processed again.
	Release(ctx context.Context, id string) error
}

type RedisTracker struct {
	rdb    *redis.Client
	prefix string
	token  string
	ttl    time.Duration
}

func NewRedisTracker(rdb *redis.Client) *RedisTracker {
	return &RedisTracker{rdb: rdb, prefix: "webhook:delivery:", token: uuid.NewString(), ttl: DeliveryTTL}
}

func (t *RedisTracker) Claim(ctx context.Context, id string) (bool, error) {
	return utils.ClaimOnce(ctx, t.rdb, t.prefix+id, t.token, t.ttl)
}

func (t *RedisTracker) Release(ctx context.Context, id string) error {
	return utils.ReleaseClaim(ctx, t.rdb, t.prefix+id, t.token)
}

// MemoryTracker is a single-process tracker, used when Redis is not configured.
type MemoryTracker struct {
	mu   sync.Mutex
	seen *expirable.LRU[string, struct{}]
}

func NewMemoryTracker(size int, ttl time.Duration) *MemoryTracker {
	return &MemoryTracker{seen: expirable.NewLRU[string, struct{}](size, nil, ttl)}
}

func (t *MemoryTracker) Claim(_ context.Context, id string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.seen.Contains(id) {
		return false, nil
	}
	t.seen.Add(id, struct{}{})
	return true, nil
}

func (t *MemoryTracker) Release(_ context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seen.Remove(id)
	return nil
}
