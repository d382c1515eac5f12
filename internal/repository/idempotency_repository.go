package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

const idempotencyPrefix = "studybase:action:"

// IdempotencyRepository claims one-shot action keys in Redis.
type IdempotencyRepository struct {
	client *redis.Client
}

// NewIdempotencyRepository wraps a Redis client.
func NewIdempotencyRepository(client *redis.Client) *IdempotencyRepository {
	return &IdempotencyRepository{client: client}
}

// Claim returns true the first time key is seen within ttl.
func (r *IdempotencyRepository) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, idempotencyPrefix+key, time.Now().UTC().Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return ok, nil
}

// MemoryIdempotencyRepository is the in-process fallback used when Redis is disabled.
// Its TTL is fixed at construction.
type MemoryIdempotencyRepository struct {
	mu   sync.Mutex
	seen *expirable.LRU[string, struct{}]
}

// NewMemoryIdempotencyRepository keeps at most size keys for ttl.
func NewMemoryIdempotencyRepository(size int, ttl time.Duration) *MemoryIdempotencyRepository {
	if size <= 0 {
		size = 10000
	}
	return &MemoryIdempotencyRepository{seen: expirable.NewLRU[string, struct{}](size, nil, ttl)}
}

// Claim returns true the first time key is seen.
func (r *MemoryIdempotencyRepository) Claim(_ context.Context, key string, _ time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seen.Contains(key) {
		return false, nil
	}
	r.seen.Add(key, struct{}{})
	return true, nil
}
