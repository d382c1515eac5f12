package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

const signOutPrefix = "studybase:signout:"

// SignOutRepository records the instant a user signed out so older access tokens stop working.
type SignOutRepository struct {
	client *redis.Client
}

// NewSignOutRepository wraps a Redis client.
func NewSignOutRepository(client *redis.Client) *SignOutRepository {
	return &SignOutRepository{client: client}
}

// SetCutoff stores at for userID, kept for ttl (the access token lifetime).
func (r *SignOutRepository) SetCutoff(ctx context.Context, userID string, at time.Time, ttl time.Duration) error {
	if err := r.client.Set(ctx, signOutPrefix+userID, at.UnixNano(), ttl).Err(); err != nil {
		return fmt.Errorf("redis set signout %s: %w", userID, err)
	}
	return nil
}

// Cutoff returns the recorded sign-out instant, if any.
func (r *SignOutRepository) Cutoff(ctx context.Context, userID string) (time.Time, bool, error) {
	raw, err := r.client.Get(ctx, signOutPrefix+userID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("redis get signout %s: %w", userID, err)
	}
	nanos, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse signout %s: %w", userID, err)
	}
	return time.Unix(0, nanos).UTC(), true, nil
}

// MemorySignOutRepository is the in-process fallback used when Redis is disabled.
type MemorySignOutRepository struct {
	cutoffs *expirable.LRU[string, time.Time]
}

// NewMemorySignOutRepository keeps cutoffs for ttl.
func NewMemorySignOutRepository(size int, ttl time.Duration) *MemorySignOutRepository {
	if size <= 0 {
		size = 10000
	}
	return &MemorySignOutRepository{cutoffs: expirable.NewLRU[string, time.Time](size, nil, ttl)}
}

func (r *MemorySignOutRepository) SetCutoff(_ context.Context, userID string, at time.Time, _ time.Duration) error {
	r.cutoffs.Add(userID, at)
	return nil
}

func (r *MemorySignOutRepository) Cutoff(_ context.Context, userID string) (time.Time, bool, error) {
	at, ok := r.cutoffs.Get(userID)
	return at, ok, nil
}
