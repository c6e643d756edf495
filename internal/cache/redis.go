package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/fjod/go_foodcart/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	defaultBaseTTL      = 15 * time.Minute
	defaultMaxJitter    = 5 * time.Minute
	defaultTombstoneTTL = 10 * time.Second

	tombstone = "-"
)

func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{
		client:       client,
		baseTTL:      defaultBaseTTL,
		maxJitter:    defaultMaxJitter,
		tombstoneTTL: defaultTombstoneTTL,
	}
}

type RedisCache struct {
	client       redis.UniversalClient
	baseTTL      time.Duration
	maxJitter    time.Duration
	tombstoneTTL time.Duration
}

func (r *RedisCache) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, cacheKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	if string(data) == tombstone {
		return nil, ErrCacheMiss
	}

	var cart domain.Cart
	if err2 := json.Unmarshal(data, &cart); err2 != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err2)
	}

	return &cart, nil
}

// Fill stores the cart with a jittered TTL so entries written together do not
// expire together. SET NX never replaces a newer entry or a tombstone.
func (r *RedisCache) Fill(ctx context.Context, userID string, cart *domain.Cart) (bool, error) {
	payload, err := json.Marshal(cart)
	if err != nil {
		return false, fmt.Errorf("marshal cart failed: %w", err)
	}

	stored, err := r.client.SetNX(ctx, cacheKey(userID), payload, r.ttl()).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx failed: %w", err)
	}
	return stored, nil
}

// Invalidate overwrites whatever is cached with a tombstone. Reads treat it as
// a miss; fills are refused until it expires.
func (r *RedisCache) Invalidate(ctx context.Context, userID string) error {
	if err := r.client.Set(ctx, cacheKey(userID), tombstone, r.tombstoneTTL).Err(); err != nil {
		return fmt.Errorf("redis invalidate failed: %w", err)
	}
	return nil
}

func (r *RedisCache) ttl() time.Duration {
	if r.maxJitter <= 0 {
		return r.baseTTL
	}
	return r.baseTTL + time.Duration(rand.Int63n(int64(r.maxJitter)))
}

func cacheKey(userID string) string {
	return fmt.Sprintf("cart:%s", userID)
}
