package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

// CachedSession holds the provider's introspection result for one
// opaque session token. Only upstream verification output is cached;
// bridged tokens are never stored.
type CachedSession struct {
	Subject string `json:"subject"`
	Email   string `json:"email"`
	Name    string `json:"name"`
}

type SessionCache interface {
	Get(ctx context.Context, tokenHash string) (*CachedSession, error)
	Set(ctx context.Context, tokenHash string, value *CachedSession, ttl time.Duration) error
}

type redisCache struct {
	client *redis.Client
}

func NewRedisClient(url string, poolSize int) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	opt.PoolSize = poolSize

	client := redis.NewClient(opt)

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

func NewSessionCache(client *redis.Client) SessionCache {
	return &redisCache{client: client}
}

func (r *redisCache) Get(ctx context.Context, tokenHash string) (*CachedSession, error) {
	key := fmt.Sprintf("bridge:session:%s", tokenHash)
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var session CachedSession
	if err := json.Unmarshal([]byte(val), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached session: %w", err)
	}

	return &session, nil
}

func (r *redisCache) Set(ctx context.Context, tokenHash string, value *CachedSession, ttl time.Duration) error {
	key := fmt.Sprintf("bridge:session:%s", tokenHash)
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cached session: %w", err)
	}

	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set redis cache: %w", err)
	}

	return nil
}
