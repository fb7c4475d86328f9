package cache

import (
	"context"
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Store.Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Store is a byte-oriented cache used for derived data such as statistics.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// NewStore returns the Redis store when CACHE_DRIVER=redis and an in-process store otherwise
func NewStore() Store {
	if IsRedisEnabled() {
		return NewRedisStore(GetClient())
	}
	return NewMemoryStore(5*time.Minute, 10*time.Minute)
}

type redisStore struct {
	client *redis.Client
}

// NewRedisStore wraps a Redis client
func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return val, err
}

func (s *redisStore) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	return s.client.Set(ctx, key, value, expiration).Err()
}

func (s *redisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

type memoryStore struct {
	c *gocache.Cache
}

// NewMemoryStore creates an in-process store. It is only coherent within a single instance.
func NewMemoryStore(defaultExpiration, cleanupInterval time.Duration) Store {
	return &memoryStore{c: gocache.New(defaultExpiration, cleanupInterval)}
}

func (s *memoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if v, found := s.c.Get(key); found {
		return v.([]byte), nil
	}
	return nil, ErrMiss
}

func (s *memoryStore) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	s.c.Set(key, value, expiration)
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		s.c.Delete(key)
	}
	return nil
}
