package mask

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Store is the cache backend for generated masks. It is a soft optimization:
// implementations may lose entries at any time, and a miss always triggers
// regeneration.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

// MemoryStore keeps masks in process memory with TTL eviction.
type MemoryStore struct {
	cache *gocache.Cache
}

// NewMemoryStore creates an in-memory store. Entries expire after ttl and are
// swept at twice that interval.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{cache: gocache.New(ttl, 2*ttl)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool) {
	v, ok := s.cache.Get(key)
	if !ok {
		return nil, false
	}
	data, ok := v.([]byte)
	return data, ok
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	s.cache.Set(key, value, ttl)
}

// RedisStore shares masks across processes through Redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed store for the given address.
func NewRedisStore(addr string) *RedisStore {
	return &RedisStore{client: redis.NewClient(&redis.Options{Addr: addr})}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		// Treat transport errors the same as misses.
		return nil, false
	}
	return data, true
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	_ = s.client.Set(ctx, key, value, ttl).Err()
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*RedisStore)(nil)
)
