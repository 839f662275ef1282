package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrSubmissionInFlight is returned while an earlier submit of the same form instance is pending
var ErrSubmissionInFlight = errors.New("submission already in flight")

// InFlight is the busy flag that blocks double submits of one form instance
type InFlight interface {
	// Acquire sets the flag, false if it was already set. The returned lease identifies
	// this holder to Release.
	Acquire(ctx context.Context, key string) (lease string, ok bool, err error)
	// Release clears the flag only while lease still holds it
	Release(ctx context.Context, key, lease string)
}

// MemoryInFlight keeps busy flags in process memory
type MemoryInFlight struct {
	mu   sync.Mutex
	keys map[string]string
}

func NewMemoryInFlight() *MemoryInFlight {
	return &MemoryInFlight{keys: make(map[string]string)}
}

func (m *MemoryInFlight) Acquire(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, busy := m.keys[key]; busy {
		return "", false, nil
	}
	lease := uuid.New().String()
	m.keys[key] = lease
	return lease, true, nil
}

func (m *MemoryInFlight) Release(ctx context.Context, key, lease string) {
	m.mu.Lock()
	if m.keys[key] == lease {
		delete(m.keys, key)
	}
	m.mu.Unlock()
}

// RedisInFlight shares busy flags between server instances. Flags expire after ttl so a
// crashed request cannot block its form forever.
type RedisInFlight struct {
	client *redis.Client
	ttl    time.Duration
}

const inFlightPrefix = "intake:inflight:"

// releaseScript deletes the flag only when it still holds the caller's lease
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func NewRedisInFlight(client *redis.Client, ttl time.Duration) *RedisInFlight {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisInFlight{client: client, ttl: ttl}
}

func (r *RedisInFlight) Acquire(ctx context.Context, key string) (string, bool, error) {
	lease := uuid.New().String()
	ok, err := r.client.SetNX(ctx, inFlightPrefix+key, lease, r.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return lease, true, nil
}

// Release leaves a flag alone once it expired and another submit took it
func (r *RedisInFlight) Release(ctx context.Context, key, lease string) {
	releaseScript.Run(ctx, r.client, []string{inFlightPrefix + key}, lease)
}

// NewRedisClient connects to REDIS_URL and checks the connection
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("redis url is empty")
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}
