// Package ratelimit bounds repeated attempts per key within a fixed window.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter allows at most Max attempts per key within Window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// Memory is a process local fixed-window limiter.
type Memory struct {
	mu         sync.Mutex
	now        func() time.Time
	max        int
	window     time.Duration
	maxEntries int
	entries    map[string]memoryEntry
}

type memoryEntry struct {
	attempts  int
	expiresAt time.Time
}

// NewMemory constructs an in-process limiter.
func NewMemory(max int, window time.Duration, now func() time.Time) *Memory {
	if max <= 0 {
		max = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	if now == nil {
		now = time.Now
	}
	return &Memory{
		now:        now,
		max:        max,
		window:     window,
		maxEntries: 10000,
		entries:    make(map[string]memoryEntry),
	}
}

// Allow records an attempt and reports whether it is within the limit.
func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	entry, ok := m.entries[key]
	if !ok || !now.Before(entry.expiresAt) {
		m.cleanupLocked(now)
		if len(m.entries) >= m.maxEntries {
			m.evictOneLocked()
		}
		entry = memoryEntry{expiresAt: now.Add(m.window)}
	}
	entry.attempts++
	m.entries[key] = entry
	return entry.attempts <= m.max, nil
}

// Reset forgets the attempts recorded for key.
func (m *Memory) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) cleanupLocked(now time.Time) {
	for key, entry := range m.entries {
		if !now.Before(entry.expiresAt) {
			delete(m.entries, key)
		}
	}
}

func (m *Memory) evictOneLocked() {
	for key := range m.entries {
		delete(m.entries, key)
		return
	}
}

// Redis is a fixed-window limiter shared by every process using the same Redis instance.
type Redis struct {
	client *redis.Client
	prefix string
	max    int64
	window time.Duration
}

// NewRedis constructs a limiter storing counters under prefix.
func NewRedis(client *redis.Client, prefix string, max int, window time.Duration) *Redis {
	if prefix == "" {
		prefix = "ratelimit"
	}
	if max <= 0 {
		max = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &Redis{client: client, prefix: prefix, max: int64(max), window: window}
}

// Allow increments the counter for key, starting its window on the first attempt.
// The increment and the expiry run in one MULTI/EXEC.
func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := r.key(key)
	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.ExpireNX(ctx, redisKey, r.window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("ratelimit: record attempt: %w", err)
	}
	return incr.Val() <= r.max, nil
}

// Reset deletes the counter for key.
func (r *Redis) Reset(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("ratelimit: reset: %w", err)
	}
	return nil
}

func (r *Redis) key(key string) string {
	return r.prefix + ":" + key
}

// Connect parses a redis:// URL and verifies the server answers.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ratelimit: ping redis: %w", err)
	}
	return client, nil
}
