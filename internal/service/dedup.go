package service

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper suppresses duplicate webhook deliveries. MarkSeen records the
// event ID and reports whether it had already been recorded within the TTL.
type Deduper interface {
	MarkSeen(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
}

const dedupKeyPrefix = "form-filer:event:"

// RedisDeduper backs deduplication with Redis so replays are caught across
// restarts and replicas.
type RedisDeduper struct {
	client *redis.Client
}

// NewRedisDeduper wraps an existing client.
func NewRedisDeduper(client *redis.Client) *RedisDeduper {
	return &RedisDeduper{client: client}
}

func (d *RedisDeduper) MarkSeen(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	stored, err := d.client.SetNX(ctx, dedupKeyPrefix+eventID, "1", ttl).Result()
	if err != nil {
		return false, err
	}
	return !stored, nil
}

// MemoryDeduper is the in-process fallback when Redis is not configured.
// Expired entries are pruned lazily on access.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

// NewMemoryDeduper returns an empty deduper.
func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{seen: map[string]time.Time{}}
}

func (d *MemoryDeduper) MarkSeen(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	for id, expiry := range d.seen {
		if expiry.Before(now) {
			delete(d.seen, id)
		}
	}

	if _, ok := d.seen[eventID]; ok {
		return true, nil
	}
	d.seen[eventID] = now.Add(ttl)
	return false, nil
}
