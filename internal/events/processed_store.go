package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var errEmptyEventID = errors.New("events: empty event id")

// ProcessedStore records inbound provider events that were already handled so
// webhook redeliveries do not advance a conversation twice.
type ProcessedStore interface {
	// IsProcessed reports whether the event was already recorded.
	IsProcessed(ctx context.Context, provider, eventID string) (bool, error)
	// MarkProcessed records the event, returning false if it was already present.
	MarkProcessed(ctx context.Context, provider, eventID string) (bool, error)
}

const maxSweepInterval = time.Minute

// MemoryProcessedStore keeps markers in process memory for ttl. Expired
// markers are swept at most once per sweep interval.
type MemoryProcessedStore struct {
	mu        sync.Mutex
	seen      map[string]time.Time
	ttl       time.Duration
	sweep     time.Duration
	nextSweep time.Time
	now       func() time.Time
}

// NewMemoryProcessedStore creates an in-memory store. A non-positive ttl defaults to 24h.
func NewMemoryProcessedStore(ttl time.Duration) *MemoryProcessedStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	sweep := ttl
	if sweep > maxSweepInterval {
		sweep = maxSweepInterval
	}
	return &MemoryProcessedStore{
		seen:  make(map[string]time.Time),
		ttl:   ttl,
		sweep: sweep,
		now:   time.Now,
	}
}

func (s *MemoryProcessedStore) IsProcessed(_ context.Context, provider, eventID string) (bool, error) {
	if strings.TrimSpace(eventID) == "" {
		return false, errEmptyEventID
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	expires, ok := s.seen[provider+":"+eventID]
	return ok && now.Before(expires), nil
}

func (s *MemoryProcessedStore) MarkProcessed(_ context.Context, provider, eventID string) (bool, error) {
	if strings.TrimSpace(eventID) == "" {
		return false, errEmptyEventID
	}
	key := provider + ":" + eventID
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.maybeSweepLocked(now)
	if expires, ok := s.seen[key]; ok && now.Before(expires) {
		return false, nil
	}
	s.seen[key] = now.Add(s.ttl)
	return true, nil
}

func (s *MemoryProcessedStore) maybeSweepLocked(now time.Time) {
	if now.Before(s.nextSweep) {
		return
	}
	s.nextSweep = now.Add(s.sweep)
	for k, expires := range s.seen {
		if !now.Before(expires) {
			delete(s.seen, k)
		}
	}
}

// RedisProcessedStore keeps markers in Redis with a TTL.
type RedisProcessedStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisProcessedStore creates a Redis-backed store. A non-positive ttl defaults to 24h.
func NewRedisProcessedStore(client *redis.Client, ttl time.Duration) *RedisProcessedStore {
	if client == nil {
		panic("events: redis client required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisProcessedStore{redis: client, ttl: ttl}
}

func (s *RedisProcessedStore) key(provider, eventID string) string {
	return fmt.Sprintf("processed:%s:%s", provider, eventID)
}

func (s *RedisProcessedStore) IsProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	if strings.TrimSpace(eventID) == "" {
		return false, errEmptyEventID
	}
	n, err := s.redis.Exists(ctx, s.key(provider, eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("events: check processed: %w", err)
	}
	return n > 0, nil
}

func (s *RedisProcessedStore) MarkProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	if strings.TrimSpace(eventID) == "" {
		return false, errEmptyEventID
	}
	ok, err := s.redis.SetNX(ctx, s.key(provider, eventID), 1, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("events: mark processed: %w", err)
	}
	return ok, nil
}
