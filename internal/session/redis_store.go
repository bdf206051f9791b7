package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "intake:session"

// RedisStore persists sessions as JSON blobs keyed by user identifier.
// Keys carry no TTL; sessions live until removed out of band.
type RedisStore struct {
	redis  *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed store. An empty prefix uses the default.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{redis: client, prefix: prefix}
}

var _ Store = (*RedisStore)(nil)

func (s *RedisStore) key(id string) string {
	return fmt.Sprintf("%s:%s", s.prefix, id)
}

// GetOrCreate loads the session for id or creates it with SETNX so that two
// racing creators agree on a single record.
func (s *RedisStore) GetOrCreate(ctx context.Context, id string) (*Session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrEmptyID
	}
	sess, err := s.get(ctx, id)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, redis.Nil) {
		return nil, err
	}

	fresh := New(id)
	data, err := json.Marshal(fresh)
	if err != nil {
		return nil, fmt.Errorf("session: marshal: %w", err)
	}
	created, err := s.redis.SetNX(ctx, s.key(id), data, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("session: create: %w", err)
	}
	if created {
		return fresh, nil
	}
	sess, err = s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Save overwrites the stored session.
func (s *RedisStore) Save(ctx context.Context, sess *Session) error {
	if sess == nil || strings.TrimSpace(sess.ID) == "" {
		return ErrEmptyID
	}
	cp := sess.Clone()
	cp.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("session: marshal: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(sess.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	return nil
}

func (s *RedisStore) get(ctx context.Context, id string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(id)).Bytes()
	if err == redis.Nil {
		return nil, redis.Nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: get: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		// Surface the record as corrupt state instead of failing every
		// later message from this user.
		unreadable := New(id)
		unreadable.State = StateUnreadable
		return unreadable, nil
	}
	// The key is authoritative for identity.
	sess.ID = id
	return &sess, nil
}
