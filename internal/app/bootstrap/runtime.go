package bootstrap

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/whatsapp-intake-agent/internal/config"
	"github.com/wolfman30/whatsapp-intake-agent/internal/events"
	"github.com/wolfman30/whatsapp-intake-agent/internal/session"
	"github.com/wolfman30/whatsapp-intake-agent/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when the redis
// session backend is not selected. When verify is true, a ping is issued and
// failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || !cfg.UseRedis() {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available; falling back to in-memory sessions", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildSessionStore returns the Redis-backed store when a client is
// available, otherwise the in-process map.
func BuildSessionStore(redisClient *redis.Client, cfg *appconfig.Config, logger *logging.Logger) session.Store {
	if logger == nil {
		logger = logging.Default()
	}
	if redisClient == nil {
		logger.Info("session store: memory")
		return session.NewMemoryStore()
	}
	prefix := ""
	if cfg != nil {
		prefix = cfg.SessionKeyPrefix
	}
	logger.Info("session store: redis", "prefix", prefix)
	return session.NewRedisStore(redisClient, prefix)
}

// BuildProcessedStore returns the redelivery guard matching the session backend.
func BuildProcessedStore(redisClient *redis.Client, cfg *appconfig.Config) events.ProcessedStore {
	var ttl time.Duration
	if cfg != nil {
		ttl = cfg.DedupeTTL
	}
	if redisClient == nil {
		return events.NewMemoryProcessedStore(ttl)
	}
	return events.NewRedisProcessedStore(redisClient, ttl)
}
