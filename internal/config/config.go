package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Session backends understood by cmd/api.
const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// WhatsApp Cloud API
	WhatsAppToken        string
	WhatsAppAppSecret    string
	WhatsAppVerifyToken  string
	WhatsAppGraphAPIBase string

	// Session storage
	SessionBackend   string
	SessionKeyPrefix string
	RedisAddr        string
	RedisPassword    string
	RedisTLS         bool
	DedupeTTL        time.Duration

	// Outbound delivery
	DeliveryWorkers        int
	DeliveryQueueSize      int
	DeliveryTimeout        time.Duration
	DeliveryMaxAttempts    int
	DeliveryRetryBaseDelay time.Duration

	// Conversation behaviour
	UnexpectedInputFeedback bool
	CaptureExperience       bool
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		WhatsAppToken:        getEnv("WHATSAPP_TOKEN", ""),
		WhatsAppAppSecret:    getEnv("WHATSAPP_APP_SECRET", ""),
		WhatsAppVerifyToken:  getEnv("WHATSAPP_VERIFY_TOKEN", ""),
		WhatsAppGraphAPIBase: strings.TrimRight(getEnv("WHATSAPP_GRAPH_API_BASE", "https://graph.facebook.com/v18.0"), "/"),

		SessionBackend:   strings.ToLower(strings.TrimSpace(getEnv("SESSION_BACKEND", SessionBackendMemory))),
		SessionKeyPrefix: getEnv("SESSION_KEY_PREFIX", "intake:session"),
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisTLS:         getEnvAsBool("REDIS_TLS", false),
		DedupeTTL:        getEnvAsDuration("DEDUPE_TTL", 24*time.Hour),

		DeliveryWorkers:        getEnvAsInt("DELIVERY_WORKERS", 4),
		DeliveryQueueSize:      getEnvAsInt("DELIVERY_QUEUE_SIZE", 256),
		DeliveryTimeout:        getEnvAsDuration("DELIVERY_TIMEOUT", 10*time.Second),
		DeliveryMaxAttempts:    getEnvAsInt("DELIVERY_MAX_ATTEMPTS", 3),
		DeliveryRetryBaseDelay: getEnvAsDuration("DELIVERY_RETRY_BASE_DELAY", 200*time.Millisecond),

		UnexpectedInputFeedback: getEnvAsBool("UNEXPECTED_INPUT_FEEDBACK", false),
		CaptureExperience:       getEnvAsBool("CAPTURE_EXPERIENCE", false),
	}
}

// UseRedis reports whether sessions and dedupe markers live in Redis.
func (c *Config) UseRedis() bool {
	return c.SessionBackend == SessionBackendRedis && strings.TrimSpace(c.RedisAddr) != ""
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
