package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string
	LogLevel    slog.Level

	// Event storage: "pocketbase" or "mongo"
	EventStore    string
	MongoURI      string
	MongoDatabase string

	// Redis configuration
	RedisURL  string
	KeyPrefix string

	// RabbitMQ configuration
	RabbitURL string

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string
	PubNubUserID       string

	// Timeout configuration
	SeatLockTimeout time.Duration
	SelectionTTL    time.Duration
	HandoffTTL      time.Duration
	PaymentTimeout  time.Duration

	// Handoff record signing
	HandoffSecret string

	// Rate limiting
	RateLimitPerMinute  int
	// Headers set by a reverse proxy that carry the client IP, e.g. X-Real-IP.
	// Empty means the connection address is used.
	TrustedProxyHeaders []string

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
}

// LoadConfig reads the configuration from the environment. A .env file in the
// working directory is loaded first when present; real environment variables win.
func LoadConfig() *Config {
	if err := godotenv.Load(); err == nil {
		slog.Debug("Loaded .env file")
	}

	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnvAsLogLevel("LOG_LEVEL", slog.LevelInfo),

		// Storage
		EventStore:    getEnv("EVENT_STORE", "pocketbase"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "ticketing"),

		// Redis
		RedisURL:  getEnv("REDIS_URL", "localhost:6379"),
		KeyPrefix: getEnv("REDIS_KEY_PREFIX", "ts:"),

		// RabbitMQ
		RabbitURL: getEnv("RABBIT_URL", ""),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),
		PubNubUserID:       getEnv("PUBNUB_USER_ID", "ticket-seating"),

		// Timeouts
		SeatLockTimeout: getEnvAsDuration("SEAT_LOCK_TIMEOUT", "5m"),
		SelectionTTL:    getEnvAsDuration("SELECTION_TTL", "30m"),
		HandoffTTL:      getEnvAsDuration("HANDOFF_TTL", "30m"),
		PaymentTimeout:  getEnvAsDuration("PAYMENT_TIMEOUT", "10m"),

		HandoffSecret: getEnv("HANDOFF_SECRET", ""),

		RateLimitPerMinute:  getEnvAsInt("RATE_LIMIT_PER_MINUTE", 120),
		TrustedProxyHeaders: getEnvAsList("TRUSTED_PROXY_HEADERS"),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

func getEnvAsList(key string) []string {
	var values []string
	for _, v := range strings.Split(getEnv(key, ""), ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

func getEnvAsLogLevel(key string, defaultValue slog.Level) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(getEnv(key, "")))); err == nil {
		return level
	}
	return defaultValue
}
