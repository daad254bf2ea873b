package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	Port int
	Env  string

	// CORS
	AllowedOrigins []string

	// Database URLs
	PostgresURL   string
	ClickHouseURL string
	RedisURL      string

	// Riot API
	RiotAPIKey  string
	RiotBaseURL string

	// Object storage
	DataBucket   string
	ModelsBucket string
	AWSRegion    string
	S3Endpoint   string

	// Feature writer pool
	WorkerCount   int
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration

	// Pipeline
	ExtractWorkers     int
	CollectConcurrency int
	MatchCacheTTL      time.Duration

	// Season metrics read cache
	MetricsCacheSize int
	MetricsCacheTTL  time.Duration

	ShutdownTimeout time.Duration
}

// Load loads configuration from environment variables.
// It returns an error if critical configuration is missing.
func Load() (*Config, error) {
	cfg := &Config{
		Port: getEnvInt("PORT", 8080),
		Env:  getEnv("ENV", "development"),

		RiotBaseURL: getEnv("RIOT_BASE_URL", ""),

		AWSRegion:  getEnv("AWS_REGION", "us-east-1"),
		S3Endpoint: getEnv("S3_ENDPOINT", ""),

		WorkerCount:   getEnvInt("WORKER_COUNT", 4),
		QueueSize:     getEnvInt("QUEUE_SIZE", 10000),
		BatchSize:     getEnvInt("BATCH_SIZE", 500),
		FlushInterval: getEnvDuration("FLUSH_INTERVAL", 1*time.Second),

		ExtractWorkers:     getEnvInt("EXTRACT_WORKERS", 8),
		CollectConcurrency: getEnvInt("COLLECT_CONCURRENCY", 4),
		MatchCacheTTL:      getEnvDuration("MATCH_CACHE_TTL", 24*time.Hour),

		MetricsCacheSize: getEnvInt("METRICS_CACHE_SIZE", 1024),
		MetricsCacheTTL:  getEnvDuration("METRICS_CACHE_TTL", 5*time.Minute),

		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}

	// CORS
	origins := getEnv("ALLOWED_ORIGINS", "http://localhost:3000")
	rawOrigins := strings.Split(origins, ",")
	for _, o := range rawOrigins {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
		}
	}

	// Critical configuration - fail if missing
	var err error
	if cfg.PostgresURL, err = getEnvRequired("POSTGRES_URL"); err != nil {
		return nil, err
	}
	if cfg.ClickHouseURL, err = getEnvRequired("CLICKHOUSE_URL"); err != nil {
		return nil, err
	}
	if cfg.RedisURL, err = getEnvRequired("REDIS_URL"); err != nil {
		return nil, err
	}
	if cfg.RiotAPIKey, err = getEnvRequired("RIOT_API_KEY"); err != nil {
		return nil, err
	}
	if cfg.DataBucket, err = getEnvRequired("DATA_BUCKET"); err != nil {
		return nil, err
	}
	if cfg.ModelsBucket, err = getEnvRequired("MODELS_BUCKET"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsProduction reports whether the service runs with production logging.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvRequired(key string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("missing required environment variable: %s", key)
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
