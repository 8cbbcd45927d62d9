package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds everything the server, the worker and the CLI read from the
// environment. A single struct keeps the three binaries in agreement about
// variable names and defaults.
type Config struct {
	// Core services
	DatabaseURL      string
	RabbitMQURL      string
	RabbitMQPrefetch int
	RedisURL         string

	// HTTP surface
	ServerPort  string
	BaseURL     string
	FrontendURL string
	EnableHSTS  bool

	// Timeline catalog and sharing
	CatalogPath      string
	ShareTokenSecret string
	RateLimitRate    string

	// AI suggestions
	AIProvider string
	AIModel    string
	AIBaseURL  string
	OpenAIKey  string

	// Diagnostics
	ServerDebugMode bool
	WorkerDebugMode bool
	OTELEnabled     bool
	OTELEndpoint    string
}

// Load reads the environment and validates the variables that have no usable
// default.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:      envOr("DATABASE_URL", ""),
		RabbitMQURL:      envOr("RABBITMQ_URL", ""),
		RabbitMQPrefetch: envIntOr("RABBITMQ_PREFETCH", 1),
		RedisURL:         envOr("REDIS_URL", "redis://localhost:6379/0"),
		ServerPort:       envOr("SERVER_PORT", "8080"),
		BaseURL:          envOr("BASE_URL", "http://localhost:8080"),
		FrontendURL:      envOr("FRONTEND_URL", "http://localhost:3000"),
		EnableHSTS:       envBoolOr("ENABLE_HSTS", false),
		CatalogPath:      envOr("CATALOG_PATH", "configs/questions.yaml"),
		ShareTokenSecret: envOr("SHARE_TOKEN_SECRET", ""),
		RateLimitRate:    envOr("RATE_LIMIT_RATE", ""),
		AIProvider:       envOr("AI_PROVIDER", "openai"),
		AIModel:          envOr("AI_MODEL", ""),
		AIBaseURL:        envOr("AI_BASE_URL", ""),
		OpenAIKey:        envOr("OPENAI_API_KEY", ""),
		ServerDebugMode:  envBoolOr("SERVER_DEBUG_MODE", false),
		WorkerDebugMode:  envBoolOr("WORKER_DEBUG_MODE", false),
		OTELEnabled:      envBoolOr("OTEL_ENABLED", false),
		OTELEndpoint:     envOr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	switch {
	case cfg.DatabaseURL == "":
		return nil, fmt.Errorf("DATABASE_URL is required")
	case cfg.RabbitMQURL == "":
		return nil, fmt.Errorf("RABBITMQ_URL is required for job queueing (suggestion jobs require RabbitMQ)")
	case cfg.ShareTokenSecret == "":
		return nil, fmt.Errorf("SHARE_TOKEN_SECRET is required for share links")
	}

	return cfg, nil
}

// envOr returns the variable's value, or fallback when unset or empty.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envBoolOr accepts "true", "1" and "yes" as true; anything else is false.
func envBoolOr(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v == "true" || v == "1" || v == "yes"
}

// envIntOr falls back on unset, empty or unparseable values.
func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
