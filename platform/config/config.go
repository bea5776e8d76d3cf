// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// AIConfig provides settings for the AI completion service adapter.
type AIConfig interface {
	GetCompletionAPIKey() string
	GetCompletionBaseURL() string
	GetCompletionModel() string
	GetCompletionTimeout() time.Duration
	GetCompletionRequestsPerMinute() int
	IsAIEnabled() bool
}

// SchedulerConfig provides settings for the asynq follow-up scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// CacheConfig provides settings for the redis historical-outcome cache.
type CacheConfig interface {
	GetRedisURL() string
	GetHistoricalCacheTTL() time.Duration
}

// ScoringConfig provides the deployment-tunable qualification knobs.
type ScoringConfig interface {
	GetScoringBaseScore() float64
	GetInterestScaleMax() int
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                         string
	HTTPAddr                    string
	DatabaseURL                 string
	RedisURL                    string
	RedisTLSInsecure            bool
	AsynqQueueName              string
	AsynqConcurrency            int
	CORSAllowAll                bool
	CORSOrigins                 []string
	CORSAllowCreds              bool
	CompletionAPIKey            string
	CompletionBaseURL           string
	CompletionModel             string
	CompletionTimeout           time.Duration
	CompletionRequestsPerMinute int
	AIEnabled                   bool
	HistoricalCacheTTL          time.Duration
	ScoringBaseScore            float64
	InterestScaleMax            int
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// AIConfig implementation
func (c *Config) GetCompletionAPIKey() string           { return c.CompletionAPIKey }
func (c *Config) GetCompletionBaseURL() string          { return c.CompletionBaseURL }
func (c *Config) GetCompletionModel() string            { return c.CompletionModel }
func (c *Config) GetCompletionTimeout() time.Duration   { return c.CompletionTimeout }
func (c *Config) GetCompletionRequestsPerMinute() int   { return c.CompletionRequestsPerMinute }
func (c *Config) IsAIEnabled() bool {
	return c.AIEnabled && c.CompletionAPIKey != ""
}

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string      { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// CacheConfig implementation
func (c *Config) GetHistoricalCacheTTL() time.Duration { return c.HistoricalCacheTTL }

// ScoringConfig implementation
func (c *Config) GetScoringBaseScore() float64 { return c.ScoringBaseScore }
func (c *Config) GetInterestScaleMax() int     { return c.InterestScaleMax }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                         getEnv("APP_ENV", "development"),
		HTTPAddr:                    getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:                 getEnv("DATABASE_URL", ""),
		RedisURL:                    getEnv("REDIS_URL", ""),
		RedisTLSInsecure:            strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:              getEnv("ASYNQ_QUEUE", "followups"),
		AsynqConcurrency:            mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		CORSAllowAll:                corsAllowAll,
		CORSOrigins:                 corsOrigins,
		CORSAllowCreds:              strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		CompletionAPIKey:            getEnv("COMPLETION_API_KEY", ""),
		CompletionBaseURL:           getEnv("COMPLETION_BASE_URL", "https://api.moonshot.ai/v1"),
		CompletionModel:             getEnv("COMPLETION_MODEL", "kimi-k2-turbo-preview"),
		CompletionTimeout:           mustDuration(getEnv("COMPLETION_TIMEOUT", "20s")),
		CompletionRequestsPerMinute: mustInt(getEnv("COMPLETION_REQUESTS_PER_MINUTE", "30")),
		AIEnabled:                   strings.EqualFold(getEnv("AI_ENABLED", "true"), "true"),
		HistoricalCacheTTL:          mustDuration(getEnv("HISTORICAL_CACHE_TTL", "5m")),
		ScoringBaseScore:            mustFloat(getEnv("SCORING_BASE_SCORE", "20")),
		InterestScaleMax:            mustInt(getEnv("SCORING_INTEREST_SCALE_MAX", "5")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.CompletionTimeout <= 0 {
		return nil, fmt.Errorf("COMPLETION_TIMEOUT must be a positive duration")
	}
	if cfg.InterestScaleMax != 5 && cfg.InterestScaleMax != 10 {
		return nil, fmt.Errorf("SCORING_INTEREST_SCALE_MAX must be 5 or 10")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
