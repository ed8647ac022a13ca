// Package config provides environment-based configuration for the application.
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

// Config holds all application configuration loaded from the environment.
type Config struct {
	Env         string
	HTTPAddr    string
	DatabaseURL string

	CORSAllowAll   bool
	CORSOrigins    []string
	CORSAllowCreds bool

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int
	ReconcileCron    string

	CRMBaseURL   string
	CRMAPIKey    string
	CRMAccountID string

	GeoBaseURL  string
	GeoCacheTTL time.Duration

	RoutingTopK        int
	MaxReassignments   int
	CRMPushMaxAttempts int
}

// Narrow config interfaces let modules depend only on the settings they use.

// DatabaseConfig exposes database settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// HTTPConfig exposes HTTP server settings.
type HTTPConfig interface {
	GetEnv() string
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig exposes background-job settings.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetReconcileCron() string
}

// CRMConfig exposes source-of-truth CRM settings.
type CRMConfig interface {
	GetCRMBaseURL() string
	GetCRMAPIKey() string
	GetCRMAccountID() string
}

// GeoConfig exposes geo lookup settings.
type GeoConfig interface {
	GetGeoBaseURL() string
	GetGeoCacheTTL() time.Duration
}

// RoutingConfig exposes matching/selection tuning knobs.
type RoutingConfig interface {
	GetRoutingTopK() int
	GetMaxReassignments() int
}

func (c *Config) GetDatabaseURL() string        { return c.DatabaseURL }
func (c *Config) GetEnv() string                { return c.Env }
func (c *Config) GetHTTPAddr() string           { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool         { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string      { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool       { return c.CORSAllowCreds }
func (c *Config) GetRedisURL() string           { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool     { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string     { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int      { return c.AsynqConcurrency }
func (c *Config) GetReconcileCron() string      { return c.ReconcileCron }
func (c *Config) GetCRMBaseURL() string         { return c.CRMBaseURL }
func (c *Config) GetCRMAPIKey() string          { return c.CRMAPIKey }
func (c *Config) GetCRMAccountID() string       { return c.CRMAccountID }
func (c *Config) GetGeoBaseURL() string         { return c.GeoBaseURL }
func (c *Config) GetGeoCacheTTL() time.Duration { return c.GeoCacheTTL }
func (c *Config) GetRoutingTopK() int           { return c.RoutingTopK }
func (c *Config) GetMaxReassignments() int      { return c.MaxReassignments }
func (c *Config) GetCRMPushMaxAttempts() int    { return c.CRMPushMaxAttempts }

// Load reads configuration from the environment, applying defaults and
// validating required settings.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:         getEnv("APP_ENV", "development"),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		CORSAllowAll:   corsAllowAll,
		CORSOrigins:    corsOrigins,
		CORSAllowCreds: strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),

		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		ReconcileCron:    getEnv("RECONCILE_CRON", "0 * * * *"),

		CRMBaseURL:   getEnv("CRM_BASE_URL", ""),
		CRMAPIKey:    getEnv("CRM_API_KEY", ""),
		CRMAccountID: getEnv("CRM_ACCOUNT_ID", ""),

		GeoBaseURL:  getEnv("GEO_BASE_URL", ""),
		GeoCacheTTL: mustDuration(getEnv("GEO_CACHE_TTL", "168h")),

		RoutingTopK:        mustInt(getEnv("ROUTING_TOP_K", "3")),
		MaxReassignments:   mustInt(getEnv("ROUTING_MAX_REASSIGNMENTS", "3")),
		CRMPushMaxAttempts: mustInt(getEnv("CRM_PUSH_MAX_ATTEMPTS", "5")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.CRMBaseURL != "" && cfg.CRMAccountID == "" {
		return nil, fmt.Errorf("CRM_ACCOUNT_ID is required when CRM_BASE_URL is set")
	}
	if cfg.RoutingTopK < 1 {
		return nil, fmt.Errorf("ROUTING_TOP_K must be at least 1")
	}
	if cfg.MaxReassignments < 0 {
		return nil, fmt.Errorf("ROUTING_MAX_REASSIGNMENTS must not be negative")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
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
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return n
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
