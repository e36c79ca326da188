// Package config provides configuration management for the cache engine.
// It handles loading configuration from environment variables with sensible
// defaults and validates the configuration so the process starts safely.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Ops server port (default: 8090)
//   - LOG_LEVEL: Logging level (default: info)
//   - OPTIMIZE_SCHEDULE: Cron expression for periodic optimization (default: @every 10m)
//
// Distributed Tier:
//   - REDIS_ENABLED: Whether the distributed tier is attempted (default: true)
//   - REDIS_HOST: Redis host (default: localhost)
//   - REDIS_PORT: Redis port (default: 6379)
//   - REDIS_PASSWORD: Redis password
//   - REDIS_DB: Redis database number 0-15 (default: 0)
//   - REDIS_KEY_PREFIX: Global key prefix (default: medcache:)
//   - REDIS_DEFAULT_TTL: Fallback TTL for entries without one (default: 1h)
//
// Local Tier:
//   - LOCAL_CACHE_ENABLED: Whether the in-process tier is used (default: true)
//   - LOCAL_CACHE_TTL: Default local TTL (default: 5m)
//   - LOCAL_CACHE_SWEEP_INTERVAL: Expired-entry sweep interval (default: 1m)
//   - LOCAL_CACHE_MAX_KEYS: Advisory maximum entry count (default: 1000)
//
// Transforms:
//   - CACHE_ENCRYPTION_KEY: Passphrase for the encrypt transform (required
//     when an enabled strategy declares it)
//
// Per-strategy overrides, where <NAME> is the upper-snake strategy name
// (e.g. MEDICAL_DATA for medicalData):
//   - CACHE_STRATEGY_<NAME>_ENABLED
//   - CACHE_STRATEGY_<NAME>_TTL
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Config holds all configuration values for the cache engine
type Config struct {
	// Application settings
	Port             string
	LogLevel         string
	OptimizeSchedule string

	// Distributed tier
	RedisEnabled    bool
	RedisHost       string
	RedisPort       string
	RedisPassword   string
	RedisDB         int
	RedisKeyPrefix  string
	RedisDefaultTTL time.Duration

	// Local tier
	LocalEnabled       bool
	LocalTTL           time.Duration
	LocalSweepInterval time.Duration
	LocalMaxKeys       int

	// Transforms
	EncryptionKey string
}

// StrategyOverride carries the per-strategy settings the environment
// overrides; nil fields keep the built-in defaults
type StrategyOverride struct {
	Enabled *bool
	TTL     *time.Duration
}

// Load creates a new Config instance with values loaded from environment
// variables, falling back to defaults. Call Validate() before use.
func Load() *Config {
	return &Config{
		Port:             getEnv("PORT", "8090"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		OptimizeSchedule: getEnv("OPTIMIZE_SCHEDULE", "@every 10m"),

		RedisEnabled:    getBoolEnv("REDIS_ENABLED", true),
		RedisHost:       getEnv("REDIS_HOST", "localhost"),
		RedisPort:       getEnv("REDIS_PORT", "6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getIntEnv("REDIS_DB", 0),
		RedisKeyPrefix:  getEnv("REDIS_KEY_PREFIX", "medcache:"),
		RedisDefaultTTL: getDurationEnv("REDIS_DEFAULT_TTL", time.Hour),

		LocalEnabled:       getBoolEnv("LOCAL_CACHE_ENABLED", true),
		LocalTTL:           getDurationEnv("LOCAL_CACHE_TTL", 5*time.Minute),
		LocalSweepInterval: getDurationEnv("LOCAL_CACHE_SWEEP_INTERVAL", time.Minute),
		LocalMaxKeys:       getIntEnv("LOCAL_CACHE_MAX_KEYS", 1000),

		EncryptionKey: getEnv("CACHE_ENCRYPTION_KEY", ""),
	}
}

// StrategyOverrides reads the per-strategy environment overrides for the
// given strategy names. Unparseable values keep the built-in defaults.
func StrategyOverrides(names []string) map[string]StrategyOverride {
	overrides := make(map[string]StrategyOverride)
	for _, name := range names {
		key := "CACHE_STRATEGY_" + envName(name)
		var override StrategyOverride

		if value := os.Getenv(key + "_ENABLED"); value != "" {
			if parsed, err := strconv.ParseBool(value); err == nil {
				override.Enabled = &parsed
			}
		}
		if value := os.Getenv(key + "_TTL"); value != "" {
			if parsed, err := time.ParseDuration(value); err == nil {
				override.TTL = &parsed
			}
		}

		if override.Enabled != nil || override.TTL != nil {
			overrides[name] = override
		}
	}
	return overrides
}

// envName converts a camelCase strategy name to its UPPER_SNAKE env segment
func envName(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) && i > 0 {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// getEnv retrieves an environment variable value or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnv retrieves a boolean environment variable or returns a default
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getIntEnv retrieves an integer environment variable or returns a default
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getDurationEnv retrieves a duration environment variable or returns a default
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Validate checks required fields and value ranges. Call after Load and
// before starting.
func (c *Config) Validate() error {
	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a valid port number between 1 and 65535")
	}

	if c.RedisEnabled {
		if c.RedisDB < 0 || c.RedisDB > 15 {
			return fmt.Errorf("REDIS_DB must be a number between 0 and 15")
		}
		if port, err := strconv.Atoi(c.RedisPort); err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("REDIS_PORT must be a valid port number")
		}
		if c.RedisDefaultTTL <= 0 {
			return fmt.Errorf("REDIS_DEFAULT_TTL must be a positive duration")
		}
	}

	if c.LocalEnabled {
		if c.LocalTTL <= 0 {
			return fmt.Errorf("LOCAL_CACHE_TTL must be a positive duration")
		}
		if c.LocalSweepInterval <= 0 {
			return fmt.Errorf("LOCAL_CACHE_SWEEP_INTERVAL must be a positive duration")
		}
		if c.LocalMaxKeys < 1 {
			return fmt.Errorf("LOCAL_CACHE_MAX_KEYS must be a positive number")
		}
	}

	if !c.RedisEnabled && !c.LocalEnabled {
		return fmt.Errorf("at least one cache tier must be enabled")
	}

	if c.OptimizeSchedule == "" {
		return fmt.Errorf("OPTIMIZE_SCHEDULE must not be empty")
	}

	return nil
}
