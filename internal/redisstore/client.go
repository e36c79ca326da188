// Package redisstore wraps the networked Redis tier. The client connects
// once at construction; a failed attempt permanently degrades the tier for
// the process lifetime and every operation becomes a cheap no-op. Cache
// failures never break the caller, so operations return typed errors for the
// orchestrator to count and convert to misses.
package redisstore

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"medcache/internal/errors"
)

// State describes the client's lifecycle state
type State string

const (
	// StateDisabled means the tier was never enabled by configuration
	StateDisabled State = "disabled"
	// StateConnecting means the startup connection attempt is in flight
	StateConnecting State = "connecting"
	// StateConnected means the startup connection attempt succeeded
	StateConnected State = "connected"
	// StateDegraded means the startup connection attempt failed; terminal
	// for the process lifetime
	StateDegraded State = "degraded"
)

// opTimeout bounds every tier operation so no caller blocks indefinitely
const opTimeout = 5 * time.Second

// Config holds the distributed tier settings
type Config struct {
	Enabled    bool          `json:"enabled"`
	Host       string        `json:"host"`
	Port       string        `json:"port"`
	Password   string        `json:"password"`
	DB         int           `json:"db"`
	DefaultTTL time.Duration `json:"default_ttl"`
}

// Client is the distributed store client
type Client struct {
	rdb    *redis.Client
	config *Config
	logger *zap.Logger
	state  atomic.Value // State
}

// NewClient builds the client and attempts the single startup connection.
// Connection failure is not an error to the caller: the client comes back
// degraded and the orchestrator falls back to the local tier.
func NewClient(config *Config, logger *zap.Logger) *Client {
	c := &Client{
		config: config,
		logger: logger,
	}

	if !config.Enabled {
		c.state.Store(StateDisabled)
		return c
	}

	if config.Host == "" {
		config.Host = "localhost"
	}
	if config.Port == "" {
		config.Port = "6379"
	}

	c.state.Store(StateConnecting)

	rdb := redis.NewClient(&redis.Options{
		Addr:     config.Host + ":" + config.Port,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis connection failed, distributed tier degraded for process lifetime",
			zap.String("addr", config.Host+":"+config.Port),
			zap.Error(err))
		_ = rdb.Close()
		c.state.Store(StateDegraded)
		return c
	}

	c.rdb = rdb
	c.state.Store(StateConnected)
	logger.Info("redis connected", zap.String("addr", config.Host+":"+config.Port))
	return c
}

// State returns the current lifecycle state
func (c *Client) State() State {
	return c.state.Load().(State)
}

// Enabled reports whether operations should be attempted against this tier
func (c *Client) Enabled() bool {
	return c.State() == StateConnected
}

// DefaultTTL returns the tier's configured default TTL
func (c *Client) DefaultTTL() time.Duration {
	return c.config.DefaultTTL
}

// Close releases the underlying connection
func (c *Client) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// Health pings the server
func (c *Client) Health() error {
	if !c.Enabled() {
		return errors.ConnectionError("distributed tier not connected", nil)
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}

// Get returns the raw value for key. An absent key is (nil, false, nil).
func (c *Client) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if !c.Enabled() {
		return nil, false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	value, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.ConnectionError("redis get failed", err).WithContext("key", key)
	}
	return []byte(value), true, nil
}

// SetWithExpiry stores value under key with the given TTL. A zero ttl uses
// the tier's default TTL.
func (c *Client) SetWithExpiry(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if !c.Enabled() {
		return errors.ConnectionError("distributed tier not connected", nil)
	}

	if ttl <= 0 {
		ttl = c.config.DefaultTTL
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return errors.ConnectionError("redis set failed", err).WithContext("key", key)
	}
	return nil
}

// Delete removes key. A missing key is not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	if !c.Enabled() {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		return errors.ConnectionError("redis delete failed", err).WithContext("key", key)
	}
	return nil
}

// KeysMatching enumerates all keys under the given literal prefix. Glob
// metacharacters in the prefix are escaped before the trailing wildcard is
// appended, so a prefix containing "*" or "?" matches only itself.
func (c *Client) KeysMatching(ctx context.Context, prefix string) ([]string, error) {
	if !c.Enabled() {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	pattern := escapeGlob(prefix) + "*"
	iter := c.rdb.Scan(ctx, 0, pattern, 0).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, errors.ConnectionError("redis scan failed", err).WithContext("prefix", prefix)
	}
	return keys, nil
}

// DeleteMany removes the given keys in one round trip
func (c *Client) DeleteMany(ctx context.Context, keys []string) error {
	if !c.Enabled() || len(keys) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return errors.ConnectionError("redis bulk delete failed", err)
	}
	return nil
}

// escapeGlob escapes Redis glob metacharacters so a literal prefix cannot
// over- or under-match when used in a SCAN pattern
func escapeGlob(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`*`, `\*`,
		`?`, `\?`,
		`[`, `\[`,
		`]`, `\]`,
	)
	return replacer.Replace(s)
}
