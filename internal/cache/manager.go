// Package cache implements the tiered cache engine: a distributed Redis tier
// consulted first, an in-process local tier as fallback, named strategies
// gating every operation, and per-strategy transforms applied at the tier
// boundary.
//
// The engine is deliberately never the reason a caller-visible request
// fails: every tier failure is logged, counted, and converted to a miss or a
// false return.
package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"medcache/internal/errors"
	"medcache/internal/localstore"
	"medcache/internal/redisstore"
	"medcache/internal/strategy"
	"medcache/internal/transform"
)

// LocalConfig holds the in-process tier settings
type LocalConfig struct {
	Enabled       bool          `json:"enabled"`
	TTL           time.Duration `json:"ttl"`
	SweepInterval time.Duration `json:"sweep_interval"`
	MaxKeys       int           `json:"max_keys"`
}

// Config is the process-wide cache configuration, assembled once at startup
type Config struct {
	// KeyPrefix namespaces every key this process writes
	KeyPrefix string

	Redis redisstore.Config
	Local LocalConfig

	// Strategies overrides the built-in policy table; nil uses the defaults
	Strategies map[string]strategy.Policy

	// EncryptionKey is required when an enabled strategy declares the
	// encrypt transform
	EncryptionKey string

	// MetricsRegisterer receives the Prometheus mirrors of the metrics
	// collector; nil keeps them on a private registry
	MetricsRegisterer prometheus.Registerer
}

// Options carries per-call settings. Reversible transforms (compress,
// encrypt) must be requested symmetrically on write and read; OwnerID is
// consumed by write-time personalization only.
type Options struct {
	// TTL overrides the strategy TTL; zero falls back to the strategy's
	// TTL, then to the distributed tier's default
	TTL time.Duration

	Compress bool
	Encrypt  bool
	OwnerID  string
}

// Manager is the public-facing cache orchestrator. It exclusively owns both
// tiers and is the single point of lifecycle control.
type Manager struct {
	config    *Config
	registry  *strategy.Registry
	local     *localstore.Store
	redis     *redisstore.Client
	metrics   *Metrics
	encryptor *transform.Encryptor
	logger    *zap.Logger
}

// New builds the engine: strategy registry, local store, distributed client,
// then the orchestrator. A distributed tier that fails to connect degrades
// to local-only operation; only configuration problems are errors.
func New(config *Config, logger *zap.Logger) (*Manager, error) {
	if config == nil {
		return nil, errors.ConfigError("cache config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	policies := config.Strategies
	if policies == nil {
		policies = strategy.DefaultPolicies()
	}
	registry := strategy.NewRegistry(policies)

	var encryptor *transform.Encryptor
	for _, name := range registry.Enabled() {
		policy, _ := registry.PolicyFor(name)
		if !policy.HasTransform(strategy.TransformEncrypt) {
			continue
		}
		if config.EncryptionKey == "" {
			return nil, errors.ConfigError("encryption key is required when an enabled strategy declares the encrypt transform").
				WithContext("strategy", name)
		}
		var err error
		encryptor, err = transform.NewEncryptor(config.EncryptionKey)
		if err != nil {
			return nil, err
		}
		break
	}

	metrics := NewMetrics(config.MetricsRegisterer)

	var local *localstore.Store
	if config.Local.Enabled {
		ttl := config.Local.TTL
		if ttl <= 0 {
			ttl = 5 * time.Minute
		}
		sweep := config.Local.SweepInterval
		if sweep <= 0 {
			sweep = time.Minute
		}
		maxKeys := config.Local.MaxKeys
		if maxKeys <= 0 {
			maxKeys = 1000
		}
		local = localstore.New(ttl, sweep, maxKeys)
	}

	if config.Redis.DefaultTTL <= 0 {
		config.Redis.DefaultTTL = time.Hour
	}
	redisClient := redisstore.NewClient(&config.Redis, logger)
	if config.Redis.Enabled && redisClient.State() == redisstore.StateDegraded {
		// The one error the failed startup connection contributes
		metrics.RecordError()
	}

	m := &Manager{
		config:    config,
		registry:  registry,
		local:     local,
		redis:     redisClient,
		metrics:   metrics,
		encryptor: encryptor,
		logger:    logger,
	}

	logger.Info("cache manager initialized",
		zap.Strings("enabled_strategies", registry.Enabled()),
		zap.String("redis_state", string(redisClient.State())),
		zap.Bool("local_enabled", local != nil))

	return m, nil
}

// Close tears down the distributed tier connection
func (m *Manager) Close() error {
	return m.redis.Close()
}

// Stats returns a snapshot of the metrics collector
func (m *Manager) Stats() Snapshot {
	return m.metrics.Snapshot()
}

// RedisState reports the distributed tier's lifecycle state
func (m *Manager) RedisState() redisstore.State {
	return m.redis.State()
}

// LocalKeyCount returns the number of live local entries
func (m *Manager) LocalKeyCount() int {
	if m.local == nil {
		return 0
	}
	return m.local.Count()
}

// Get retrieves the value for key under the given strategy. Unknown and
// disabled strategies miss immediately without touching the hit/miss
// counters; tier failures are counted and degrade to a miss.
func (m *Manager) Get(ctx context.Context, key, strategyName string, opts *Options) (interface{}, bool) {
	raw, found := m.fetch(ctx, key, strategyName, opts)
	if !found {
		return nil, false
	}

	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		m.metrics.RecordError()
		m.logger.Warn("cached value is not valid JSON",
			zap.String("strategy", strategyName), zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return value, true
}

// GetInto retrieves the value for key and unmarshals it into dest, which
// must be a pointer to the caller-declared value type.
func (m *Manager) GetInto(ctx context.Context, key, strategyName string, dest interface{}, opts *Options) bool {
	raw, found := m.fetch(ctx, key, strategyName, opts)
	if !found {
		return false
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		m.metrics.RecordError()
		m.logger.Warn("cached value does not match destination type",
			zap.String("strategy", strategyName), zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// fetch walks the tiers in order and returns the decoded serialized value
func (m *Manager) fetch(ctx context.Context, key, strategyName string, opts *Options) ([]byte, bool) {
	policy, ok := m.gate(strategyName)
	if !ok {
		return nil, false
	}

	start := time.Now()
	defer func() {
		m.metrics.RecordResponseTime(time.Since(start))
	}()

	namespacedKey := strategy.NamespacedKey(m.config.KeyPrefix, strategyName, key)
	chain := m.chainFor(policy, opts, false)

	if m.redis.Enabled() {
		data, found, err := m.redis.Get(ctx, namespacedKey)
		switch {
		case err != nil:
			m.metrics.RecordError()
			m.logger.Warn("redis get failed", zap.String("key", namespacedKey), zap.Error(err))
		case found:
			raw, err := chain.Decode(data)
			if err == nil {
				m.metrics.RecordHit(TierRedis)
				return raw, true
			}
			m.metrics.RecordError()
			m.logger.Warn("failed to decode redis value", zap.String("key", namespacedKey), zap.Error(err))
		default:
			m.metrics.RecordTierMiss(TierRedis)
		}
	}

	if m.local != nil {
		data, found := m.local.Get(namespacedKey)
		if found {
			raw, err := chain.Decode(data)
			if err == nil {
				m.metrics.RecordHit(TierLocal)
				return raw, true
			}
			m.metrics.RecordError()
			m.logger.Warn("failed to decode local value", zap.String("key", namespacedKey), zap.Error(err))
		} else {
			m.metrics.RecordTierMiss(TierLocal)
		}
	}

	m.metrics.RecordMiss()
	return nil, false
}

// Set stores value under key for the given strategy. The distributed tier is
// the single source of truth when available: a successful distributed write
// does not also populate the local tier.
func (m *Manager) Set(ctx context.Context, key string, value interface{}, strategyName string, opts *Options) bool {
	policy, ok := m.gate(strategyName)
	if !ok {
		return false
	}

	namespacedKey := strategy.NamespacedKey(m.config.KeyPrefix, strategyName, key)
	ttl := m.effectiveTTL(policy, opts)

	data, err := json.Marshal(value)
	if err != nil {
		m.metrics.RecordError()
		m.logger.Warn("failed to marshal value", zap.String("key", namespacedKey), zap.Error(err))
		return false
	}

	encoded, err := m.chainFor(policy, opts, true).Encode(data)
	if err != nil {
		m.metrics.RecordError()
		m.logger.Warn("failed to encode value", zap.String("key", namespacedKey), zap.Error(err))
		return false
	}

	if m.redis.Enabled() {
		if err := m.redis.SetWithExpiry(ctx, namespacedKey, encoded, ttl); err == nil {
			return true
		} else {
			m.metrics.RecordError()
			m.logger.Warn("redis set failed, falling back to local tier",
				zap.String("key", namespacedKey), zap.Error(err))
		}
	}

	if m.local != nil {
		return m.local.Set(namespacedKey, encoded, ttl)
	}
	return false
}

// Delete removes key from both tiers, best-effort. A missing key in either
// tier is not an error; only a tier I/O failure returns false.
func (m *Manager) Delete(ctx context.Context, key, strategyName string) bool {
	if !m.registry.Known(strategyName) {
		m.logger.Warn("delete against unknown cache strategy", zap.String("strategy", strategyName))
		return false
	}

	namespacedKey := strategy.NamespacedKey(m.config.KeyPrefix, strategyName, key)
	ok := true

	if m.redis.Enabled() {
		if err := m.redis.Delete(ctx, namespacedKey); err != nil {
			m.metrics.RecordError()
			m.logger.Warn("redis delete failed", zap.String("key", namespacedKey), zap.Error(err))
			ok = false
		}
	}
	if m.local != nil {
		m.local.Delete(namespacedKey)
	}
	return ok
}

// Clear removes every key under the strategy's namespace from both tiers.
// Clearing "default" removes only unprefixed keys: keys under a known
// strategy namespace are left alone.
func (m *Manager) Clear(ctx context.Context, strategyName string) bool {
	if !m.registry.Known(strategyName) {
		m.logger.Warn("clear against unknown cache strategy", zap.String("strategy", strategyName))
		return false
	}

	prefix := strategy.Prefix(m.config.KeyPrefix, strategyName)
	ok := true

	if m.redis.Enabled() {
		keys, err := m.redis.KeysMatching(ctx, prefix)
		if err != nil {
			m.metrics.RecordError()
			m.logger.Warn("redis key enumeration failed", zap.String("prefix", prefix), zap.Error(err))
			ok = false
		} else {
			keys = m.filterNamespace(keys, strategyName, prefix)
			if err := m.redis.DeleteMany(ctx, keys); err != nil {
				m.metrics.RecordError()
				m.logger.Warn("redis bulk delete failed", zap.String("prefix", prefix), zap.Error(err))
				ok = false
			}
		}
	}

	if m.local != nil {
		for _, key := range m.filterNamespace(m.local.Keys(), strategyName, prefix) {
			m.local.Delete(key)
		}
	}

	m.logger.Debug("cleared cache namespace", zap.String("strategy", strategyName), zap.Bool("ok", ok))
	return ok
}

// filterNamespace keeps the keys that belong to the given strategy. For the
// default strategy this excludes keys that parse as another registered
// strategy's namespace, so clearing "default" never touches them.
func (m *Manager) filterNamespace(keys []string, strategyName, prefix string) []string {
	matched := make([]string, 0, len(keys))
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if strategyName == strategy.Default {
			rest := strings.TrimPrefix(key, prefix)
			if m.inOtherNamespace(rest) {
				continue
			}
		}
		matched = append(matched, key)
	}
	return matched
}

func (m *Manager) inOtherNamespace(rest string) bool {
	for _, name := range m.registry.Names() {
		if name == strategy.Default {
			continue
		}
		if strings.HasPrefix(rest, name+":") {
			return true
		}
	}
	return false
}

// gate resolves and checks the strategy before any metrics accounting.
// Unknown names are logged as caller errors; both unknown and disabled
// no-op the operation.
func (m *Manager) gate(strategyName string) (strategy.Policy, bool) {
	policy, err := m.registry.PolicyFor(strategyName)
	if err != nil {
		m.logger.Warn("operation against unknown cache strategy", zap.String("strategy", strategyName))
		return strategy.Policy{}, false
	}
	if !policy.Enabled {
		return strategy.Policy{}, false
	}
	return policy, true
}

// effectiveTTL resolves the TTL: per-call option, then strategy policy, then
// the distributed tier's default
func (m *Manager) effectiveTTL(policy strategy.Policy, opts *Options) time.Duration {
	if opts != nil && opts.TTL > 0 {
		return opts.TTL
	}
	if policy.TTL > 0 {
		return policy.TTL
	}
	return m.config.Redis.DefaultTTL
}

// chainFor assembles the transform chain for an operation. Irreversible
// transforms (anonymize, personalize) run unconditionally at write time per
// strategy; reversible ones run only when both the policy declares them and
// the caller requests them.
func (m *Manager) chainFor(policy strategy.Policy, opts *Options, write bool) transform.Chain {
	var chain transform.Chain

	if write {
		if policy.HasTransform(strategy.TransformAnonymize) {
			chain = append(chain, transform.Anonymizer{})
		}
		if policy.HasTransform(strategy.TransformPersonalize) && opts != nil && opts.OwnerID != "" {
			chain = append(chain, transform.NewPersonalizer(opts.OwnerID))
		}
	}
	if opts != nil && opts.Compress && policy.HasTransform(strategy.TransformCompress) {
		chain = append(chain, transform.Gzip{})
	}
	if opts != nil && opts.Encrypt && policy.HasTransform(strategy.TransformEncrypt) && m.encryptor != nil {
		chain = append(chain, m.encryptor)
	}
	return chain
}
