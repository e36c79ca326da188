package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"medcache/internal/cache"
	"medcache/internal/config"
	"medcache/internal/logging"
	"medcache/internal/redisstore"
	"medcache/internal/server"
	"medcache/internal/strategy"
)

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logging.New(cfg.LogLevel)
	defer logger.Sync()

	registry := prometheus.NewRegistry()

	manager, err := cache.New(buildCacheConfig(cfg, registry), logger)
	if err != nil {
		logger.Fatal("Failed to initialize cache engine", zap.Error(err))
	}
	defer manager.Close()

	if manager.RedisState() == redisstore.StateDegraded {
		logger.Warn("Distributed tier unavailable, serving from local tier only")
	}

	// Periodic optimization
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.OptimizeSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		result := manager.Optimize(ctx)
		if !result.Success {
			logger.Error("Scheduled optimization failed", zap.String("error", result.Error))
			return
		}
		logger.Info("Scheduled optimization complete",
			zap.Int64("duration_ms", result.DurationMs),
			zap.Int("local_keys", result.After.LocalCacheKeys))
	}); err != nil {
		logger.Fatal("Invalid OPTIMIZE_SCHEDULE", zap.String("schedule", cfg.OptimizeSchedule), zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Operational HTTP surface
	handlers := server.NewHandlers(manager, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), logger)
	srv := server.New(handlers.Routes(), cfg.Port)

	logger.Info("Server starting", zap.String("port", cfg.Port))
	errCh := srv.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Fatal("Server failed", zap.Error(err))
	case sig := <-quit:
		logger.Info("Shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// buildCacheConfig assembles the engine configuration from the environment,
// applying per-strategy overrides on top of the built-in policies
func buildCacheConfig(cfg *config.Config, registry prometheus.Registerer) *cache.Config {
	policies := strategy.DefaultPolicies()

	names := make([]string, 0, len(policies))
	for name := range policies {
		names = append(names, name)
	}
	for name, override := range config.StrategyOverrides(names) {
		policy := policies[name]
		if override.Enabled != nil {
			policy.Enabled = *override.Enabled
		}
		if override.TTL != nil {
			policy.TTL = *override.TTL
		}
		policies[name] = policy
	}

	return &cache.Config{
		KeyPrefix: cfg.RedisKeyPrefix,
		Redis: redisstore.Config{
			Enabled:    cfg.RedisEnabled,
			Host:       cfg.RedisHost,
			Port:       cfg.RedisPort,
			Password:   cfg.RedisPassword,
			DB:         cfg.RedisDB,
			DefaultTTL: cfg.RedisDefaultTTL,
		},
		Local: cache.LocalConfig{
			Enabled:       cfg.LocalEnabled,
			TTL:           cfg.LocalTTL,
			SweepInterval: cfg.LocalSweepInterval,
			MaxKeys:       cfg.LocalMaxKeys,
		},
		Strategies:        policies,
		EncryptionKey:     cfg.EncryptionKey,
		MetricsRegisterer: registry,
	}
}
