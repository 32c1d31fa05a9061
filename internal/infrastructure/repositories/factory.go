package repositories

import (
	"context"
	"fmt"
	"time"

	"secureshield/internal/core/ports"
	"secureshield/internal/infrastructure/repositories/memory"
	redisrepo "secureshield/internal/infrastructure/repositories/redis"
	"secureshield/internal/infrastructure/repositories/sqlite"
	"secureshield/pkg/config"
	"secureshield/pkg/retry"

	"github.com/benbjohnson/clock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// StoreFactory opens the configured store. Redis is tried when enabled and
// the service falls back to memory when it cannot be reached.
type StoreFactory struct {
	driver      string
	redisClient *redis.Client
	clock       clock.Clock
	logger      *zap.SugaredLogger
}

// NewStoreFactory connects to Redis when enabled. The client is shared with
// the notification relay through RedisClient.
func NewStoreFactory(ctx context.Context, cfg *config.Config, clk clock.Clock, logger *zap.SugaredLogger) *StoreFactory {
	factory := &StoreFactory{
		driver: cfg.Storage.Driver,
		clock:  clk,
		logger: logger,
	}

	if cfg.Redis.Enabled {
		client, err := redisrepo.NewClient(ctx, redisrepo.Options{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
			Connect: retry.Config{
				MaxAttempts:  cfg.Redis.ConnectAttempts,
				InitialDelay: 200 * time.Millisecond,
				MaxDelay:     2 * time.Second,
				Multiplier:   2,
				Jitter:       true,
			},
		}, logger)
		if err != nil {
			logger.Warnw("failed to connect to Redis", "error", err)
		} else {
			factory.redisClient = client
		}
	}

	if factory.driver == config.DriverRedis && factory.redisClient == nil {
		logger.Warnw("falling back to memory store", "requested_driver", config.DriverRedis)
		factory.driver = config.DriverMemory
	}

	return factory
}

// Driver reports the store driver actually in use.
func (f *StoreFactory) Driver() string {
	return f.driver
}

// RedisClient returns the shared client, or nil when Redis is unavailable.
func (f *StoreFactory) RedisClient() *redis.Client {
	return f.redisClient
}

// CreateStore opens the store for the effective driver.
func (f *StoreFactory) CreateStore(cfg *config.Config) (ports.Store, error) {
	switch f.driver {
	case config.DriverRedis:
		f.logger.Infow("using Redis store", "address", cfg.Redis.Address)
		return redisrepo.NewStore(f.redisClient, f.clock), nil
	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.Storage.SQLitePath, f.clock)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		f.logger.Infow("using SQLite store", "path", cfg.Storage.SQLitePath)
		return store, nil
	default:
		f.logger.Info("using memory store")
		return memory.NewStore(f.clock), nil
	}
}

// Close closes the Redis connection if one was opened.
func (f *StoreFactory) Close() error {
	if f.redisClient != nil {
		return f.redisClient.Close()
	}
	return nil
}
