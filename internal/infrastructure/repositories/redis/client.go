package redis

import (
	"context"
	"fmt"
	"time"

	"secureshield/pkg/retry"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Options configures the connection pool.
type Options struct {
	Address  string
	Password string
	DB       int
	PoolSize int
	// Connect bounds the initial ping. Zero attempts means one try.
	Connect retry.Config
}

// NewClient connects to Redis, retrying the first ping, and runs pending
// migrations before returning.
func NewClient(ctx context.Context, opts Options, logger *zap.SugaredLogger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Address,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     opts.PoolSize,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	err := retry.Do(ctx, opts.Connect, func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			if logger != nil {
				logger.Debugw("redis ping failed", "address", opts.Address, "error", err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if err := Migrate(ctx, client, logger); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if logger != nil {
		logger.Infow("connected to Redis",
			"address", opts.Address,
			"db", opts.DB,
			"pool_size", opts.PoolSize,
		)
	}

	return client, nil
}
