package monitoring

import (
	"context"
	"time"

	"secureshield/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

// AddStoreCheck pings the collection store. The service cannot answer
// without it, so the check is critical.
func (h *HealthChecker) AddStoreCheck(store ports.Store, interval, timeout time.Duration) {
	h.AddCheck(HealthCheck{
		Name:     "store",
		Check:    store.Ping,
		Critical: true,
		Interval: interval,
		Timeout:  timeout,
	})
}

// AddRedisCheck pings redis. It is critical only when redis also backs the
// store; as a notification relay alone its loss just degrades the service.
func (h *HealthChecker) AddRedisCheck(client *redis.Client, critical bool, interval, timeout time.Duration) {
	h.AddCheck(HealthCheck{
		Name: "redis",
		Check: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
		Critical: critical,
		Interval: interval,
		Timeout:  timeout,
	})
}
