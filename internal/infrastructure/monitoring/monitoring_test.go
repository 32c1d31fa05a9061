package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"secureshield/internal/core/domain"
	"secureshield/internal/infrastructure/repositories/memory"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestPrometheusCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheusCollector(reg)

	p.SessionOpened()
	p.SessionOpened()
	p.SessionGranted(1200 * time.Millisecond)
	p.SessionDenied(domain.DenyForbidden)
	p.SessionExpired()
	p.SetActiveSessions(3)
	p.ContentUploaded(domain.KindImage)
	p.LoginAttempt(true)
	p.LoginAttempt(false)
	p.LoginAttempt(false)
	p.UserRegistered(domain.RoleViewer)
	p.DownloadBlocked()
	p.SetNotificationSubscribers(2)

	assert.Equal(t, 2.0, testutil.ToFloat64(p.sessionsOpened))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.sessionsGranted))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.sessionsDenied.WithLabelValues("forbidden")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.sessionsExpired))
	assert.Equal(t, 3.0, testutil.ToFloat64(p.activeSessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.uploadsTotal.WithLabelValues("image")))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.loginsTotal.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.registrations.WithLabelValues("VIEWER")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.downloadsBlocked))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.notificationSubscribers))

	count, err := testutil.GatherAndCount(reg, "secureshield_verification_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestHealthChecker_CheckAll(t *testing.T) {
	h := NewHealthChecker(zaptest.NewLogger(t).Sugar())
	h.AddStoreCheck(memory.NewStore(nil), 0, time.Second)

	status := h.CheckAll(context.Background())
	assert.Equal(t, StatusHealthy, status.Status)
	assert.Equal(t, StatusHealthy, status.Checks["store"].Status)
	assert.True(t, status.Checks["store"].Critical)
	assert.True(t, h.IsReady(context.Background()))

	h.AddCheck(HealthCheck{
		Name:  "relay",
		Check: func(context.Context) error { return errors.New("connection refused") },
	})
	status = h.CheckAll(context.Background())
	assert.Equal(t, StatusDegraded, status.Status)
	assert.Equal(t, "connection refused", status.Checks["relay"].Error)
	assert.True(t, h.IsReady(context.Background()))

	h.AddCheck(HealthCheck{
		Name:     "disk",
		Check:    func(context.Context) error { return errors.New("disk full") },
		Critical: true,
	})
	status = h.CheckAll(context.Background())
	assert.Equal(t, StatusUnhealthy, status.Status)
	assert.Equal(t, StatusUnhealthy, status.Checks["disk"].Status)
	assert.False(t, h.IsReady(context.Background()))
}

func TestHealthChecker_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()

	critical := NewHealthChecker(zaptest.NewLogger(t).Sugar())
	critical.AddRedisCheck(client, true, 0, time.Second)
	optional := NewHealthChecker(zaptest.NewLogger(t).Sugar())
	optional.AddRedisCheck(client, false, 0, time.Second)
	assert.True(t, critical.IsReady(context.Background()))

	mr.Close()
	assert.Equal(t, StatusUnhealthy, critical.CheckAll(context.Background()).Status)
	assert.Equal(t, StatusDegraded, optional.CheckAll(context.Background()).Status)
}

func TestHealthChecker_TimeoutApplies(t *testing.T) {
	h := NewHealthChecker(zaptest.NewLogger(t).Sugar())
	h.AddCheck(HealthCheck{
		Name: "slow",
		Check: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
		Critical: true,
		Timeout:  10 * time.Millisecond,
	})

	status := h.CheckAll(context.Background())
	assert.Equal(t, context.DeadlineExceeded.Error(), status.Checks["slow"].Error)
}
