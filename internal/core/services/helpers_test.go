package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"secureshield/internal/core/domain"
	"secureshield/internal/infrastructure/repositories/memory"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

var (
	adminUser    = domain.User{ID: "1", Email: "admin@enterprise.com", Role: domain.RoleAdmin}
	uploaderUser = domain.User{ID: "2", Email: "uploader@enterprise.com", Role: domain.RoleUploader}
	viewerUser   = domain.User{ID: "3", Email: "viewer@enterprise.com", Role: domain.RoleViewer}
)

func testLogger(t *testing.T) *zap.SugaredLogger {
	return zaptest.NewLogger(t).Sugar()
}

func newTestStore(clk clock.Clock) *memory.Store {
	return memory.NewStore(clk)
}

// recordingMetrics counts what the services report.
type recordingMetrics struct {
	mu            sync.Mutex
	opened        int
	granted       int
	denied        map[domain.DenyReason]int
	expired       int
	active        int
	uploads       int
	logins        map[bool]int
	registrations int
	downloads     int
	notifySubs    int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		denied: make(map[domain.DenyReason]int),
		logins: make(map[bool]int),
	}
}

func (m *recordingMetrics) SessionOpened() { m.mu.Lock(); m.opened++; m.mu.Unlock() }
func (m *recordingMetrics) SessionGranted(time.Duration) {
	m.mu.Lock()
	m.granted++
	m.mu.Unlock()
}
func (m *recordingMetrics) SessionDenied(r domain.DenyReason) {
	m.mu.Lock()
	m.denied[r]++
	m.mu.Unlock()
}
func (m *recordingMetrics) SessionExpired()         { m.mu.Lock(); m.expired++; m.mu.Unlock() }
func (m *recordingMetrics) SetActiveSessions(n int) { m.mu.Lock(); m.active = n; m.mu.Unlock() }
func (m *recordingMetrics) ContentUploaded(domain.MediaKind) {
	m.mu.Lock()
	m.uploads++
	m.mu.Unlock()
}
func (m *recordingMetrics) LoginAttempt(ok bool) { m.mu.Lock(); m.logins[ok]++; m.mu.Unlock() }
func (m *recordingMetrics) UserRegistered(domain.Role) {
	m.mu.Lock()
	m.registrations++
	m.mu.Unlock()
}
func (m *recordingMetrics) DownloadBlocked() { m.mu.Lock(); m.downloads++; m.mu.Unlock() }
func (m *recordingMetrics) SetNotificationSubscribers(n int) {
	m.mu.Lock()
	m.notifySubs = n
	m.mu.Unlock()
}

func (m *recordingMetrics) snapshot() recordingMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return recordingMetrics{
		opened:        m.opened,
		granted:       m.granted,
		expired:       m.expired,
		active:        m.active,
		uploads:       m.uploads,
		registrations: m.registrations,
		downloads:     m.downloads,
		notifySubs:    m.notifySubs,
	}
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, recipient domain.UserID, severity domain.Severity, message string) {
	m.Called(ctx, recipient, severity, message)
}

type MockRelay struct {
	mock.Mock
}

func (m *MockRelay) PublishNotification(ctx context.Context, n domain.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// MockStore lets tests inject storage failures.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Users(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockStore) ReplaceUsers(ctx context.Context, users []domain.User) error {
	return m.Called(ctx, users).Error(0)
}

func (m *MockStore) Content(ctx context.Context) ([]domain.ContentItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ContentItem), args.Error(1)
}

func (m *MockStore) ReplaceContent(ctx context.Context, items []domain.ContentItem) error {
	return m.Called(ctx, items).Error(0)
}

func (m *MockStore) Logs(ctx context.Context) ([]domain.AccessLog, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AccessLog), args.Error(1)
}

func (m *MockStore) ReplaceLogs(ctx context.Context, logs []domain.AccessLog) error {
	return m.Called(ctx, logs).Error(0)
}

func (m *MockStore) Ping(ctx context.Context) error { return m.Called(ctx).Error(0) }
func (m *MockStore) Close() error                   { return nil }

// advanceUntil runs fn in the background and moves the mock clock forward
// in small steps until fn returns.
func advanceUntil[T any](t *testing.T, clk *clock.Mock, fn func() (T, error)) (T, error) {
	t.Helper()

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()

	var res result
	require.Eventually(t, func() bool {
		select {
		case res = <-done:
			return true
		default:
			clk.Add(100 * time.Millisecond)
			return false
		}
	}, 5*time.Second, time.Millisecond)
	return res.val, res.err
}
