package ports

import (
	"context"
	"time"

	"secureshield/internal/core/domain"
)

// Notifier delivers a user-facing notification to recipient's open feeds.
type Notifier interface {
	Notify(ctx context.Context, recipient domain.UserID, severity domain.Severity, message string)
}

// MetricsRecorder receives service-level events for instrumentation.
type MetricsRecorder interface {
	SessionOpened()
	SessionGranted(verification time.Duration)
	SessionDenied(reason domain.DenyReason)
	SessionExpired()
	SetActiveSessions(n int)
	ContentUploaded(kind domain.MediaKind)
	LoginAttempt(success bool)
	UserRegistered(role domain.Role)
	DownloadBlocked()
	SetNotificationSubscribers(n int)
}

// NopMetrics discards every event.
type NopMetrics struct{}

func (NopMetrics) SessionOpened() {}
func (NopMetrics) SessionGranted(time.Duration) {}
func (NopMetrics) SessionDenied(domain.DenyReason) {}
func (NopMetrics) SessionExpired() {}
func (NopMetrics) SetActiveSessions(int) {}
func (NopMetrics) ContentUploaded(domain.MediaKind) {}
func (NopMetrics) LoginAttempt(bool) {}
func (NopMetrics) UserRegistered(domain.Role) {}
func (NopMetrics) DownloadBlocked() {}
func (NopMetrics) SetNotificationSubscribers(int) {}
