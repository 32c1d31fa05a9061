package services

import (
	"context"
	"sync"
	"time"

	"secureshield/internal/core/domain"
	"secureshield/internal/core/ports"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationRelay forwards notifications to other instances.
type NotificationRelay interface {
	PublishNotification(ctx context.Context, n domain.Notification) error
}

// NotificationHub fans notifications out to each recipient's subscribers.
// Every subscriber owns a buffered channel; when it is full new
// notifications are dropped for that subscriber.
type NotificationHub struct {
	clock        clock.Clock
	dismissAfter time.Duration
	buffer       int
	metrics      ports.MetricsRecorder
	logger       *zap.SugaredLogger

	mu    sync.RWMutex
	subs  map[domain.UserID]map[chan domain.Notification]struct{}
	relay NotificationRelay
}

var _ ports.Notifier = (*NotificationHub)(nil)

func NewNotificationHub(
	clk clock.Clock,
	dismissAfter time.Duration,
	buffer int,
	metrics ports.MetricsRecorder,
	logger *zap.SugaredLogger,
) *NotificationHub {
	if dismissAfter <= 0 {
		dismissAfter = domain.DefaultDismissAfter
	}
	if buffer <= 0 {
		buffer = 1
	}
	return &NotificationHub{
		clock:        clk,
		dismissAfter: dismissAfter,
		buffer:       buffer,
		metrics:      metrics,
		logger:       logger,
		subs:         make(map[domain.UserID]map[chan domain.Notification]struct{}),
	}
}

// SetRelay enables cross-instance delivery.
func (h *NotificationHub) SetRelay(relay NotificationRelay) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.relay = relay
}

func (h *NotificationHub) Notify(ctx context.Context, recipient domain.UserID, severity domain.Severity, message string) {
	now := h.clock.Now()
	n := domain.Notification{
		ID:        uuid.NewString(),
		Recipient: recipient,
		Message:   message,
		Severity:  severity,
		CreatedAt: now,
		ExpiresAt: now.Add(h.dismissAfter),
	}

	h.Deliver(n)

	h.mu.RLock()
	relay := h.relay
	h.mu.RUnlock()
	if relay != nil {
		if err := relay.PublishNotification(ctx, n); err != nil {
			h.logger.Warnw("failed to relay notification", "notification_id", n.ID, "error", err)
		}
	}
}

// Deliver hands n to local subscribers only.
func (h *NotificationHub) Deliver(n domain.Notification) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for ch := range h.subs[n.Recipient] {
		select {
		case ch <- n:
			delivered++
		default:
			h.logger.Debugw("dropping notification for slow subscriber",
				"recipient", n.Recipient,
				"notification_id", n.ID,
			)
		}
	}
	return delivered
}

func (h *NotificationHub) Subscribe(recipient domain.UserID) (<-chan domain.Notification, func()) {
	ch := make(chan domain.Notification, h.buffer)

	h.mu.Lock()
	if h.subs[recipient] == nil {
		h.subs[recipient] = make(map[chan domain.Notification]struct{})
	}
	h.subs[recipient][ch] = struct{}{}
	h.metrics.SetNotificationSubscribers(h.countLocked())
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if set, ok := h.subs[recipient]; ok {
				if _, ok := set[ch]; ok {
					delete(set, ch)
					close(ch)
				}
				if len(set) == 0 {
					delete(h.subs, recipient)
				}
			}
			h.metrics.SetNotificationSubscribers(h.countLocked())
		})
	}
	return ch, cancel
}

// Close ends every subscription.
func (h *NotificationHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for recipient, set := range h.subs {
		for ch := range set {
			close(ch)
		}
		delete(h.subs, recipient)
	}
	h.metrics.SetNotificationSubscribers(0)
}

func (h *NotificationHub) countLocked() int {
	n := 0
	for _, set := range h.subs {
		n += len(set)
	}
	return n
}
