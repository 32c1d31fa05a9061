package distributed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"secureshield/internal/core/domain"
	"secureshield/pkg/circuitbreaker"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// EventType represents the type of event
type EventType string

const (
	EventNotificationPosted EventType = "notification.posted"
)

// Event represents a distributed event
type Event struct {
	Type       EventType       `json:"type"`
	InstanceID string          `json:"instance_id"`
	Timestamp  time.Time       `json:"timestamp"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// EventBus provides event publishing and subscription across instances
// sharing one redis.
type EventBus struct {
	client     *redis.Client
	instanceID string
	channel    string
	logger     *zap.SugaredLogger
	breaker    *circuitbreaker.CircuitBreaker

	mu     sync.Mutex
	pubsub *redis.PubSub
}

// NewEventBus creates a new event bus. Notification publishes go through a
// circuit breaker so a lost redis costs one fast failure per notification.
func NewEventBus(
	client *redis.Client,
	channel string,
	instanceID string,
	logger *zap.SugaredLogger,
) *EventBus {
	breaker := circuitbreaker.New(circuitbreaker.DefaultConfig(), nil)
	breaker.OnStateChange(func(from, to circuitbreaker.State) {
		logger.Warnw("notification relay circuit changed", "from", from, "to", to)
	})
	return &EventBus{
		client:     client,
		instanceID: instanceID,
		channel:    channel,
		logger:     logger,
		breaker:    breaker,
	}
}

// Publish publishes an event to the event bus
func (eb *EventBus) Publish(ctx context.Context, event *Event) error {
	event.InstanceID = eb.instanceID
	event.Timestamp = time.Now()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := eb.client.Publish(ctx, eb.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	eb.logger.Debugw("published event", "type", event.Type, "channel", eb.channel)
	return nil
}

// PublishNotification relays n to the other instances.
func (eb *EventBus) PublishNotification(ctx context.Context, n domain.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	return eb.breaker.Execute(ctx, func(ctx context.Context) error {
		return eb.Publish(ctx, &Event{Type: EventNotificationPosted, Payload: payload})
	})
}

// Subscribe calls handler for every event published by other instances. It
// blocks until ctx is cancelled or the bus is closed.
func (eb *EventBus) Subscribe(ctx context.Context, handler func(*Event) error) error {
	eb.mu.Lock()
	if eb.pubsub != nil {
		eb.mu.Unlock()
		return fmt.Errorf("already subscribed")
	}
	pubsub := eb.client.Subscribe(ctx, eb.channel)
	eb.pubsub = pubsub
	eb.mu.Unlock()
	defer func() {
		eb.mu.Lock()
		eb.pubsub = nil
		eb.mu.Unlock()
		_ = pubsub.Close()
	}()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", eb.channel, err)
	}
	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				eb.logger.Warnw("failed to unmarshal event",
					"error", err,
					"payload", msg.Payload,
				)
				continue
			}

			// Skip events from this instance
			if event.InstanceID == eb.instanceID {
				continue
			}

			if err := handler(&event); err != nil {
				eb.logger.Warnw("error handling event",
					"type", event.Type,
					"error", err,
				)
			}
		}
	}
}

// NotificationHandler decodes relayed notifications and hands them to
// deliver, which should reach local subscribers only.
func NotificationHandler(deliver func(domain.Notification) int) func(*Event) error {
	return func(event *Event) error {
		if event.Type != EventNotificationPosted {
			return nil
		}
		var n domain.Notification
		if err := json.Unmarshal(event.Payload, &n); err != nil {
			return fmt.Errorf("invalid notification payload: %w", err)
		}
		deliver(n)
		return nil
	}
}

// Close closes the event bus
func (eb *EventBus) Close() error {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	if eb.pubsub != nil {
		return eb.pubsub.Close()
	}
	return nil
}
