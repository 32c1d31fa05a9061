package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"secureshield/internal/core/domain"
	"secureshield/internal/core/ports"
	"secureshield/internal/infrastructure/repositories/seed"

	"github.com/benbjohnson/clock"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "secureshield:"

const (
	collectionUsers   = "users"
	collectionContent = "content"
	collectionLogs    = "logs"
)

func collectionKey(name string) string {
	return keyPrefix + "collection:" + name
}

// Store keeps each collection as one JSON document.
type Store struct {
	client *redis.Client
	clock  clock.Clock
}

func NewStore(client *redis.Client, clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.New()
	}
	return &Store{client: client, clock: clk}
}

var _ ports.Store = (*Store)(nil)

func (s *Store) Users(ctx context.Context) ([]domain.User, error) {
	return load(ctx, s.client, collectionUsers, seed.Users)
}

func (s *Store) ReplaceUsers(ctx context.Context, users []domain.User) error {
	return save(ctx, s.client, collectionUsers, users)
}

func (s *Store) Content(ctx context.Context) ([]domain.ContentItem, error) {
	return load(ctx, s.client, collectionContent, func() ([]domain.ContentItem, error) {
		return seed.Content(s.clock.Now()), nil
	})
}

func (s *Store) ReplaceContent(ctx context.Context, items []domain.ContentItem) error {
	return save(ctx, s.client, collectionContent, items)
}

func (s *Store) Logs(ctx context.Context) ([]domain.AccessLog, error) {
	return load(ctx, s.client, collectionLogs, func() ([]domain.AccessLog, error) {
		return seed.Logs(), nil
	})
}

func (s *Store) ReplaceLogs(ctx context.Context, logs []domain.AccessLog) error {
	return save(ctx, s.client, collectionLogs, logs)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close is a no-op; the client belongs to whoever opened it.
func (s *Store) Close() error {
	return nil
}

// load reads a collection, seeding it when the key is absent. SETNX keeps
// concurrent first reads from overwriting each other's seed.
func load[T any](ctx context.Context, client *redis.Client, name string, initial func() ([]T, error)) ([]T, error) {
	key := collectionKey(name)

	data, err := client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		items, seeded, seedErr := seedCollection(ctx, client, key, initial)
		if seedErr != nil {
			return nil, fmt.Errorf("failed to seed %s in Redis: %w", name, seedErr)
		}
		if seeded {
			return items, nil
		}
		data, err = client.Get(ctx, key).Bytes()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s from Redis: %w", name, err)
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", name, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func seedCollection[T any](ctx context.Context, client *redis.Client, key string, initial func() ([]T, error)) ([]T, bool, error) {
	items, err := initial()
	if err != nil {
		return nil, false, err
	}
	encoded, err := json.Marshal(items)
	if err != nil {
		return nil, false, err
	}
	created, err := client.SetNX(ctx, key, encoded, 0).Result()
	if err != nil {
		return nil, false, err
	}
	return items, created, nil
}

func save[T any](ctx context.Context, client *redis.Client, name string, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	if err := client.Set(ctx, collectionKey(name), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s in Redis: %w", name, err)
	}
	return nil
}
