package ports

import (
	"context"

	"secureshield/internal/core/domain"
)

// Store persists the three collections. Reads return copies; a missing
// collection is seeded and persisted on first read. Writes replace the whole
// collection.
type Store interface {
	Users(ctx context.Context) ([]domain.User, error)
	ReplaceUsers(ctx context.Context, users []domain.User) error

	Content(ctx context.Context) ([]domain.ContentItem, error)
	ReplaceContent(ctx context.Context, items []domain.ContentItem) error

	Logs(ctx context.Context) ([]domain.AccessLog, error)
	ReplaceLogs(ctx context.Context, logs []domain.AccessLog) error

	Ping(ctx context.Context) error
	Close() error
}
