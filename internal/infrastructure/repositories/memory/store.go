package memory

import (
	"context"
	"sync"

	"secureshield/internal/core/domain"
	"secureshield/internal/core/ports"
	"secureshield/internal/infrastructure/repositories/seed"

	"github.com/benbjohnson/clock"
)

// Store keeps the collections in process memory. A nil collection has not
// been written yet and is seeded on first read.
type Store struct {
	clock clock.Clock

	mu      sync.Mutex
	users   []domain.User
	content []domain.ContentItem
	logs    []domain.AccessLog
}

func NewStore(clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.New()
	}
	return &Store{clock: clk}
}

var _ ports.Store = (*Store)(nil)

func (s *Store) Users(ctx context.Context) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.users == nil {
		users, err := seed.Users()
		if err != nil {
			return nil, err
		}
		s.users = users
	}
	return append([]domain.User{}, s.users...), nil
}

func (s *Store) ReplaceUsers(ctx context.Context, users []domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users = append([]domain.User{}, users...)
	return nil
}

func (s *Store) Content(ctx context.Context) ([]domain.ContentItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.content == nil {
		s.content = seed.Content(s.clock.Now())
	}
	return cloneContent(s.content), nil
}

func (s *Store) ReplaceContent(ctx context.Context, items []domain.ContentItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.content = cloneContent(items)
	return nil
}

func (s *Store) Logs(ctx context.Context) ([]domain.AccessLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.logs == nil {
		s.logs = seed.Logs()
	}
	return append([]domain.AccessLog{}, s.logs...), nil
}

func (s *Store) ReplaceLogs(ctx context.Context, logs []domain.AccessLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logs = append([]domain.AccessLog{}, logs...)
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close() error {
	return nil
}

func cloneContent(items []domain.ContentItem) []domain.ContentItem {
	out := make([]domain.ContentItem, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}
	return out
}
