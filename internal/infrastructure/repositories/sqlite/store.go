// Package sqlite stores the collections in a single SQLite file, one JSON
// row per collection.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"secureshield/internal/core/domain"
	"secureshield/internal/core/ports"
	"secureshield/internal/infrastructure/repositories/seed"

	"github.com/benbjohnson/clock"
	_ "modernc.org/sqlite"
)

const (
	collectionUsers   = "users"
	collectionContent = "content"
	collectionLogs    = "logs"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS collections (
		name       TEXT PRIMARY KEY,
		data       TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
}

type Store struct {
	db    *sql.DB
	clock clock.Clock
}

// Open opens and migrates the store at path.
func Open(path string, clk clock.Clock) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if clk == nil {
		clk = clock.New()
	}

	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}

	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	s := &Store{db: db, clock: clk}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

var _ ports.Store = (*Store)(nil)

func (s *Store) migrate(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return err
	}
	for i := version; i < len(migrations); i++ {
		if _, err := s.db.ExecContext(ctx, migrations[i]); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Users(ctx context.Context) ([]domain.User, error) {
	return load(ctx, s, collectionUsers, seed.Users)
}

func (s *Store) ReplaceUsers(ctx context.Context, users []domain.User) error {
	return save(ctx, s, collectionUsers, users)
}

func (s *Store) Content(ctx context.Context) ([]domain.ContentItem, error) {
	return load(ctx, s, collectionContent, func() ([]domain.ContentItem, error) {
		return seed.Content(s.clock.Now()), nil
	})
}

func (s *Store) ReplaceContent(ctx context.Context, items []domain.ContentItem) error {
	return save(ctx, s, collectionContent, items)
}

func (s *Store) Logs(ctx context.Context) ([]domain.AccessLog, error) {
	return load(ctx, s, collectionLogs, func() ([]domain.AccessLog, error) {
		return seed.Logs(), nil
	})
}

func (s *Store) ReplaceLogs(ctx context.Context, logs []domain.AccessLog) error {
	return save(ctx, s, collectionLogs, logs)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func load[T any](ctx context.Context, s *Store, name string, initial func() ([]T, error)) ([]T, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM collections WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		items, err := initial()
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(items)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", name, err)
		}
		// A concurrent first read may have seeded already; keep its row.
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO collections (name, data, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(name) DO NOTHING`,
			name, string(encoded), s.clock.Now().UnixMilli(),
		); err != nil {
			return nil, fmt.Errorf("seed %s: %w", name, err)
		}
		err = s.db.QueryRowContext(ctx, `SELECT data FROM collections WHERE name = ?`, name).Scan(&data)
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", name, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("get %s: %w", name, err)
	}

	var items []T
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", name, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func save[T any](ctx context.Context, s *Store, name string, items []T) error {
	if items == nil {
		items = []T{}
	}
	encoded, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO collections (name, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		name, string(encoded), s.clock.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}
