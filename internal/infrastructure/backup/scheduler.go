package backup

import (
	"context"
	"fmt"
	"time"

	"secureshield/internal/core/domain"
	"secureshield/internal/core/ports"
	"secureshield/pkg/backup"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// FormatVersion is written into every snapshot envelope.
const FormatVersion = "1"

// Snapshot is the backed-up content of the three collections.
type Snapshot struct {
	Users   []domain.User        `json:"users"`
	Content []domain.ContentItem `json:"content"`
	Logs    []domain.AccessLog   `json:"logs"`
}

type Config struct {
	Interval time.Duration
	// MaxAge is how long snapshots are kept. Zero keeps them forever.
	MaxAge time.Duration
}

// Scheduler snapshots the store on a fixed interval.
type Scheduler struct {
	backupService *backup.BackupService
	store         ports.Store
	cfg           Config
	clock         clock.Clock
	logger        *zap.SugaredLogger
}

func NewScheduler(
	backupService *backup.BackupService,
	store ports.Store,
	cfg Config,
	clk clock.Clock,
	logger *zap.SugaredLogger,
) *Scheduler {
	return &Scheduler{
		backupService: backupService,
		store:         store,
		cfg:           cfg,
		clock:         clk,
		logger:        logger,
	}
}

// Run takes a snapshot immediately and then on every interval until ctx is
// done.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := s.clock.Ticker(s.cfg.Interval)
	defer ticker.Stop()

	s.runBackup(ctx)
	for {
		select {
		case <-ticker.C:
			s.runBackup(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) runBackup(ctx context.Context) {
	name, err := s.Snapshot(ctx)
	if err != nil {
		s.logger.Errorw("scheduled backup failed", "error", err)
		return
	}
	s.logger.Infow("backup created", "backup_name", name)

	if s.cfg.MaxAge <= 0 {
		return
	}
	removed, err := s.backupService.Prune(ctx, s.cfg.MaxAge)
	if err != nil {
		s.logger.Warnw("failed to prune old backups", "error", err)
		return
	}
	if removed > 0 {
		s.logger.Infow("pruned old backups", "removed", removed)
	}
}

// Snapshot reads all three collections and writes them as one backup.
func (s *Scheduler) Snapshot(ctx context.Context) (string, error) {
	users, err := s.store.Users(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read users: %w", err)
	}
	content, err := s.store.Content(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read content: %w", err)
	}
	logs, err := s.store.Logs(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read logs: %w", err)
	}

	return s.backupService.CreateBackup(ctx, Snapshot{Users: users, Content: content, Logs: logs})
}
