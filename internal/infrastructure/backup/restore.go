package backup

import (
	"context"
	"fmt"

	"secureshield/internal/core/ports"
	"secureshield/pkg/backup"

	"go.uber.org/zap"
)

// Latest selects the newest snapshot.
const Latest = "latest"

type RestoreOptions struct {
	Users   bool
	Content bool
	Logs    bool
}

func AllCollections() RestoreOptions {
	return RestoreOptions{Users: true, Content: true, Logs: true}
}

// RestoreService writes a snapshot back into the store.
type RestoreService struct {
	backupService *backup.BackupService
	store         ports.Store
	logger        *zap.SugaredLogger
}

func NewRestoreService(backupService *backup.BackupService, store ports.Store, logger *zap.SugaredLogger) *RestoreService {
	return &RestoreService{
		backupService: backupService,
		store:         store,
		logger:        logger,
	}
}

// RestoreFromBackup replaces the selected collections with the contents of
// the named snapshot, or of the newest one when name is Latest.
func (rs *RestoreService) RestoreFromBackup(ctx context.Context, name string, options RestoreOptions) (string, error) {
	if name == Latest {
		latest, err := rs.backupService.Latest(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to find latest backup: %w", err)
		}
		if latest == "" {
			return "", fmt.Errorf("no backups available")
		}
		name = latest
	}

	var snap Snapshot
	env, err := rs.backupService.RestoreBackup(ctx, name, &snap)
	if err != nil {
		return "", err
	}
	if env.Version != FormatVersion {
		return "", fmt.Errorf("unsupported backup version %q", env.Version)
	}

	rs.logger.Infow("restoring backup",
		"backup_name", name,
		"taken_at", env.Timestamp,
		"users", len(snap.Users),
		"content", len(snap.Content),
		"logs", len(snap.Logs),
	)

	if options.Users {
		if err := rs.store.ReplaceUsers(ctx, snap.Users); err != nil {
			return "", fmt.Errorf("failed to restore users: %w", err)
		}
	}
	if options.Content {
		if err := rs.store.ReplaceContent(ctx, snap.Content); err != nil {
			return "", fmt.Errorf("failed to restore content: %w", err)
		}
	}
	if options.Logs {
		if err := rs.store.ReplaceLogs(ctx, snap.Logs); err != nil {
			return "", fmt.Errorf("failed to restore logs: %w", err)
		}
	}
	return name, nil
}
