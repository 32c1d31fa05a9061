package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
)

const (
	namePrefix = "backup-"
	nameSuffix = ".json"
	timeLayout = "20060102-150405.000"
)

// Envelope wraps a backed-up document with its format version.
type Envelope struct {
	Version   string          `json:"version"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Storage defines interface for backup storage
type Storage interface {
	Save(ctx context.Context, name string, data io.Reader) error
	Load(ctx context.Context, name string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, name string) error
}

// BackupService writes timestamped JSON backups to a Storage.
type BackupService struct {
	storage Storage
	version string
	clock   clock.Clock
}

func NewBackupService(storage Storage, version string, clk clock.Clock) *BackupService {
	if clk == nil {
		clk = clock.New()
	}
	return &BackupService{
		storage: storage,
		version: version,
		clock:   clk,
	}
}

// CreateBackup serializes data and returns the name it was saved under.
func (bs *BackupService) CreateBackup(ctx context.Context, data interface{}) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal backup data: %w", err)
	}

	now := bs.clock.Now().UTC()
	body, err := json.Marshal(Envelope{Version: bs.version, Timestamp: now, Data: raw})
	if err != nil {
		return "", fmt.Errorf("failed to marshal backup envelope: %w", err)
	}

	name := namePrefix + now.Format(timeLayout) + nameSuffix
	if err := bs.storage.Save(ctx, name, bytes.NewReader(body)); err != nil {
		return "", fmt.Errorf("failed to save backup: %w", err)
	}
	return name, nil
}

// RestoreBackup decodes the named backup into into and returns its envelope.
func (bs *BackupService) RestoreBackup(ctx context.Context, name string, into interface{}) (*Envelope, error) {
	reader, err := bs.storage.Load(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load backup: %w", err)
	}
	defer reader.Close()

	var env Envelope
	if err := json.NewDecoder(reader).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode backup %s: %w", name, err)
	}
	if env.Version == "" {
		return nil, fmt.Errorf("invalid backup %s: missing version", name)
	}
	if err := json.Unmarshal(env.Data, into); err != nil {
		return nil, fmt.Errorf("failed to decode backup %s data: %w", name, err)
	}
	return &env, nil
}

// ListBackups returns backup names, oldest first.
func (bs *BackupService) ListBackups(ctx context.Context) ([]string, error) {
	names, err := bs.storage.List(ctx, namePrefix)
	if err != nil {
		return nil, err
	}
	backups := names[:0]
	for _, name := range names {
		if _, ok := ParseTimestamp(name); ok {
			backups = append(backups, name)
		}
	}
	sort.Strings(backups)
	return backups, nil
}

// Latest returns the newest backup name, or "" when there is none.
func (bs *BackupService) Latest(ctx context.Context) (string, error) {
	names, err := bs.ListBackups(ctx)
	if err != nil || len(names) == 0 {
		return "", err
	}
	return names[len(names)-1], nil
}

// DeleteBackup removes a single backup by name.
func (bs *BackupService) DeleteBackup(ctx context.Context, name string) error {
	return bs.storage.Delete(ctx, name)
}

// Prune deletes backups older than maxAge. It returns how many were removed.
func (bs *BackupService) Prune(ctx context.Context, maxAge time.Duration) (int, error) {
	names, err := bs.ListBackups(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list backups: %w", err)
	}

	cutoff := bs.clock.Now().Add(-maxAge)
	removed := 0
	for _, name := range names {
		ts, _ := ParseTimestamp(name)
		if !ts.Before(cutoff) {
			continue
		}
		if err := bs.DeleteBackup(ctx, name); err != nil {
			return removed, fmt.Errorf("failed to delete backup %s: %w", name, err)
		}
		removed++
	}
	return removed, nil
}

// ParseTimestamp extracts the creation time encoded in a backup name.
func ParseTimestamp(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, namePrefix) || !strings.HasSuffix(name, nameSuffix) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, namePrefix), nameSuffix)
	ts, err := time.Parse(timeLayout, stamp)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
