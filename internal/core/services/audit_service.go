package services

import (
	"context"
	"fmt"

	"secureshield/internal/core/domain"
	"secureshield/internal/core/ports"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

type AuditSummary struct {
	TotalEvents int `json:"total_events"`
	UniqueUsers int `json:"unique_users"`
	// SecurityAlerts counts every entry that is not a plain view.
	SecurityAlerts int `json:"security_alerts"`
}

type AuditReport struct {
	Entries []domain.AccessLog `json:"entries"`
	Summary AuditSummary       `json:"summary"`
}

// AuditService owns the append-only access log. Entries are prepended, so
// the collection is always newest first.
type AuditService interface {
	Record(ctx context.Context, user domain.User, item domain.ContentItem, action domain.AccessAction) (*domain.AccessLog, error)
	List(ctx context.Context) (*AuditReport, error)
}

type auditService struct {
	store ports.Store
	clock clock.Clock
}

func NewAuditService(store ports.Store, clk clock.Clock) AuditService {
	return &auditService{store: store, clock: clk}
}

// Record reads the log, prepends one entry and writes it back. Concurrent
// writers race last-writer-wins.
func (s *auditService) Record(ctx context.Context, user domain.User, item domain.ContentItem, action domain.AccessAction) (*domain.AccessLog, error) {
	logs, err := s.store.Logs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load logs: %w", err)
	}

	entry := domain.AccessLog{
		ID:           domain.AccessLogID(uuid.NewString()),
		UserID:       user.ID,
		UserEmail:    user.Email,
		ContentID:    item.ID,
		ContentTitle: item.Title,
		Timestamp:    s.clock.Now(),
		Action:       action,
	}

	updated := make([]domain.AccessLog, 0, len(logs)+1)
	updated = append(updated, entry)
	updated = append(updated, logs...)
	if err := s.store.ReplaceLogs(ctx, updated); err != nil {
		return nil, fmt.Errorf("save logs: %w", err)
	}
	return &entry, nil
}

func (s *auditService) List(ctx context.Context) (*AuditReport, error) {
	logs, err := s.store.Logs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load logs: %w", err)
	}

	users := make(map[domain.UserID]struct{})
	alerts := 0
	for _, l := range logs {
		users[l.UserID] = struct{}{}
		if l.Action != domain.ActionView {
			alerts++
		}
	}

	return &AuditReport{
		Entries: logs,
		Summary: AuditSummary{
			TotalEvents:    len(logs),
			UniqueUsers:    len(users),
			SecurityAlerts: alerts,
		},
	}, nil
}
