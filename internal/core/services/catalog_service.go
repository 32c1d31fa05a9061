package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"secureshield/internal/core/domain"
	"secureshield/internal/core/ports"
	"secureshield/pkg/tracing"
)

// topAccessedLimit is how many entries Stats ranks.
const topAccessedLimit = 3

// FilterCatalog keeps the items role may see whose title, description or
// kind label contains query, case-insensitively. Input order is preserved
// and items is not modified.
func FilterCatalog(items []domain.ContentItem, role domain.Role, query string) []domain.ContentItem {
	q := strings.ToLower(strings.TrimSpace(query))

	out := make([]domain.ContentItem, 0, len(items))
	for _, item := range items {
		if !item.Allows(role) {
			continue
		}
		if q != "" && !matches(item, q) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func matches(item domain.ContentItem, q string) bool {
	if strings.Contains(strings.ToLower(item.Title), q) ||
		strings.Contains(strings.ToLower(item.Description), q) {
		return true
	}
	for _, label := range item.Kind.SearchLabels() {
		if strings.Contains(label, q) {
			return true
		}
	}
	return false
}

type CatalogPage struct {
	Items []domain.ContentItem `json:"items"`
	// Total counts every catalog item, visible or not.
	Total int `json:"total"`
}

type AccessCount struct {
	ContentID domain.ContentID `json:"content_id"`
	Title     string           `json:"title"`
	Accesses  int              `json:"accesses"`
}

type CatalogStats struct {
	TotalAssets   int                      `json:"total_assets"`
	ByKind        map[domain.MediaKind]int `json:"by_kind"`
	UniqueViewers int                      `json:"unique_viewers"`
	TopAccessed   []AccessCount            `json:"top_accessed"`
}

type CatalogService interface {
	List(ctx context.Context, user domain.User, query string) (*CatalogPage, error)
	Stats(ctx context.Context) (*CatalogStats, error)
}

type catalogService struct {
	store ports.Store
}

func NewCatalogService(store ports.Store) CatalogService {
	return &catalogService{store: store}
}

func (s *catalogService) List(ctx context.Context, user domain.User, query string) (*CatalogPage, error) {
	ctx, span := tracing.TraceCatalog(ctx, "list", string(user.ID))
	defer span.End()

	items, err := s.store.Content(ctx)
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, fmt.Errorf("load content: %w", err)
	}

	return &CatalogPage{
		Items: FilterCatalog(items, user.Role, query),
		Total: len(items),
	}, nil
}

func (s *catalogService) Stats(ctx context.Context) (*CatalogStats, error) {
	items, err := s.store.Content(ctx)
	if err != nil {
		return nil, fmt.Errorf("load content: %w", err)
	}
	logs, err := s.store.Logs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load logs: %w", err)
	}

	stats := &CatalogStats{
		TotalAssets: len(items),
		ByKind:      make(map[domain.MediaKind]int, len(domain.MediaKinds())),
		TopAccessed: []AccessCount{},
	}
	for _, k := range domain.MediaKinds() {
		stats.ByKind[k] = 0
	}

	titles := make(map[domain.ContentID]string, len(items))
	for _, item := range items {
		stats.ByKind[item.Kind]++
		titles[item.ID] = item.Title
	}

	viewers := make(map[domain.UserID]struct{})
	index := make(map[domain.ContentID]int)
	var counts []AccessCount
	for _, l := range logs {
		viewers[l.UserID] = struct{}{}

		i, ok := index[l.ContentID]
		if !ok {
			title := titles[l.ContentID]
			if title == "" {
				title = l.ContentTitle
			}
			i = len(counts)
			index[l.ContentID] = i
			counts = append(counts, AccessCount{ContentID: l.ContentID, Title: title})
		}
		counts[i].Accesses++
	}
	stats.UniqueViewers = len(viewers)

	sort.SliceStable(counts, func(a, b int) bool {
		return counts[a].Accesses > counts[b].Accesses
	})
	if len(counts) > topAccessedLimit {
		counts = counts[:topAccessedLimit]
	}
	stats.TopAccessed = append(stats.TopAccessed, counts...)

	return stats, nil
}
