package services

import (
	"context"
	"testing"
	"time"

	"secureshield/internal/core/domain"
	"secureshield/internal/infrastructure/repositories/seed"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalogItems() []domain.ContentItem {
	return []domain.ContentItem{
		{ID: "a", Title: "Board Meeting", Description: "Quarterly review", Kind: domain.KindVideo,
			AllowedRoles: []domain.Role{domain.RoleAdmin, domain.RoleUploader, domain.RoleViewer}},
		{ID: "b", Title: "Roadmap", Description: "Confidential plans", Kind: domain.KindDocument,
			AllowedRoles: []domain.Role{domain.RoleAdmin, domain.RoleUploader}},
		{ID: "c", Title: "Org chart", Description: "Teams", Kind: domain.KindImage,
			AllowedRoles: []domain.Role{domain.RoleViewer}},
		{ID: "d", Title: "Draft", Description: "Nobody sees this", Kind: domain.KindImage},
	}
}

func ids(items []domain.ContentItem) []domain.ContentID {
	out := []domain.ContentID{}
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestFilterCatalog(t *testing.T) {
	tests := []struct {
		name  string
		role  domain.Role
		query string
		want  []domain.ContentID
	}{
		{"admin sees allowed items", domain.RoleAdmin, "", []domain.ContentID{"a", "b"}},
		{"viewer sees allowed items", domain.RoleViewer, "", []domain.ContentID{"a", "c"}},
		{"whitespace query is empty", domain.RoleViewer, "   ", []domain.ContentID{"a", "c"}},
		{"title match ignores case", domain.RoleAdmin, "ROADMAP", []domain.ContentID{"b"}},
		{"description match", domain.RoleUploader, "quarterly", []domain.ContentID{"a"}},
		{"kind label match", domain.RoleViewer, "image", []domain.ContentID{"c"}},
		{"pdf matches documents", domain.RoleAdmin, "PDF", []domain.ContentID{"b"}},
		{"query cannot reveal hidden items", domain.RoleViewer, "roadmap", []domain.ContentID{}},
		{"empty roles hidden from everyone", domain.RoleAdmin, "draft", []domain.ContentID{}},
		{"no match", domain.RoleAdmin, "zzz", []domain.ContentID{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(FilterCatalog(catalogItems(), tt.role, tt.query)))
		})
	}
}

func TestFilterCatalog_SeedPDFSearch(t *testing.T) {
	got := FilterCatalog(seed.Content(time.Unix(0, 0)), domain.RoleAdmin, "pdf")
	assert.Equal(t, []domain.ContentID{"c2"}, ids(got))
}

func TestFilterCatalog_DoesNotModifyInput(t *testing.T) {
	items := catalogItems()
	before := catalogItems()

	_ = FilterCatalog(items, domain.RoleViewer, "o")
	assert.Equal(t, before, items)
}

func TestFilterCatalog_ResultIsSubsetInOrder(t *testing.T) {
	items := catalogItems()
	for _, role := range domain.Roles() {
		for _, q := range []string{"", "o", "e", "video"} {
			got := FilterCatalog(items, role, q)
			pos := -1
			for _, g := range got {
				assert.True(t, g.Allows(role))
				idx := -1
				for i, it := range items {
					if it.ID == g.ID {
						idx = i
					}
				}
				assert.Greater(t, idx, pos, "order for %s %q", role, q)
				pos = idx
			}
		}
	}
}

func TestCatalogService_List(t *testing.T) {
	svc := NewCatalogService(newTestStore(clock.NewMock()))

	page, err := svc.List(context.Background(), viewerUser, "")
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, []domain.ContentID{"c1"}, ids(page.Items))

	page, err = svc.List(context.Background(), adminUser, "roadmap")
	require.NoError(t, err)
	assert.Equal(t, []domain.ContentID{"c2"}, ids(page.Items))
}

func TestCatalogService_Stats(t *testing.T) {
	clk := clock.NewMock()
	store := newTestStore(clk)
	ctx := context.Background()

	logs := []domain.AccessLog{
		{ID: "1", UserID: "1", ContentID: "c2", ContentTitle: "old", Action: domain.ActionView, Timestamp: clk.Now()},
		{ID: "2", UserID: "3", ContentID: "c1", Action: domain.ActionView, Timestamp: clk.Now()},
		{ID: "3", UserID: "1", ContentID: "c1", Action: domain.ActionDownloadAttempt, Timestamp: clk.Now()},
		{ID: "4", UserID: "2", ContentID: "gone", ContentTitle: "Removed deck", Action: domain.ActionView, Timestamp: clk.Now()},
		{ID: "5", UserID: "2", ContentID: "x", ContentTitle: "Fourth", Action: domain.ActionView, Timestamp: clk.Now().Add(time.Second)},
	}
	require.NoError(t, store.ReplaceLogs(ctx, logs))

	stats, err := NewCatalogService(store).Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalAssets)
	assert.Equal(t, map[domain.MediaKind]int{
		domain.KindVideo:    1,
		domain.KindDocument: 1,
		domain.KindImage:    0,
	}, stats.ByKind)
	assert.Equal(t, 3, stats.UniqueViewers)

	require.Len(t, stats.TopAccessed, 3)
	assert.Equal(t, AccessCount{ContentID: "c1", Title: "Executive Strategic Review Q4", Accesses: 2}, stats.TopAccessed[0])
	assert.Equal(t, AccessCount{ContentID: "c2", Title: "Confidential Product Roadmap", Accesses: 1}, stats.TopAccessed[1])
	assert.Equal(t, AccessCount{ContentID: "gone", Title: "Removed deck", Accesses: 1}, stats.TopAccessed[2])
}

func TestCatalogService_StatsEmptyLog(t *testing.T) {
	stats, err := NewCatalogService(newTestStore(clock.NewMock())).Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.UniqueViewers)
	assert.NotNil(t, stats.TopAccessed)
	assert.Empty(t, stats.TopAccessed)
}
