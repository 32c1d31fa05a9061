// Package storetest checks that a ports.Store implementation honours the
// collection contract. Each backend runs it from its own tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"secureshield/internal/core/domain"
	"secureshield/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory opens a fresh, empty store.
type Factory func(t *testing.T) ports.Store

func Run(t *testing.T, open Factory) {
	t.Run("SeedsOnFirstRead", func(t *testing.T) { testSeeds(t, open(t)) })
	t.Run("ReplaceIsWholeCollection", func(t *testing.T) { testReplace(t, open(t)) })
	t.Run("ReadsAreCopies", func(t *testing.T) { testCopies(t, open(t)) })
	t.Run("EmptyIsNotMissing", func(t *testing.T) { testEmptyStaysEmpty(t, open(t)) })
	t.Run("Ping", func(t *testing.T) { require.NoError(t, open(t).Ping(context.Background())) })
}

func testSeeds(t *testing.T, s ports.Store) {
	ctx := context.Background()

	users, err := s.Users(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "admin@enterprise.com", users[0].Email)

	content, err := s.Content(ctx)
	require.NoError(t, err)
	require.Len(t, content, 2)
	assert.Equal(t, domain.ContentID("c1"), content[0].ID)
	assert.Equal(t, domain.ContentID("c2"), content[1].ID)

	logs, err := s.Logs(ctx)
	require.NoError(t, err)
	assert.Empty(t, logs)

	// The seed is persisted, so a second read sees the same data.
	again, err := s.Content(ctx)
	require.NoError(t, err)
	assert.Equal(t, content[0].CreatedAt.Unix(), again[0].CreatedAt.Unix())
}

func testReplace(t *testing.T, s ports.Store) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	logs := []domain.AccessLog{
		{ID: "l2", UserID: "1", ContentID: "c1", Action: domain.ActionView, Timestamp: now},
		{ID: "l1", UserID: "3", ContentID: "c1", Action: domain.ActionDownloadAttempt, Timestamp: now.Add(-time.Minute)},
	}
	require.NoError(t, s.ReplaceLogs(ctx, logs))

	got, err := s.Logs(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.AccessLogID("l2"), got[0].ID)
	assert.Equal(t, domain.ActionDownloadAttempt, got[1].Action)
	assert.True(t, now.Equal(got[0].Timestamp))

	items := []domain.ContentItem{{ID: "x", Title: "Only", Kind: domain.KindImage, AllowedRoles: []domain.Role{}}}
	require.NoError(t, s.ReplaceContent(ctx, items))

	content, err := s.Content(ctx)
	require.NoError(t, err)
	require.Len(t, content, 1)
	assert.Equal(t, "Only", content[0].Title)
	assert.False(t, content[0].Allows(domain.RoleAdmin))

	users := []domain.User{{ID: "9", Email: "new@example.com", Role: domain.RoleViewer, PasswordHash: "h"}}
	require.NoError(t, s.ReplaceUsers(ctx, users))
	gotUsers, err := s.Users(ctx)
	require.NoError(t, err)
	assert.Equal(t, users, gotUsers)
}

func testCopies(t *testing.T, s ports.Store) {
	ctx := context.Background()

	content, err := s.Content(ctx)
	require.NoError(t, err)
	content[0].Title = "mutated"
	content[0].AllowedRoles[0] = "NOBODY"

	fresh, err := s.Content(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Executive Strategic Review Q4", fresh[0].Title)
	assert.Equal(t, domain.RoleAdmin, fresh[0].AllowedRoles[0])
}

func testEmptyStaysEmpty(t *testing.T, s ports.Store) {
	ctx := context.Background()

	require.NoError(t, s.ReplaceContent(ctx, []domain.ContentItem{}))
	content, err := s.Content(ctx)
	require.NoError(t, err)
	assert.Empty(t, content)
}
