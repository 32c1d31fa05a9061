package seed

import (
	"testing"
	"time"

	"secureshield/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestUsers(t *testing.T) {
	users, err := Users()
	require.NoError(t, err)
	require.Len(t, users, 3)

	roles := map[domain.Role]string{}
	for _, u := range users {
		roles[u.Role] = u.Email
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(DemoPassword)))
	}
	assert.Equal(t, "admin@enterprise.com", roles[domain.RoleAdmin])
	assert.Equal(t, "uploader@enterprise.com", roles[domain.RoleUploader])
	assert.Equal(t, "viewer@enterprise.com", roles[domain.RoleViewer])
}

func TestContent(t *testing.T) {
	now := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	items := Content(now)
	require.Len(t, items, 2)

	assert.Equal(t, domain.ContentID("c1"), items[0].ID)
	assert.Equal(t, domain.KindVideo, items[0].Kind)
	assert.Len(t, items[0].AllowedRoles, 3)
	assert.Equal(t, now.Add(-24*time.Hour), items[0].CreatedAt)

	assert.Equal(t, domain.ContentID("c2"), items[1].ID)
	assert.Equal(t, domain.KindDocument, items[1].Kind)
	assert.False(t, items[1].Allows(domain.RoleViewer))
	assert.Equal(t, domain.UserID("2"), items[1].UploadedBy)
}
