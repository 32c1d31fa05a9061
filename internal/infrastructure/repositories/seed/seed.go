// Package seed holds the initial collections written on first read.
package seed

import (
	"fmt"
	"sync"
	"time"

	"secureshield/internal/core/domain"

	"golang.org/x/crypto/bcrypt"
)

// DemoPassword is shared by every seeded account.
const DemoPassword = "password123"

var (
	hashOnce sync.Once
	hash     []byte
	hashErr  error
)

func demoHash() ([]byte, error) {
	hashOnce.Do(func() {
		hash, hashErr = bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	})
	return hash, hashErr
}

// Users returns the three demo accounts, one per role.
func Users() ([]domain.User, error) {
	h, err := demoHash()
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}
	return []domain.User{
		{ID: "1", Email: "admin@enterprise.com", Role: domain.RoleAdmin, PasswordHash: string(h)},
		{ID: "2", Email: "uploader@enterprise.com", Role: domain.RoleUploader, PasswordHash: string(h)},
		{ID: "3", Email: "viewer@enterprise.com", Role: domain.RoleViewer, PasswordHash: string(h)},
	}, nil
}

// Content returns the demo catalog relative to now.
func Content(now time.Time) []domain.ContentItem {
	return []domain.ContentItem{
		{
			ID:           "c1",
			Title:        "Executive Strategic Review Q4",
			Description:  "Internal video briefing on Q4 performance and 2024 projections.",
			Kind:         domain.KindVideo,
			StorageURL:   "https://sample-videos.com/video123/mp4/720/big_buck_bunny_720p_1mb.mp4",
			AllowedRoles: []domain.Role{domain.RoleAdmin, domain.RoleUploader, domain.RoleViewer},
			UploadedBy:   "2",
			CreatedAt:    now.Add(-24 * time.Hour),
		},
		{
			ID:           "c2",
			Title:        "Confidential Product Roadmap",
			Description:  "Highly confidential document outlining product launches for the next 18 months.",
			Kind:         domain.KindDocument,
			StorageURL:   "https://www.w3.org/WAI/ER/tests/xhtml/testfiles/resources/pdf/dummy.pdf",
			AllowedRoles: []domain.Role{domain.RoleAdmin, domain.RoleUploader},
			UploadedBy:   "2",
			CreatedAt:    now.Add(-48 * time.Hour),
		},
	}
}

// Logs returns the initial access log, which is empty.
func Logs() []domain.AccessLog {
	return []domain.AccessLog{}
}
