package domain

import (
	"fmt"
	"strings"
	"time"
)

type ContentID string

type MediaKind string

const (
	KindVideo    MediaKind = "video"
	KindImage    MediaKind = "image"
	KindDocument MediaKind = "document"
)

func MediaKinds() []MediaKind {
	return []MediaKind{KindVideo, KindImage, KindDocument}
}

func (k MediaKind) Valid() bool {
	switch k {
	case KindVideo, KindImage, KindDocument:
		return true
	}
	return false
}

// pdf is the legacy name for documents.
const kindAliasPDF = "pdf"

// Label is the lower-case name of k.
func (k MediaKind) Label() string {
	return strings.ToLower(string(k))
}

// SearchLabels lists every name catalog search matches for k.
func (k MediaKind) SearchLabels() []string {
	if k == KindDocument {
		return []string{k.Label(), kindAliasPDF}
	}
	return []string{k.Label()}
}

func ParseMediaKind(s string) (MediaKind, error) {
	k := MediaKind(strings.ToLower(strings.TrimSpace(s)))
	if k == kindAliasPDF {
		k = KindDocument
	}
	if !k.Valid() {
		return "", fmt.Errorf("unknown media kind %q", s)
	}
	return k, nil
}

// ContentItem is a catalog entry. AllowedRoles may be empty, in which case
// nobody can view the item.
type ContentItem struct {
	ID           ContentID `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Kind         MediaKind `json:"kind"`
	StorageURL   string    `json:"storage_url"`
	AllowedRoles []Role    `json:"allowed_roles"`
	UploadedBy   UserID    `json:"uploaded_by"`
	CreatedAt    time.Time `json:"created_at"`
}

func (c ContentItem) Allows(role Role) bool {
	return containsRole(c.AllowedRoles, role)
}

// Clone returns a copy that shares no slices with c.
func (c ContentItem) Clone() ContentItem {
	if c.AllowedRoles != nil {
		c.AllowedRoles = append([]Role(nil), c.AllowedRoles...)
	}
	return c
}
