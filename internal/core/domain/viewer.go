package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	ViewerSecurePlayer = "secure_player"
	ViewerImage        = "image"
	ViewerDocument     = "document"

	watermarkTiles = 12

	// documentViewerFragment hides the toolbar and navigation panes of
	// embedded PDF viewers.
	documentViewerFragment = "#toolbar=0&navpanes=0&scrollbar=0"
)

// Watermark identifies the viewer on every rendered tile.
type Watermark struct {
	Email        string `json:"email"`
	UserID       UserID `json:"user_id"`
	ContentTitle string `json:"content_title"`
	Tiles        int    `json:"tiles"`
}

// Lines renders the overlay text for the given instant.
func (w Watermark) Lines(now time.Time) []string {
	lines := []string{w.Email}
	if w.UserID != "" {
		lines = append(lines, "ID: "+string(w.UserID))
	}
	if w.ContentTitle != "" {
		lines = append(lines, w.ContentTitle)
	}
	return append(lines, now.Format(time.DateTime))
}

// Viewer describes how a granted session should be rendered.
type Viewer struct {
	Type                    string    `json:"type"`
	SourceURL               string    `json:"source_url"`
	ControlsList            string    `json:"controls_list,omitempty"`
	DisablePictureInPicture bool      `json:"disable_picture_in_picture"`
	BlockContextMenu        bool      `json:"block_context_menu"`
	Watermark               Watermark `json:"watermark"`
}

// NewViewer builds the viewer for item as seen by user.
func NewViewer(item ContentItem, user User) Viewer {
	v := Viewer{
		SourceURL:        item.StorageURL,
		BlockContextMenu: true,
		Watermark: Watermark{
			Email:        user.Email,
			UserID:       user.ID,
			ContentTitle: item.Title,
			Tiles:        watermarkTiles,
		},
	}

	switch item.Kind {
	case KindVideo:
		v.Type = ViewerSecurePlayer
		v.ControlsList = "nodownload noplaybackrate"
		v.DisablePictureInPicture = true
	case KindImage:
		v.Type = ViewerImage
	default:
		v.Type = ViewerDocument
		v.SourceURL = documentURL(item.StorageURL)
	}
	return v
}

func documentURL(raw string) string {
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		raw = raw[:i]
	}
	return fmt.Sprintf("%s%s", raw, documentViewerFragment)
}
