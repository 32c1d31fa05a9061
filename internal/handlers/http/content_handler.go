package http

import (
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"secureshield/internal/core/domain"
	"secureshield/internal/core/services"
	"secureshield/internal/infrastructure/middleware"
	"secureshield/pkg/errors"
	"secureshield/pkg/utils"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MediaConfig controls where uploaded files are written and served from.
type MediaConfig struct {
	Dir            string
	URLPrefix      string
	MaxUploadBytes int64
}

type ContentHandler struct {
	catalog   services.CatalogService
	ingestion services.IngestionService
	media     MediaConfig
	logger    *zap.SugaredLogger
}

func NewContentHandler(
	catalog services.CatalogService,
	ingestion services.IngestionService,
	media MediaConfig,
	logger *zap.SugaredLogger,
) *ContentHandler {
	return &ContentHandler{
		catalog:   catalog,
		ingestion: ingestion,
		media:     media,
		logger:    logger,
	}
}

func (h *ContentHandler) SetupRoutes(api *gin.RouterGroup) {
	api.GET("/content", h.List)
	api.GET("/content/stats", h.Stats)
	api.POST("/content", middleware.RequireRoles(domain.UploadRoles()...), h.Upload)
}

func (h *ContentHandler) List(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	page, err := h.catalog.List(c.Request.Context(), user, c.Query("q"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *ContentHandler) Stats(c *gin.Context) {
	stats, err := h.catalog.Stats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Upload accepts a multipart form with title, description, kind,
// allowed_roles (repeated or comma separated) and file.
func (h *ContentHandler) Upload(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	if c.Request.ContentLength > h.media.MaxUploadBytes {
		_ = c.Error(errors.NewPayloadTooLargeError(h.media.MaxUploadBytes))
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.media.MaxUploadBytes)
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			_ = c.Error(errors.NewPayloadTooLargeError(h.media.MaxUploadBytes))
			return
		}
		if !stderrors.Is(err, http.ErrNotMultipart) {
			_ = c.Error(errors.NewInvalidInputError("invalid multipart form"))
			return
		}
	}

	kind, err := domain.ParseMediaKind(c.PostForm("kind"))
	if err != nil {
		_ = c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}
	roles, err := parseRoles(c.PostFormArray("allowed_roles"))
	if err != nil {
		_ = c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	req := services.UploadRequest{
		Title:        c.PostForm("title"),
		Description:  c.PostForm("description"),
		Kind:         kind,
		AllowedRoles: roles,
	}

	var saved string
	if header, ferr := c.FormFile("file"); ferr == nil {
		url, diskPath, serr := h.saveFile(header, kind)
		if serr != nil {
			fail(c, serr)
			return
		}
		req.FileURL, saved = url, diskPath
	}

	item, err := h.ingestion.Upload(c.Request.Context(), user, req)
	if err != nil {
		if saved != "" {
			if rerr := os.Remove(saved); rerr != nil {
				h.logger.Warnw("failed to remove orphaned upload", "path", saved, "error", rerr)
			}
		}
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"item": item})
}

// saveFile checks the sniffed type against kind and writes the file under
// the media directory. It returns the public URL and the path on disk.
func (h *ContentHandler) saveFile(header *multipart.FileHeader, kind domain.MediaKind) (string, string, error) {
	src, err := header.Open()
	if err != nil {
		return "", "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	mt, err := mimetype.DetectReader(src)
	if err != nil {
		return "", "", fmt.Errorf("detect media type: %w", err)
	}
	if !matchesKind(mt, kind) {
		return "", "", fmt.Errorf("%w: got %s for %s", domain.ErrUnsupportedMedia, mt.String(), kind)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", "", fmt.Errorf("rewind upload: %w", err)
	}

	if err := os.MkdirAll(h.media.Dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create media dir: %w", err)
	}
	name := uuid.NewString() + "_" + utils.SanitizeFilename(header.Filename)
	diskPath := filepath.Join(h.media.Dir, name)

	dst, err := os.OpenFile(diskPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", "", fmt.Errorf("create media file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(diskPath)
		return "", "", fmt.Errorf("write media file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(diskPath)
		return "", "", fmt.Errorf("close media file: %w", err)
	}

	h.logger.Debugw("stored upload", "path", diskPath, "mime", mt.String(), "size", header.Size)
	return path.Join(h.media.URLPrefix, name), diskPath, nil
}

func matchesKind(mt *mimetype.MIME, kind domain.MediaKind) bool {
	switch kind {
	case domain.KindVideo:
		return strings.HasPrefix(mt.String(), "video/")
	case domain.KindImage:
		return strings.HasPrefix(mt.String(), "image/")
	case domain.KindDocument:
		return mt.Is("application/pdf")
	}
	return false
}

func parseRoles(values []string) ([]domain.Role, error) {
	roles := []domain.Role{}
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			r, err := domain.ParseRole(part)
			if err != nil {
				return nil, err
			}
			roles = append(roles, r)
		}
	}
	return roles, nil
}
