package services

import (
	"context"
	"fmt"
	"strings"

	"secureshield/internal/core/domain"
	"secureshield/internal/core/ports"
	"secureshield/pkg/tracing"
	"secureshield/pkg/utils"
	"secureshield/pkg/validation"

	"github.com/benbjohnson/clock"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const uploadSuccessMessage = "Content uploaded successfully"

type UploadRequest struct {
	Title        string           `json:"title" validate:"notblank,max=200"`
	Description  string           `json:"description" validate:"notblank,max=2000"`
	Kind         domain.MediaKind `json:"kind" validate:"media_kind"`
	FileURL      string           `json:"file_url"`
	AllowedRoles []domain.Role    `json:"allowed_roles" validate:"dive,role"`
}

type IngestionService interface {
	// Upload adds a catalog item at the head of the collection. Callers are
	// expected to have checked that user may upload.
	Upload(ctx context.Context, user domain.User, req UploadRequest) (*domain.ContentItem, error)
}

type ingestionService struct {
	store     ports.Store
	notifier  ports.Notifier
	validator *validation.StructValidator
	clock     clock.Clock
	metrics   ports.MetricsRecorder
	logger    *zap.SugaredLogger
}

func NewIngestionService(
	store ports.Store,
	notifier ports.Notifier,
	clk clock.Clock,
	metrics ports.MetricsRecorder,
	logger *zap.SugaredLogger,
) IngestionService {
	v := validation.NewStructValidator()
	v.MustRegisterValidation("media_kind", func(fl validator.FieldLevel) bool {
		return domain.MediaKind(fl.Field().String()).Valid()
	})
	v.MustRegisterValidation("role", func(fl validator.FieldLevel) bool {
		return domain.Role(fl.Field().String()).Valid()
	})

	return &ingestionService{
		store:     store,
		notifier:  notifier,
		validator: v,
		clock:     clk,
		metrics:   metrics,
		logger:    logger,
	}
}

func (s *ingestionService) Upload(ctx context.Context, user domain.User, req UploadRequest) (*domain.ContentItem, error) {
	ctx, span := tracing.TraceCatalog(ctx, "upload", string(user.ID))
	defer span.End()

	if strings.TrimSpace(req.FileURL) == "" {
		return nil, domain.ErrFileRequired
	}
	req.Title = utils.SanitizeString(req.Title)
	req.Description = utils.SanitizeString(req.Description)
	if err := s.validator.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	items, err := s.store.Content(ctx)
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, fmt.Errorf("load content: %w", err)
	}

	roles := append([]domain.Role{}, req.AllowedRoles...)
	item := domain.ContentItem{
		ID:           domain.ContentID(uuid.NewString()),
		Title:        req.Title,
		Description:  req.Description,
		Kind:         req.Kind,
		StorageURL:   req.FileURL,
		AllowedRoles: roles,
		UploadedBy:   user.ID,
		CreatedAt:    s.clock.Now(),
	}

	updated := make([]domain.ContentItem, 0, len(items)+1)
	updated = append(updated, item)
	updated = append(updated, items...)
	if err := s.store.ReplaceContent(ctx, updated); err != nil {
		tracing.RecordError(ctx, err)
		return nil, fmt.Errorf("save content: %w", err)
	}

	s.metrics.ContentUploaded(item.Kind)
	s.logger.Infow("content uploaded",
		"content_id", item.ID,
		"kind", item.Kind,
		"uploaded_by", user.ID,
		"allowed_roles", item.AllowedRoles,
	)
	s.notifier.Notify(ctx, user.ID, domain.SeveritySuccess, uploadSuccessMessage)

	return &item, nil
}
