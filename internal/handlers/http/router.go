package http

import (
	"secureshield/internal/core/services"
	"secureshield/internal/infrastructure/middleware"
	"secureshield/pkg/config"
	"secureshield/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouteRegistrar adds authenticated routes, such as the live feeds.
type RouteRegistrar interface {
	SetupRoutes(api *gin.RouterGroup)
}

type Dependencies struct {
	Auth      services.AuthService
	Catalog   services.CatalogService
	Ingestion services.IngestionService
	Sessions  services.SessionService
	Audit     services.AuditService
	Extra     []RouteRegistrar
	Logger    *zap.SugaredLogger
}

// NewRouter builds the gin engine with the middleware chain and every API
// route. Uploaded media is served under the media prefix to authenticated
// users only.
func NewRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.RecoveryMiddleware(deps.Logger),
		middleware.TracingMiddleware(),
		middleware.RequestLoggerMiddleware(logger.NewContextLogger(deps.Logger.Desugar())),
		middleware.ErrorHandlerMiddleware(deps.Logger),
		middleware.NewHTTPRateLimitMiddleware(cfg),
	)

	authenticate := middleware.AuthMiddleware(deps.Auth)
	public := router.Group("/api/v1")
	api := router.Group("/api/v1", authenticate)

	NewAuthHandler(deps.Auth, cfg.Auth.AccessTokenTTL).
		SetupRoutes(public, api, middleware.NewAuthRateLimitMiddleware(cfg))
	NewContentHandler(deps.Catalog, deps.Ingestion, MediaConfig{
		Dir:            cfg.Media.Dir,
		URLPrefix:      cfg.Media.URLPrefix,
		MaxUploadBytes: cfg.Media.MaxUploadBytes,
	}, deps.Logger).SetupRoutes(api)
	NewSessionHandler(deps.Sessions).SetupRoutes(api)
	NewLogsHandler(deps.Audit).SetupRoutes(api)
	for _, r := range deps.Extra {
		r.SetupRoutes(api)
	}

	router.Group(cfg.Media.URLPrefix, authenticate).Static("/", cfg.Media.Dir)

	return router
}
