package http

import (
	"net/http"

	"secureshield/internal/core/domain"
	"secureshield/internal/core/services"
	"secureshield/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
)

type LogsHandler struct {
	audit services.AuditService
}

func NewLogsHandler(audit services.AuditService) *LogsHandler {
	return &LogsHandler{audit: audit}
}

func (h *LogsHandler) SetupRoutes(api *gin.RouterGroup) {
	api.GET("/logs", middleware.RequireRoles(domain.LogRoles()...), h.List)
}

func (h *LogsHandler) List(c *gin.Context) {
	report, err := h.audit.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
