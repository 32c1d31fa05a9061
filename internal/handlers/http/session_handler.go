package http

import (
	"net/http"

	"secureshield/internal/core/domain"
	"secureshield/internal/core/services"
	"secureshield/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	sessions services.SessionService
}

func NewSessionHandler(sessions services.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

func (h *SessionHandler) SetupRoutes(api *gin.RouterGroup) {
	api.POST("/content/:id/sessions", h.Open)
	api.GET("/sessions/:id", h.Get)
	api.DELETE("/sessions/:id", h.Close)
	api.POST("/sessions/:id/download", h.Download)
}

// Open blocks through verification. Denied sessions are still created and
// returned with the denial presentation.
func (h *SessionHandler) Open(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	snap, err := h.sessions.OpenSession(c.Request.Context(), user, domain.ContentID(c.Param("id")))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, snap)
}

func (h *SessionHandler) Get(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	snap, err := h.sessions.GetSession(user, domain.SessionID(c.Param("id")))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *SessionHandler) Close(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	if err := h.sessions.CloseSession(user, domain.SessionID(c.Param("id"))); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) Download(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	if err := h.sessions.RecordDownloadAttempt(c.Request.Context(), user, domain.SessionID(c.Param("id"))); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
