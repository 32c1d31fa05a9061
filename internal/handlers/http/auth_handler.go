package http

import (
	"net/http"
	"time"

	"secureshield/internal/core/domain"
	"secureshield/internal/core/services"
	"secureshield/internal/infrastructure/middleware"
	"secureshield/pkg/errors"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService    services.AuthService
	accessTokenTTL time.Duration
}

func NewAuthHandler(authService services.AuthService, accessTokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		accessTokenTTL: accessTokenTTL,
	}
}

// SetupRoutes registers the public auth endpoints on public and the account
// endpoints on api, which must already require authentication.
func (h *AuthHandler) SetupRoutes(public, api *gin.RouterGroup, limiter gin.HandlerFunc) {
	auth := public.Group("/auth", limiter)
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
	}

	api.GET("/me", h.Me)
	api.GET("/me/navigation", h.Navigation)
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,max=254"`
	Password string `json:"password" binding:"required,max=128"`
	Role     string `json:"role" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,max=254"`
	Password string `json:"password" binding:"required,max=128"`
}

type TokenResponse struct {
	User        domain.User `json:"user"`
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int         `json:"expires_in"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		_ = c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	user, token, err := h.authService.Register(c.Request.Context(), req.Email, req.Password, role)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, h.tokenResponse(*user, token))
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}

	user, token, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, h.tokenResponse(*user, token))
}

func (h *AuthHandler) Me(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *AuthHandler) Navigation(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"role":  user.Role,
		"items": domain.NavigationFor(user.Role),
	})
}

func (h *AuthHandler) tokenResponse(user domain.User, token string) TokenResponse {
	return TokenResponse{
		User:        user,
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(h.accessTokenTTL / time.Second),
	}
}
