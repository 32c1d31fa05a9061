package middleware

import (
	"strings"

	"secureshield/internal/core/domain"
	"secureshield/internal/core/services"
	"secureshield/pkg/errors"
	"secureshield/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	UserKey   = "user"
	UserIDKey = "user_id"
)

// AuthMiddleware resolves the bearer token to a stored account. Feed
// endpoints cannot set headers from a browser, so the token may also arrive
// in the access_token query parameter.
func AuthMiddleware(authService services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			abortWithError(c, err)
			return
		}

		claims, verr := authService.ValidateToken(token)
		if verr != nil {
			abortWithError(c, errors.NewUnauthorizedError(verr.Error()))
			return
		}

		user, uerr := authService.ResolveUser(c.Request.Context(), claims)
		if uerr != nil {
			abortWithError(c, errors.NewUnauthorizedError("account no longer exists"))
			return
		}

		c.Set(UserKey, *user)
		c.Set(UserIDKey, string(user.ID))
		c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), string(user.ID)))
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, *errors.AppError) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if token := c.Query("access_token"); token != "" {
			return token, nil
		}
		return "", errors.NewUnauthorizedError("authorization header required")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", errors.NewUnauthorizedError("invalid authorization header format")
	}
	return parts[1], nil
}

// RequireRoles rejects users whose role is not listed. It must run after
// AuthMiddleware.
func RequireRoles(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			abortWithError(c, errors.NewUnauthorizedError("authentication required"))
			return
		}
		for _, r := range roles {
			if user.Role == r {
				c.Next()
				return
			}
		}
		abortWithError(c, errors.NewForbiddenError("insufficient permissions").
			WithContext("role", user.Role))
	}
}

// CurrentUser returns the account set by AuthMiddleware.
func CurrentUser(c *gin.Context) (domain.User, bool) {
	v, exists := c.Get(UserKey)
	if !exists {
		return domain.User{}, false
	}
	user, ok := v.(domain.User)
	return user, ok
}
