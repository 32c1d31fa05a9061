package http

import (
	"context"
	stderrors "errors"

	"secureshield/internal/core/domain"
	"secureshield/pkg/errors"

	"github.com/gin-gonic/gin"
)

// toAppError maps domain failures onto HTTP-facing application errors.
func toAppError(err error) *errors.AppError {
	if appErr := errors.GetAppError(err); appErr != nil {
		return appErr
	}

	switch {
	case stderrors.Is(err, domain.ErrInvalidCredentials):
		return errors.NewUnauthorizedError(domain.ErrInvalidCredentials.Error())
	case stderrors.Is(err, domain.ErrEmailTaken):
		return errors.NewConflictError(domain.ErrEmailTaken.Error())
	case stderrors.Is(err, domain.ErrFileRequired), stderrors.Is(err, domain.ErrInvalidInput):
		return errors.NewInvalidInputError(err.Error())
	case stderrors.Is(err, domain.ErrUnsupportedMedia):
		return errors.NewUnsupportedMediaError(err.Error())
	case stderrors.Is(err, domain.ErrSessionNotFound):
		return errors.NewNotFoundError("session")
	case stderrors.Is(err, domain.ErrSessionClosed):
		return errors.NewServiceUnavailableError(domain.ErrSessionClosed.Error())
	case stderrors.Is(err, domain.ErrContentNotFound):
		return errors.NewNotFoundError("content")
	case stderrors.Is(err, domain.ErrUserNotFound):
		return errors.NewNotFoundError("user")
	case stderrors.Is(err, domain.ErrDownloadBlocked):
		return errors.NewForbiddenError(domain.ErrDownloadBlocked.Error())
	}
	return errors.NewInternalError("Internal server error").WithCause(err)
}

// fail records err for ErrorHandlerMiddleware. A request whose client went
// away gets no response at all.
func fail(c *gin.Context, err error) {
	if stderrors.Is(err, context.Canceled) {
		c.Abort()
		return
	}
	_ = c.Error(toAppError(err))
}
