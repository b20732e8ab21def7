package middleware

import (
	"net/http"

	"sentinal-threads/internal/transport/httpdto"
	sentinal_errors "sentinal-threads/pkg/errors"
	"sentinal-threads/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrorStatus maps a service error onto an HTTP status and response code.
func ErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, sentinal_errors.ErrNotFound):
		return http.StatusNotFound, httpdto.CodeNotFound
	case errors.Is(err, sentinal_errors.ErrInvalidInput):
		return http.StatusBadRequest, httpdto.CodeInvalidRequest
	case errors.Is(err, sentinal_errors.ErrInvalidState), errors.Is(err, sentinal_errors.ErrAlreadyExists):
		return http.StatusConflict, httpdto.CodeConflict
	case errors.Is(err, sentinal_errors.ErrTransactionAborted):
		return http.StatusServiceUnavailable, httpdto.CodeUnavailable
	}
	return http.StatusInternalServerError, httpdto.CodeInternal
}

// ErrorHandler renders the last error a handler attached with c.Error,
// unless the handler already wrote a response.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status, code := ErrorStatus(err)
		if l != nil && status >= http.StatusInternalServerError {
			l.Ctx(c.Request.Context()).Error("request error", zap.Error(err), zap.Int("status", status))
		}
		c.JSON(status, httpdto.NewErrorResponse(err.Error(), code))
	}
}
