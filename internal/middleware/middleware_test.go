package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"sentinal-threads/internal/transport/httpdto"
	sentinal_errors "sentinal-threads/pkg/errors"
	"sentinal-threads/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{errors.Wrap(sentinal_errors.ErrNotFound, "thread"), http.StatusNotFound, httpdto.CodeNotFound},
		{sentinal_errors.ErrInvalidInput, http.StatusBadRequest, httpdto.CodeInvalidRequest},
		{errors.Wrap(sentinal_errors.ErrInvalidState, "thread is deleted"), http.StatusConflict, httpdto.CodeConflict},
		{sentinal_errors.ErrAlreadyExists, http.StatusConflict, httpdto.CodeConflict},
		{sentinal_errors.ErrTransactionAborted, http.StatusServiceUnavailable, httpdto.CodeUnavailable},
		{errors.New("disk on fire"), http.StatusInternalServerError, httpdto.CodeInternal},
	}
	for _, tc := range cases {
		status, code := ErrorStatus(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.code, code, tc.err.Error())
	}
}

func TestRequestIDAndErrorHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware(), LoggingMiddleware(logger.NewNop()), ErrorHandler(logger.NewNop()))

	var seen string
	r.GET("/fail", func(c *gin.Context) {
		seen, _ = c.Request.Context().Value(logger.RequestIdKey).(string)
		_ = c.Error(sentinal_errors.ErrNotFound)
	})
	r.GET("/written", func(c *gin.Context) {
		c.JSON(http.StatusTeapot, httpdto.NewSuccessResponse("ok"))
		_ = c.Error(sentinal_errors.ErrInvalidState)
	})

	req := httptest.NewRequest(http.MethodGet, "/fail", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "req-1", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "req-1", seen)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/written", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Len(t, w.Header().Get(RequestIDHeader), 32)
}
