package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/artgen/internal/logger"
	"github.com/timmy/artgen/internal/provider"
	"github.com/timmy/artgen/internal/service"
	"github.com/timmy/artgen/internal/storage"
)

// statusFor maps service, storage and provider errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, provider.ErrTransport),
		errors.Is(err, provider.ErrUpstream),
		errors.Is(err, provider.ErrUnexpectedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {key: err.Error()} with the mapped status.
func respondError(c *gin.Context, err error, key string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.CtxError(c.Request.Context(), "Request failed: path=%s, status=%d, error=%v",
			c.Request.URL.Path, status, err)
	}
	c.JSON(status, gin.H{key: err.Error()})
}
