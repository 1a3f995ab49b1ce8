package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/artgen/internal/service"
)

// UploadHandler handles uploads of edited images.
type UploadHandler struct {
	uploadService *service.UploadService
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(uploadService *service.UploadService) *UploadHandler {
	return &UploadHandler{uploadService: uploadService}
}

// Upload handles POST /upload. The response body is a bare list of per-item outcomes.
func (h *UploadHandler) Upload(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	outcomes, err := h.uploadService.Upload(c.Request.Context(), body)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			respondError(c, &uploadError{err}, "message")
			return
		}
		respondError(c, err, "message")
		return
	}
	c.JSON(http.StatusOK, outcomes)
}

type uploadError struct{ err error }

func (e *uploadError) Error() string { return "Error uploading images: " + e.err.Error() }
func (e *uploadError) Unwrap() error { return e.err }
