package handler

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/timmy/artgen/internal/service"
)

// ImageHandler serves image files and metadata.
type ImageHandler struct {
	imageService *service.ImageService
}

// NewImageHandler creates a new image handler.
func NewImageHandler(imageService *service.ImageService) *ImageHandler {
	return &ImageHandler{imageService: imageService}
}

// ServeGenerated handles GET /images/:filename.
func (h *ImageHandler) ServeGenerated(c *gin.Context) {
	filename := c.Param("filename")
	rc, err := h.imageService.OpenGenerated(c.Request.Context(), filename)
	h.stream(c, filename, rc, err)
}

// ServeUploaded handles GET /uploaded_images/:filename.
func (h *ImageHandler) ServeUploaded(c *gin.Context) {
	filename := c.Param("filename")
	rc, err := h.imageService.OpenUploaded(c.Request.Context(), filename)
	h.stream(c, filename, rc, err)
}

func (h *ImageHandler) stream(c *gin.Context, filename string, rc io.ReadCloser, err error) {
	if err != nil {
		respondError(c, err, "error")
		return
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, -1, contentType, rc, nil)
}

// ListUploaded handles GET /api/uploaded_images.
func (h *ImageHandler) ListUploaded(c *gin.Context) {
	images, err := h.imageService.ListUploaded(c.Request.Context())
	if err != nil {
		respondError(c, err, "error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"images": images})
}

// GetMetadata handles GET /api/metadata?filename=.
func (h *ImageHandler) GetMetadata(c *gin.Context) {
	view, err := h.imageService.GetMetadata(c.Request.Context(), c.Query("filename"))
	if err != nil {
		respondError(c, err, "error")
		return
	}
	c.JSON(http.StatusOK, view)
}
