package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/artgen/internal/service"
)

// GenerateHandler handles image generation requests.
type GenerateHandler struct {
	generateService *service.GenerateService
}

// NewGenerateHandler creates a new generate handler.
func NewGenerateHandler(generateService *service.GenerateService) *GenerateHandler {
	return &GenerateHandler{generateService: generateService}
}

// Generate handles POST /generate-art/:model.
// Parameters:
//   - c: Gin request context.
//
// Returns: none (writes JSON response).
func (h *GenerateHandler) Generate(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON data received"})
		return
	}

	result, err := h.generateService.Generate(c.Request.Context(), c.Param("model"), body)
	if err != nil {
		respondError(c, err, "error")
		return
	}
	c.JSON(http.StatusOK, result)
}
