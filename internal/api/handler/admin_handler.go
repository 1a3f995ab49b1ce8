package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timmy/artgen/internal/logger"
	"github.com/timmy/artgen/internal/service"
)

// AdminHandler exposes maintenance operations.
type AdminHandler struct {
	sweeper *service.Sweeper

	mu            sync.RWMutex
	isRunning     bool
	lastRunTime   time.Time
	lastRunResult *service.SweepResult
}

// SweepStatus describes the last manual sweep.
type SweepStatus struct {
	IsRunning   bool                 `json:"is_running"`
	LastRunTime *time.Time           `json:"last_run_time,omitempty"`
	LastResult  *service.SweepResult `json:"last_result,omitempty"`
}

// NewAdminHandler creates a new admin handler.
// Parameters:
//   - sweeper: retention sweeper to run on demand.
//
// Returns:
//   - *AdminHandler: initialized handler.
func NewAdminHandler(sweeper *service.Sweeper) *AdminHandler {
	return &AdminHandler{sweeper: sweeper}
}

// TriggerSweep handles POST /admin/sweep.
// Parameters:
//   - c: Gin request context.
//
// Returns: none (writes JSON response).
func (h *AdminHandler) TriggerSweep(c *gin.Context) {
	ctx := c.Request.Context()

	h.mu.Lock()
	if h.isRunning {
		h.mu.Unlock()
		logger.CtxWarn(ctx, "Sweep request rejected: already running, client_ip=%s", c.ClientIP())
		c.JSON(http.StatusConflict, gin.H{"error": "Sweep is already running"})
		return
	}
	h.isRunning = true
	h.mu.Unlock()

	logger.CtxInfo(ctx, "Manual sweep requested: client_ip=%s", c.ClientIP())

	// detached so a client disconnect does not abort half a sweep
	result := h.sweeper.RunOnce(logger.SetComponent(context.WithoutCancel(ctx), "sweeper"))

	h.mu.Lock()
	h.isRunning = false
	h.lastRunTime = time.Now()
	h.lastRunResult = result
	h.mu.Unlock()

	c.JSON(http.StatusOK, result)
}

// GetSweepStatus handles GET /admin/sweep/status.
func (h *AdminHandler) GetSweepStatus(c *gin.Context) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := SweepStatus{IsRunning: h.isRunning, LastResult: h.lastRunResult}
	if !h.lastRunTime.IsZero() {
		t := h.lastRunTime
		status.LastRunTime = &t
	}
	c.JSON(http.StatusOK, status)
}
