package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Ayash-Bera/archivist/internal/health"
	"github.com/gin-gonic/gin"
)

// HealthReporter yields the current dependency health.
type HealthReporter interface {
	Current(ctx context.Context) health.OverallHealth
}

type HealthHandler struct {
	reporter HealthReporter
}

func NewHealthHandler(reporter HealthReporter) *HealthHandler {
	return &HealthHandler{reporter: reporter}
}

// HandleHealth responds 200 unless a dependency is unhealthy.
func (h *HealthHandler) HandleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	overall := h.reporter.Current(ctx)
	code := http.StatusOK
	if overall.Status == health.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, overall)
}
