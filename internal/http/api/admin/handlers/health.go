package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/DiaryHub/internal/settings"
)

// HealthCheck probes the backing store.
type HealthCheck func(ctx context.Context) error

// HealthHandler serves liveness and version probes.
type HealthHandler struct {
	check   HealthCheck
	version string
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(check HealthCheck, version string) *HealthHandler {
	return &HealthHandler{check: check, version: version}
}

// Healthz reports whether the store answers within two seconds.
func (h *HealthHandler) Healthz(c *gin.Context) {
	if h.check != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if errCheck := h.check(ctx); errCheck != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": errCheck.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Version returns the build version.
func (h *HealthHandler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"name": settings.SiteName, "version": h.version})
}
