package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/memkeeper/memkeeper"
)

// Build information - can be set at build time using ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// HealthHandler handles health check requests
type HealthHandler struct {
	keeper memkeeper.Memkeeper
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(k memkeeper.Memkeeper) *HealthHandler {
	return &HealthHandler{keeper: k}
}

// HealthCheck handles GET /health - basic liveness check
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "memkeeper",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   Version,
	})
}

// ReadinessCheck handles GET /ready - verifies the store answers queries
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	response := gin.H{
		"status":    "ready",
		"service":   "memkeeper",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    gin.H{},
	}
	checks := response["checks"].(gin.H)

	if h.keeper == nil {
		checks["store"] = gin.H{"status": "unhealthy", "error": "client not initialized"}
		response["status"] = "not_ready"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}

	start := time.Now()
	_, err := h.keeper.Projects(ctx)
	duration := time.Since(start)

	if err != nil {
		checks["store"] = gin.H{
			"status":   "unhealthy",
			"error":    err.Error(),
			"duration": duration.String(),
		}
		response["status"] = "not_ready"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}

	checks["store"] = gin.H{"status": "healthy", "duration": duration.String()}
	c.JSON(http.StatusOK, response)
}

// LivenessCheck handles GET /live - Kubernetes liveness probe endpoint
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"service":   "memkeeper",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
