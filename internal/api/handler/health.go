package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

// Pinger reports whether a backing store is reachable. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler serves liveness with the active scoring version.
type HealthHandler struct {
	scoringVersion string
	database       Pinger
}

// NewHealthHandler creates a health handler. database may be nil.
func NewHealthHandler(scoringVersion string, database Pinger) *HealthHandler {
	return &HealthHandler{scoringVersion: scoringVersion, database: database}
}

// Health handles GET /health. It answers 503 when the database is unreachable.
func (h *HealthHandler) Health(c *gin.Context) {
	body := gin.H{
		"status":          "ok",
		"scoring_version": h.scoringVersion,
	}

	if h.database != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()
		if err := h.database.PingContext(ctx); err != nil {
			body["status"] = "degraded"
			body["database"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
	}

	c.JSON(http.StatusOK, body)
}
