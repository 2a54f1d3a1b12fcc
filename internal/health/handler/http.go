// Package handler exposes liveness and readiness endpoints.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports storage reachability (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler serves /healthz for Kubernetes, load balancers, and CI.
type Handler struct {
	pinger Pinger
}

// New returns a health handler. pinger may be nil; then readiness skips the
// storage check.
func New(pinger Pinger) *Handler {
	return &Handler{pinger: pinger}
}

// RegisterRoutes mounts the health endpoint.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", h.healthz)
}

func (h *Handler) healthz(c *gin.Context) {
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.pinger.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "storage": "unreachable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
