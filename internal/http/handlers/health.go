package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	ready func() bool
}

// NewHealthHandler takes a readiness probe; nil means always ready.
func NewHealthHandler(ready func() bool) *HealthHandler {
	return &HealthHandler{ready: ready}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func (h *HealthHandler) Ready(c *gin.Context) {
	if h.ready != nil && !h.ready() {
		c.String(http.StatusServiceUnavailable, "restoring")
		return
	}
	c.String(http.StatusOK, "ready")
}
