package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ConnectionStatus reports whether the push progress channel is connected
type ConnectionStatus interface {
	Connected() bool
}

// HealthHandler handles health check requests
type HealthHandler struct {
	channel ConnectionStatus
}

// NewHealthHandler creates a new health handler. channel is nil when push progress is disabled.
func NewHealthHandler(channel ConnectionStatus) *HealthHandler {
	return &HealthHandler{
		channel: channel,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Progress struct {
		Enabled   bool `json:"enabled"`
		Connected bool `json:"connected"`
	} `json:"progress"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:  "ok",
		Version: "1.0.0",
	}
	if h.channel != nil {
		response.Progress.Enabled = true
		response.Progress.Connected = h.channel.Connected()
	}

	c.JSON(http.StatusOK, response)
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.channel != nil && !h.channel.Connected() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "progress channel not connected",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
