package api

import (
	"net/http"
	"time"

	"github.com/chatbridge/assistant/pkg/health"

	"github.com/gin-gonic/gin"
)

// HealthResponse represents the health check response structure
type HealthResponse struct {
	Status     string                       `json:"status"`
	Timestamp  time.Time                    `json:"timestamp"`
	Version    string                       `json:"version"`
	Components map[string]*health.Component `json:"components"`
}

// HealthHandler reports the state of the checker's components
type HealthHandler struct {
	checker *health.Checker
	version string
}

// NewHealthHandler creates a health handler
func NewHealthHandler(checker *health.Checker, version string) *HealthHandler {
	return &HealthHandler{checker: checker, version: version}
}

// Health answers 200 while every critical component is up, 503 otherwise
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:     "ok",
		Timestamp:  time.Now().UTC(),
		Version:    h.version,
		Components: h.checker.GetStatus(),
	}

	code := http.StatusOK
	if !h.checker.IsSystemHealthy() {
		response.Status = "unavailable"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, response)
}
