package router

import (
	"github.com/chatbridge/assistant/internal/api"
)

// setupHealthRoutes registers health check endpoints
func (r *Router) setupHealthRoutes() {
	handler := api.NewHealthHandler(r.Container.Checker, Version)

	// Register both health endpoint paths for compatibility
	r.Engine.GET("/health", handler.Health)
	r.Engine.GET("/api/v1/health", handler.Health)
}
