package router

import (
	"net/http"

	"github.com/chatbridge/assistant/pkg/validator"

	"github.com/gin-gonic/gin"
)

// AddOpenAPIValidation adds OpenAPI validation middleware to the router and serves the document
func (r *Router) AddOpenAPIValidation() {
	v, err := validator.NewOpenAPIValidator()
	if err != nil {
		r.Logger.LogError(err, "Failed to initialize OpenAPI validator")
		return
	}

	r.Engine.Use(v.Middleware())
	r.Engine.GET("/api/docs/openapi.yaml", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/yaml", validator.Schema())
	})
	r.Logger.Info("OpenAPI validation enabled", "url", "/api/docs/openapi.yaml")
}
