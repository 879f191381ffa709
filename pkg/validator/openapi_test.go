package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/chatbridge/assistant/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	v, err := NewOpenAPIValidator()
	require.NoError(t, err)

	engine := gin.New()
	engine.Use(errors.ErrorHandler(), v.Middleware())
	ok := func(c *gin.Context) { c.Status(http.StatusNoContent) }
	engine.POST("/api/v1/chats/:id/messages", ok)
	engine.POST("/api/v1/auth/login", ok)
	engine.GET("/unlisted", ok)
	return engine
}

func TestMiddleware(t *testing.T) {
	engine := newEngine(t)

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		wantCode int
	}{
		{"valid message", http.MethodPost, "/api/v1/chats/c1/messages", `{"content":"Hello","senderType":"user"}`, http.StatusNoContent},
		{"unknown sender", http.MethodPost, "/api/v1/chats/c1/messages", `{"content":"Hello","senderType":"system"}`, http.StatusBadRequest},
		{"missing sender", http.MethodPost, "/api/v1/chats/c1/messages", `{"content":"Hello"}`, http.StatusBadRequest},
		{"short password", http.MethodPost, "/api/v1/auth/login", `{"email":"a@example.com","password":"short"}`, http.StatusBadRequest},
		{"route outside the document", http.MethodGet, "/unlisted", "", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req *http.Request
			if tt.body != "" {
				req = httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
				req.Header.Set("Content-Type", "application/json")
			} else {
				req = httptest.NewRequest(tt.method, tt.path, nil)
			}
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantCode == http.StatusBadRequest {
				assert.Contains(t, w.Body.String(), errors.CodeInvalidRequest)
			}
		})
	}
}

func TestSchemaIsEmbedded(t *testing.T) {
	assert.Contains(t, string(Schema()), "/api/v1/chats/{id}/responder")
}
