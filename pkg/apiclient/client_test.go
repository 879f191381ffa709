package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/chatbridge/assistant/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSendsJSONAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/things", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "no-cache", r.Header.Get("Cache-Control"))

		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": in["name"]})
	}))
	defer srv.Close()

	c := New(srv.URL+"/", nil)
	var out map[string]string
	err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/api/v1/things",
		Token:  "tok",
		Body:   map[string]string{"name": "x"},
		Header: http.Header{"Cache-Control": {"no-cache"}},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, "x", out["echo"])
}

func TestDoDecodesErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":"CHAT_NOT_FOUND","message":"Chat not found"}}`))
	}))
	defer srv.Close()

	err := New(srv.URL, nil).Do(context.Background(), Request{Method: http.MethodGet, Path: "/x"}, nil)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusNotFound, appErr.StatusCode)
	assert.ErrorIs(t, err, apperrors.NewNotFoundError(apperrors.CodeChatNotFound, ""))
}
