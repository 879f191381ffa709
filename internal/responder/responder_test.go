package responder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClientPostsRequestAndDecodesReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "chat-1", req.ChatID)
		assert.Equal(t, "Hello", req.Content)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"message":[{"message":"Hi there"}]}`))
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL, "key", time.Second)
	require.NoError(t, err)

	reply, err := client.Respond(context.Background(), "chat-1", "Hello")
	require.NoError(t, err)
	assert.True(t, reply.Success)
	assert.JSONEq(t, `[{"message":"Hi there"}]`, string(reply.Message))
}

func TestHTTPClientNon2xxIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL, "", time.Second)
	require.NoError(t, err)

	_, err = client.Respond(context.Background(), "chat-1", "Hello")
	assert.ErrorContains(t, err, "503")
}

func TestNewHTTPClientRequiresURL(t *testing.T) {
	_, err := NewHTTPClient("", "", time.Second)
	assert.ErrorIs(t, err, ErrEmptyURL)
}

func TestEcho(t *testing.T) {
	reply, err := Echo{}.Respond(context.Background(), "c", "ping")
	require.NoError(t, err)
	assert.True(t, reply.Success)
	assert.Equal(t, `"You said: ping"`, string(reply.Message))
}
