package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chatbridge/assistant/internal/models"
	"github.com/chatbridge/assistant/pkg/apiclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, err := Require(ctx)
	assert.ErrorIs(t, err, ErrNoIdentity)

	_, ok := FromContext(NewContext(ctx, Identity{UserID: "u1"}))
	assert.False(t, ok, "an identity without a token cannot authenticate")

	id := Identity{UserID: "u1", Email: "a@example.com", Token: "t"}
	got, err := Require(NewContext(ctx, id))
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func newAuthServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req models.CredentialsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "password123" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"code":"INVALID_CREDENTIALS","message":"Invalid email or password"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(models.AuthResponse{
			User:  models.UserResponse{ID: "u1", Email: req.Email},
			Token: "tok",
		})
	})
	mux.HandleFunc("/api/v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"code":"INVALID_TOKEN","message":"Invalid or expired token"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(models.UserResponse{ID: "u1", Email: "a@example.com"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestAuthenticatorLoginAndSignOut(t *testing.T) {
	srv := newAuthServer(t)
	auth := NewAuthenticator(apiclient.New(srv.URL, srv.Client()))
	ctx := context.Background()

	_, ok := auth.CurrentUser()
	assert.False(t, ok)

	id, err := auth.Login(ctx, "a@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "u1", Email: "a@example.com", Token: "tok"}, id)

	current, ok := auth.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, id, current)

	_, err = auth.Verify(ctx)
	require.NoError(t, err)

	auth.SignOut()
	_, ok = auth.CurrentUser()
	assert.False(t, ok)
	_, err = auth.Verify(ctx)
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestAuthenticatorRejectedLogin(t *testing.T) {
	srv := newAuthServer(t)
	auth := NewAuthenticator(apiclient.New(srv.URL, srv.Client()))

	_, err := auth.Login(context.Background(), "a@example.com", "wrong-password")
	require.Error(t, err)
	assert.True(t, isUnauthorized(err))
	_, ok := auth.CurrentUser()
	assert.False(t, ok)
}
