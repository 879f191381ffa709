package gateway_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chatbridge/assistant/internal/gateway"
	"github.com/chatbridge/assistant/internal/models"
	"github.com/chatbridge/assistant/internal/responder"
	"github.com/chatbridge/assistant/internal/session"
	"github.com/chatbridge/assistant/internal/testutil"
	"github.com/chatbridge/assistant/pkg/apiclient"
	"github.com/chatbridge/assistant/pkg/config"
	"github.com/chatbridge/assistant/pkg/di"
	apperrors "github.com/chatbridge/assistant/pkg/errors"
	"github.com/chatbridge/assistant/pkg/logger"
	"github.com/chatbridge/assistant/pkg/router"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type downResponder struct{}

func (downResponder) Respond(context.Context, string, string) (responder.Reply, error) {
	return responder.Reply{}, errors.New("dial tcp: connection refused")
}

// newAPI starts the real chat API over an in-memory store
func newAPI(t *testing.T, resp responder.Responder) *apiclient.Client {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Load()
	cfg.JWT.Secret = "test-secret"
	cfg.Redis.Enabled = false
	cfg.Vault.Enabled = false
	cfg.Security.RateLimit = 1000
	cfg.Security.RateLimitBurst = 1000

	container, err := di.New(context.Background(), di.Options{
		Config:    cfg,
		DB:        testutil.NewDB(t),
		Logger:    logger.Discard(),
		Responder: resp,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close(context.Background()) })

	r := router.New(container)
	r.SetupRoutes()
	srv := httptest.NewServer(r.Engine)
	t.Cleanup(srv.Close)

	return apiclient.New(srv.URL, srv.Client())
}

func signIn(t *testing.T, api *apiclient.Client, email string) (context.Context, session.Identity) {
	t.Helper()
	id, err := session.NewAuthenticator(api).Signup(context.Background(), email, "password123")
	require.NoError(t, err)
	return session.NewContext(context.Background(), id), id
}

func TestHTTPGatewayRoundTrip(t *testing.T) {
	api := newAPI(t, nil)
	gw := gateway.NewHTTPGateway(api)
	ctx, id := signIn(t, api, "ada@example.com")

	chat, err := gw.CreateChat(ctx, id.UserID)
	require.NoError(t, err)
	assert.Equal(t, id.UserID, chat.UserID)

	userMsg, err := gw.AppendMessage(ctx, chat.ID, "Hello", models.SenderUser)
	require.NoError(t, err)
	assert.Equal(t, chat.ID, userMsg.ChatID)

	touch, err := gw.TouchChatTimestamp(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, chat.ID, touch.ID)

	result, err := gw.InvokeResponder(ctx, chat.ID, "Hello")
	require.NoError(t, err)
	assert.True(t, result.OK())
	assert.Equal(t, "You said: Hello", result.Text)

	_, err = gw.AppendMessage(ctx, chat.ID, result.Text, models.SenderBot)
	require.NoError(t, err)

	messages, err := gw.ListMessagesForChat(ctx, chat.ID, gateway.NetworkOnly)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "Hello", messages[0].Content)
	assert.Equal(t, "You said: Hello", messages[1].Content)

	chats, err := gw.ListChatsForUser(ctx, id.UserID)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Len(t, chats[0].Messages, 2)
}

func TestHTTPGatewayErrors(t *testing.T) {
	api := newAPI(t, downResponder{})
	gw := gateway.NewHTTPGateway(api)
	ctx, id := signIn(t, api, "ada@example.com")

	_, err := gw.ListChatsForUser(context.Background(), id.UserID)
	assert.ErrorIs(t, err, session.ErrNoIdentity)

	_, err = gw.ListChatsForUser(ctx, "someone-else")
	assert.ErrorIs(t, err, gateway.ErrIdentityMismatch)

	_, err = gw.TouchChatTimestamp(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.NewNotFoundError(apperrors.CodeChatNotFound, ""))

	chat, err := gw.CreateChat(ctx, id.UserID)
	require.NoError(t, err)
	_, err = gw.InvokeResponder(ctx, chat.ID, "Hello")
	assert.Equal(t, http.StatusBadGateway, apperrors.GetStatusCode(err))
}

func TestHTTPGatewayFetchPolicyHeader(t *testing.T) {
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get("Cache-Control"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	gw := gateway.NewHTTPGateway(apiclient.New(srv.URL, srv.Client()))
	ctx := session.NewContext(context.Background(), session.Identity{UserID: "u1", Token: "t"})

	_, err := gw.ListMessagesForChat(ctx, "c1", gateway.CacheFirst)
	require.NoError(t, err)
	_, err = gw.ListMessagesForChat(ctx, "c1", gateway.NetworkOnly)
	require.NoError(t, err)
	_, err = gw.ListChatsForUser(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, []string{"", "no-cache", "no-cache"}, got)
}

func TestHTTPGatewayNormalizesResponderPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"message":[{"message":"Hi there"}]}`))
	}))
	defer srv.Close()

	gw := gateway.NewHTTPGateway(apiclient.New(srv.URL, srv.Client()))
	ctx := session.NewContext(context.Background(), session.Identity{UserID: "u1", Token: "t"})

	result, err := gw.InvokeResponder(ctx, "c1", "Hello")
	require.NoError(t, err)
	assert.True(t, result.OK())
	assert.Equal(t, "Hi there", result.Text)
}
