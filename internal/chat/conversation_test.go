package chat

import (
	"context"
	"testing"

	"github.com/chatbridge/assistant/internal/gateway"
	"github.com/chatbridge/assistant/internal/models"
	"github.com/chatbridge/assistant/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationStartsWithNoChat(t *testing.T) {
	gw := newFakeGateway()
	view := NewConversationView(gw, testIdentity, logger.Discard(), nil)

	require.NoError(t, view.Refresh(context.Background()))

	snap := view.Snapshot()
	assert.Equal(t, StateNoChat, snap.State)
	assert.Empty(t, snap.ChatID)
	assert.Empty(t, gw.callLog())
}

func TestConversationSelectLoadsMessages(t *testing.T) {
	gw := newFakeGateway()
	chat := gw.addChat(testIdentity.UserID)
	_, err := gw.AppendMessage(withIdentity(context.Background()), chat.ID, "Hello", models.SenderUser)
	require.NoError(t, err)
	view := NewConversationView(gw, testIdentity, logger.Discard(), nil)

	require.NoError(t, view.Select(context.Background(), chat.ID))

	snap := view.Snapshot()
	assert.Equal(t, StateLoaded, snap.State)
	assert.Equal(t, chat.ID, snap.ChatID)
	assert.Equal(t, []string{"user:Hello"}, contents(snap.Messages))
	assert.Equal(t, []gateway.FetchPolicy{gateway.NetworkOnly}, gw.policies)
}

func TestConversationEmptyChatIsNotNoChat(t *testing.T) {
	gw := newFakeGateway()
	chat := gw.addChat(testIdentity.UserID)
	view := NewConversationView(gw, testIdentity, logger.Discard(), nil)

	require.NoError(t, view.Select(context.Background(), chat.ID))

	snap := view.Snapshot()
	assert.Equal(t, StateLoaded, snap.State)
	assert.Empty(t, snap.Messages)
}

func TestConversationRefreshReplacesList(t *testing.T) {
	gw := newFakeGateway()
	chat := gw.addChat(testIdentity.UserID)
	view := NewConversationView(gw, testIdentity, logger.Discard(), nil)
	require.NoError(t, view.Select(context.Background(), chat.ID))

	ctx := withIdentity(context.Background())
	_, err := gw.AppendMessage(ctx, chat.ID, "one", models.SenderUser)
	require.NoError(t, err)
	_, err = gw.AppendMessage(ctx, chat.ID, "two", models.SenderBot)
	require.NoError(t, err)

	require.NoError(t, view.Refresh(context.Background()))
	assert.Equal(t, []string{"user:one", "bot:two"}, contents(view.Snapshot().Messages))
}

func TestConversationRefreshFailureKeepsMessages(t *testing.T) {
	gw := newFakeGateway()
	chat := gw.addChat(testIdentity.UserID)
	_, err := gw.AppendMessage(withIdentity(context.Background()), chat.ID, "Hello", models.SenderUser)
	require.NoError(t, err)
	view := NewConversationView(gw, testIdentity, logger.Discard(), nil)
	require.NoError(t, view.Select(context.Background(), chat.ID))

	gw.set(func(f *fakeGateway) { f.listMsgsErr = errTransport })

	assert.ErrorIs(t, view.Refresh(context.Background()), errTransport)
	assert.Len(t, view.Snapshot().Messages, 1)
}

func TestConversationSwitchAndClear(t *testing.T) {
	gw := newFakeGateway()
	first := gw.addChat(testIdentity.UserID)
	second := gw.addChat(testIdentity.UserID)
	_, err := gw.AppendMessage(withIdentity(context.Background()), first.ID, "in first", models.SenderUser)
	require.NoError(t, err)
	view := NewConversationView(gw, testIdentity, logger.Discard(), nil)

	require.NoError(t, view.Select(context.Background(), first.ID))
	require.Len(t, view.Snapshot().Messages, 1)

	require.NoError(t, view.Select(context.Background(), second.ID))
	assert.Equal(t, second.ID, view.ChatID())
	assert.Empty(t, view.Snapshot().Messages)

	view.Clear()
	snap := view.Snapshot()
	assert.Equal(t, StateNoChat, snap.State)
	assert.Empty(t, snap.ChatID)

	require.NoError(t, view.Select(context.Background(), ""))
	assert.Equal(t, StateNoChat, view.Snapshot().State)
}

func TestConversationSnapshotIsACopy(t *testing.T) {
	gw := newFakeGateway()
	chat := gw.addChat(testIdentity.UserID)
	_, err := gw.AppendMessage(withIdentity(context.Background()), chat.ID, "Hello", models.SenderUser)
	require.NoError(t, err)
	view := NewConversationView(gw, testIdentity, logger.Discard(), nil)
	require.NoError(t, view.Select(context.Background(), chat.ID))

	snap := view.Snapshot()
	snap.Messages[0].Content = "changed"

	assert.Equal(t, "Hello", view.Snapshot().Messages[0].Content)
}
