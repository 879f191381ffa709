package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/chatbridge/assistant/internal/models"
	"github.com/chatbridge/assistant/internal/repository"
	"github.com/chatbridge/assistant/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChat(t *testing.T, repo *repository.GormChatRepository, userID string, at time.Time) *models.Chat {
	t.Helper()
	chat := &models.Chat{UserID: userID, CreatedAt: at, UpdatedAt: &at}
	require.NoError(t, repo.CreateChat(context.Background(), chat))
	require.NotEmpty(t, chat.ID)
	return chat
}

func TestListChatsByUserOrdersByLastActivity(t *testing.T) {
	repo := repository.NewGormChatRepository(testutil.NewDB(t))
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	older := newChat(t, repo, "u1", base)
	newer := newChat(t, repo, "u1", base.Add(time.Minute))
	newChat(t, repo, "u2", base.Add(time.Hour))

	// touching the older chat moves it to the front
	require.NoError(t, repo.TouchChat(ctx, older.ID, base.Add(2*time.Minute)))

	chats, err := repo.ListChatsByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, older.ID, chats[0].ID)
	assert.Equal(t, newer.ID, chats[1].ID)
}

func TestListChatsPreloadsMessagesInOrder(t *testing.T) {
	repo := repository.NewGormChatRepository(testutil.NewDB(t))
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	chat := newChat(t, repo, "u1", base)

	second := &models.Message{ChatID: chat.ID, Content: "second", SenderType: models.SenderBot, CreatedAt: base.Add(2 * time.Second)}
	first := &models.Message{ChatID: chat.ID, Content: "first", SenderType: models.SenderUser, CreatedAt: base.Add(time.Second)}
	require.NoError(t, repo.AppendMessage(ctx, second))
	require.NoError(t, repo.AppendMessage(ctx, first))

	chats, err := repo.ListChatsByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, chats, 1)
	require.Len(t, chats[0].Messages, 2)
	assert.Equal(t, "first", chats[0].Messages[0].Content)
	assert.Equal(t, "second", chats[0].Messages[1].Content)

	messages, err := repo.ListMessages(ctx, chat.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, models.SenderUser, messages[0].SenderType)

	latest, err := repo.LatestMessageTime(ctx, chat.ID)
	require.NoError(t, err)
	assert.True(t, latest.Equal(base.Add(2*time.Second)))
}

func TestTouchMissingChat(t *testing.T) {
	repo := repository.NewGormChatRepository(testutil.NewDB(t))
	err := repo.TouchChat(context.Background(), "missing", time.Now())
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.GetChat(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
