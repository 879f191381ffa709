package chat

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/chatbridge/assistant/internal/gateway"
	"github.com/chatbridge/assistant/internal/models"
	"github.com/chatbridge/assistant/internal/session"
	"github.com/chatbridge/assistant/pkg/logger"
	"github.com/chatbridge/assistant/pkg/observability"
)

const (
	// PreviewLimit is the number of characters kept in a chat preview
	PreviewLimit = 50
	// NewChatPreview is shown for chats without messages
	NewChatPreview = "New chat"
)

// ErrNoUser is returned when a chat is created without a user
var ErrNoUser = errors.New("user id is required")

// ChatItem is one row of the chat list
type ChatItem struct {
	ID           string
	Preview      string
	LastActivity time.Time
	CreatedAt    time.Time
	MessageCount int
}

// DisplayTime formats the item's last activity relative to now
func (i ChatItem) DisplayTime(now time.Time) string {
	return FormatDisplayTime(i.LastActivity, now)
}

// Preview derives the list preview from a chat's newest message
func Preview(chat models.Chat) string {
	last, ok := chat.LastMessage()
	if !ok {
		return NewChatPreview
	}
	if utf8.RuneCountInString(last.Content) <= PreviewLimit {
		return last.Content
	}
	return string([]rune(last.Content)[:PreviewLimit]) + "..."
}

// FormatDisplayTime renders t as a clock time within a day, a weekday within a week, otherwise a date
func FormatDisplayTime(t, now time.Time) string {
	t = t.In(now.Location())
	age := now.Sub(t)
	switch {
	case age < 24*time.Hour:
		return t.Format("15:04")
	case age < 7*24*time.Hour:
		return t.Format("Mon")
	default:
		return t.Format("Jan 2")
	}
}

// NewChatItem builds a list row from a chat
func NewChatItem(chat models.Chat) ChatItem {
	return ChatItem{
		ID:           chat.ID,
		Preview:      Preview(chat),
		LastActivity: chat.LastActivity(),
		CreatedAt:    chat.CreatedAt,
		MessageCount: len(chat.Messages),
	}
}

// SortChatItems orders items by last activity, newest first, then by creation time
func SortChatItems(items []ChatItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].LastActivity.Equal(items[j].LastActivity) {
			return items[i].LastActivity.After(items[j].LastActivity)
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}

// CreateResult reports the outcome of CreateChat
type CreateResult struct {
	Chat models.Chat
	Err  error
	// Warnings are failures after the chat was created, such as loading it
	Warnings []error
}

// OK reports whether the chat was created
func (r CreateResult) OK() bool {
	return r.Err == nil
}

// ChatListView keeps the signed-in user's chats with derived previews
type ChatListView struct {
	gw       gateway.Gateway
	identity session.Identity
	notifier Notifier
	log      *logger.Logger
	metrics  *observability.Metrics

	mu       sync.Mutex
	items    []ChatItem
	selected string
	loaded   bool
	issued   uint64
	applied  uint64
}

// NewChatListView creates an empty list for identity. notifier may be nil.
func NewChatListView(gw gateway.Gateway, identity session.Identity, notifier Notifier, log *logger.Logger, metrics *observability.Metrics) *ChatListView {
	if metrics == nil {
		metrics = observability.Noop()
	}
	return &ChatListView{
		gw:       gw,
		identity: identity,
		notifier: notifier,
		log:      log.WithComponent("chat_list"),
		metrics:  metrics,
	}
}

// Refresh re-pulls every chat of the user. On failure the previous list stays.
func (v *ChatListView) Refresh(ctx context.Context) error {
	v.mu.Lock()
	v.issued++
	ticket := v.issued
	v.mu.Unlock()

	ctx = session.NewContext(ctx, v.identity)
	chats, err := v.gw.ListChatsForUser(ctx, v.identity.UserID)
	v.metrics.RecordRefresh(ctx, "chat_list", err)
	if err != nil {
		v.log.LogWarn(err, "failed to load chats")
		return err
	}

	items := make([]ChatItem, 0, len(chats))
	for _, chat := range chats {
		items = append(items, NewChatItem(chat))
	}
	SortChatItems(items)

	v.mu.Lock()
	defer v.mu.Unlock()
	if ticket <= v.applied {
		return nil
	}
	v.applied = ticket
	v.items = items
	v.loaded = true
	return nil
}

// CreateChat creates a chat for userID and selects it. On failure the selection is unchanged.
func (v *ChatListView) CreateChat(ctx context.Context, userID string) CreateResult {
	if userID == "" {
		return CreateResult{Err: ErrNoUser}
	}

	chat, err := v.gw.CreateChat(session.NewContext(ctx, v.identity), userID)
	if err != nil {
		v.log.LogError(err, "failed to create chat")
		return CreateResult{Err: err}
	}

	v.Select(chat.ID)
	if v.notifier != nil {
		v.notifier.Notify(TriggerChatCreated)
	}
	return CreateResult{Chat: chat}
}

// Select marks chatID as the selected chat
func (v *ChatListView) Select(chatID string) {
	v.mu.Lock()
	v.selected = chatID
	v.mu.Unlock()
}

// Selected returns the selected chat id
func (v *ChatListView) Selected() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.selected
}

// Items returns a copy of the list in display order
func (v *ChatListView) Items() []ChatItem {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]ChatItem(nil), v.items...)
}

// Loaded reports whether at least one refresh succeeded
func (v *ChatListView) Loaded() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loaded
}

// Discard drops the list and the selection
func (v *ChatListView) Discard() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.items = nil
	v.selected = ""
	v.loaded = false
	v.applied = v.issued
}
