package chat

import (
	"context"
	"sync"

	"github.com/chatbridge/assistant/internal/gateway"
	"github.com/chatbridge/assistant/internal/models"
	"github.com/chatbridge/assistant/internal/session"
	"github.com/chatbridge/assistant/pkg/logger"
	"github.com/chatbridge/assistant/pkg/observability"
)

// ConversationState distinguishes "no chat selected" from "selected but empty"
type ConversationState int

const (
	StateNoChat ConversationState = iota
	StateLoading
	StateLoaded
)

func (s ConversationState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	default:
		return "no_chat"
	}
}

// ConversationSnapshot is a point-in-time copy of the conversation view
type ConversationSnapshot struct {
	State    ConversationState
	ChatID   string
	Messages []models.Message
}

// ConversationView holds the messages of at most one chat. Every refresh
// replaces the list wholesale with an authoritative read.
type ConversationView struct {
	gw       gateway.Gateway
	identity session.Identity
	log      *logger.Logger
	metrics  *observability.Metrics

	mu       sync.Mutex
	state    ConversationState
	chatID   string
	messages []models.Message
	issued   uint64
	applied  uint64
}

// NewConversationView creates a view in the no-chat state
func NewConversationView(gw gateway.Gateway, identity session.Identity, log *logger.Logger, metrics *observability.Metrics) *ConversationView {
	if metrics == nil {
		metrics = observability.Noop()
	}
	return &ConversationView{
		gw:       gw,
		identity: identity,
		log:      log.WithComponent("conversation"),
		metrics:  metrics,
	}
}

// Select switches the view to chatID and pulls its messages
func (v *ConversationView) Select(ctx context.Context, chatID string) error {
	if chatID == "" {
		v.Clear()
		return nil
	}

	v.mu.Lock()
	if v.chatID != chatID {
		v.chatID = chatID
		v.messages = nil
		v.state = StateLoading
	}
	v.mu.Unlock()

	return v.Refresh(ctx)
}

// Clear returns the view to the no-chat state
func (v *ConversationView) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.chatID = ""
	v.messages = nil
	v.state = StateNoChat
	// Anything in flight belongs to the old selection
	v.applied = v.issued
}

// ChatID returns the selected chat, or "" in the no-chat state
func (v *ConversationView) ChatID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.chatID
}

// Refresh re-pulls the selected chat's messages, bypassing any cache.
// It is a no-op when no chat is selected.
func (v *ConversationView) Refresh(ctx context.Context) error {
	v.mu.Lock()
	chatID := v.chatID
	if chatID == "" {
		v.mu.Unlock()
		return nil
	}
	v.issued++
	ticket := v.issued
	v.mu.Unlock()

	ctx = session.NewContext(ctx, v.identity)
	messages, err := v.gw.ListMessagesForChat(ctx, chatID, gateway.NetworkOnly)
	v.metrics.RecordRefresh(ctx, "conversation", err)

	v.mu.Lock()
	defer v.mu.Unlock()

	if err != nil {
		v.log.LogWarn(err, "failed to load messages", "chat_id", chatID)
		return err
	}
	if ticket <= v.applied || chatID != v.chatID {
		return nil
	}

	v.applied = ticket
	v.messages = messages
	v.state = StateLoaded
	return nil
}

// Snapshot returns a copy of the current state
func (v *ConversationView) Snapshot() ConversationSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	return ConversationSnapshot{
		State:    v.state,
		ChatID:   v.chatID,
		Messages: append([]models.Message(nil), v.messages...),
	}
}
