package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/chatbridge/assistant/internal/gateway"
	"github.com/chatbridge/assistant/internal/models"
	"github.com/chatbridge/assistant/internal/session"
)

var errTransport = errors.New("connection refused")

// fakeGateway is an in-memory Gateway. Each *Err field fails the matching call.
type fakeGateway struct {
	mu       sync.Mutex
	clock    time.Time
	seq      int
	chats    map[string]*models.Chat
	messages map[string][]models.Message

	appendUserErr error
	appendBotErr  error
	touchErr      error
	createErr     error
	listChatsErr  error
	listMsgsErr   error

	// respond produces the responder's raw reply; nil answers "ok"
	respond func(content string) (bool, json.RawMessage, error)

	touches  int
	policies []gateway.FetchPolicy
	calls    []string
	seen     []session.Identity
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		clock:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		chats:    make(map[string]*models.Chat),
		messages: make(map[string][]models.Message),
	}
}

func (f *fakeGateway) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeGateway) record(ctx context.Context, op string) error {
	f.calls = append(f.calls, op)
	id, err := session.Require(ctx)
	if err != nil {
		return err
	}
	f.seen = append(f.seen, id)
	return nil
}

func (f *fakeGateway) addChat(userID string) models.Chat {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	created := f.tick()
	chat := &models.Chat{ID: fmt.Sprintf("chat-%d", f.seq), UserID: userID, CreatedAt: created, UpdatedAt: &created}
	f.chats[chat.ID] = chat
	return *chat
}

func (f *fakeGateway) CreateChat(ctx context.Context, userID string) (models.Chat, error) {
	f.mu.Lock()
	err := f.record(ctx, "CreateChat")
	if err == nil {
		err = f.createErr
	}
	f.mu.Unlock()
	if err != nil {
		return models.Chat{}, err
	}
	return f.addChat(userID), nil
}

func (f *fakeGateway) AppendMessage(ctx context.Context, chatID, content string, role models.SenderRole) (models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(ctx, "AppendMessage:"+string(role)); err != nil {
		return models.Message{}, err
	}
	if role == models.SenderUser && f.appendUserErr != nil {
		return models.Message{}, f.appendUserErr
	}
	if role == models.SenderBot && f.appendBotErr != nil {
		return models.Message{}, f.appendBotErr
	}
	if _, ok := f.chats[chatID]; !ok {
		return models.Message{}, errors.New("chat not found")
	}
	f.seq++
	msg := models.Message{ID: fmt.Sprintf("msg-%d", f.seq), ChatID: chatID, Content: content, SenderType: role, CreatedAt: f.tick()}
	f.messages[chatID] = append(f.messages[chatID], msg)
	return msg, nil
}

func (f *fakeGateway) TouchChatTimestamp(ctx context.Context, chatID string) (models.ChatTouch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(ctx, "TouchChatTimestamp"); err != nil {
		return models.ChatTouch{}, err
	}
	if f.touchErr != nil {
		return models.ChatTouch{}, f.touchErr
	}
	chat, ok := f.chats[chatID]
	if !ok {
		return models.ChatTouch{}, errors.New("chat not found")
	}
	f.touches++
	at := f.tick()
	chat.UpdatedAt = &at
	return models.ChatTouch{ID: chatID, UpdatedAt: at}, nil
}

func (f *fakeGateway) InvokeResponder(ctx context.Context, chatID, content string) (gateway.ResponderResult, error) {
	f.mu.Lock()
	err := f.record(ctx, "InvokeResponder")
	respond := f.respond
	f.mu.Unlock()
	if err != nil {
		return gateway.ResponderResult{}, err
	}
	if respond == nil {
		return gateway.NormalizeResponder(true, json.RawMessage(`"ok"`)), nil
	}
	success, raw, err := respond(content)
	if err != nil {
		return gateway.ResponderResult{}, err
	}
	return gateway.NormalizeResponder(success, raw), nil
}

func (f *fakeGateway) ListChatsForUser(ctx context.Context, userID string) ([]models.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(ctx, "ListChatsForUser"); err != nil {
		return nil, err
	}
	if f.listChatsErr != nil {
		return nil, f.listChatsErr
	}
	var out []models.Chat
	for _, chat := range f.chats {
		if chat.UserID != userID {
			continue
		}
		c := *chat
		c.Messages = append([]models.Message(nil), f.messages[chat.ID]...)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeGateway) ListMessagesForChat(ctx context.Context, chatID string, policy gateway.FetchPolicy) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(ctx, "ListMessagesForChat"); err != nil {
		return nil, err
	}
	f.policies = append(f.policies, policy)
	if f.listMsgsErr != nil {
		return nil, f.listMsgsErr
	}
	return append([]models.Message(nil), f.messages[chatID]...), nil
}

func (f *fakeGateway) stored(chatID string) []models.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Message(nil), f.messages[chatID]...)
}

func (f *fakeGateway) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeGateway) set(fn func(f *fakeGateway)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

var testIdentity = session.Identity{UserID: "user-1", Email: "alice@example.com", Token: "token-1"}

// notifyRecorder records raised triggers
type notifyRecorder struct {
	mu       sync.Mutex
	triggers []Trigger
}

func (n *notifyRecorder) Notify(t Trigger) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.triggers = append(n.triggers, t)
}

func (n *notifyRecorder) got() []Trigger {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Trigger(nil), n.triggers...)
}

func withIdentity(ctx context.Context) context.Context {
	return session.NewContext(ctx, testIdentity)
}
