package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chatbridge/assistant/internal/models"
	"github.com/chatbridge/assistant/internal/repository"
	"github.com/chatbridge/assistant/internal/responder"
	"github.com/chatbridge/assistant/pkg/cache"
	"github.com/chatbridge/assistant/pkg/logger"
	"github.com/chatbridge/assistant/pkg/observability"
	"github.com/chatbridge/assistant/pkg/resilience"
)

var (
	ErrChatNotFound         = errors.New("chat not found")
	ErrEmptyMessage         = errors.New("message content is empty")
	ErrInvalidSender        = errors.New("invalid sender type")
	ErrResponderUnavailable = errors.New("responder unavailable")
)

// ChatService owns chats and their messages on behalf of signed-in users
type ChatService struct {
	chats     repository.ChatRepository
	cache     cache.Store
	cacheTTL  time.Duration
	responder responder.Responder
	breaker   *resilience.CircuitBreaker
	metrics   *observability.Metrics
	log       *logger.Logger
	now       func() time.Time

	// appendMu serializes timestamp assignment so message times never go backwards
	appendMu sync.Mutex

	// genMu guards generations; a read may only fill the cache if no write
	// invalidated its key since the read started
	genMu       sync.Mutex
	generations map[string]uint64
}

// ChatServiceOptions carries the collaborators of a ChatService
type ChatServiceOptions struct {
	Chats     repository.ChatRepository
	Cache     cache.Store
	CacheTTL  time.Duration
	Responder responder.Responder
	Breaker   *resilience.CircuitBreaker
	Metrics   *observability.Metrics
	Logger    *logger.Logger
}

// NewChatService creates a chat service
func NewChatService(opts ChatServiceOptions) *ChatService {
	if opts.Cache == nil {
		opts.Cache = cache.NewMemoryStore(1000)
	}
	if opts.Responder == nil {
		opts.Responder = responder.Echo{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetGlobal()
	}
	if opts.Breaker == nil {
		opts.Breaker = resilience.NewCircuitBreaker(resilience.DefaultConfig("responder"), opts.Logger)
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.Noop()
	}
	return &ChatService{
		chats:     opts.Chats,
		cache:     opts.Cache,
		cacheTTL:  opts.CacheTTL,
		responder: opts.Responder,
		breaker:   opts.Breaker,
		metrics:   opts.Metrics,
		log:       opts.Logger.WithComponent("chat_service"),
		now:       time.Now,

		generations: make(map[string]uint64),
	}
}

func chatsKey(userID string) string    { return "chats:user:" + userID }
func messagesKey(chatID string) string { return "messages:chat:" + chatID }

// CreateChat creates an empty chat for userID with created and last-activity set to now
func (s *ChatService) CreateChat(ctx context.Context, userID string) (*models.Chat, error) {
	now := s.now().UTC()
	chat := &models.Chat{
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: &now,
	}
	if err := s.chats.CreateChat(ctx, chat); err != nil {
		return nil, fmt.Errorf("create chat: %w", err)
	}
	s.invalidate(ctx, userID, chat.ID)
	return chat, nil
}

// AppendMessage stores a message in a chat owned by userID
func (s *ChatService) AppendMessage(ctx context.Context, userID, chatID, content string, role models.SenderRole) (*models.Message, error) {
	if !role.Valid() {
		return nil, ErrInvalidSender
	}
	if role == models.SenderUser && strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}
	if _, err := s.ownedChat(ctx, userID, chatID); err != nil {
		return nil, err
	}

	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	latest, err := s.chats.LatestMessageTime(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("load latest message time: %w", err)
	}
	at := s.now().UTC().Truncate(time.Microsecond)
	if !at.After(latest) {
		at = latest.Add(time.Microsecond)
	}

	message := &models.Message{
		ChatID:     chatID,
		Content:    content,
		SenderType: role,
		CreatedAt:  at,
	}
	if err := s.chats.AppendMessage(ctx, message); err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	s.invalidate(ctx, userID, chatID)
	return message, nil
}

// TouchChat sets the chat's last-activity time to now, or to its newest message's
// time when that is later
func (s *ChatService) TouchChat(ctx context.Context, userID, chatID string) (models.ChatTouch, error) {
	if _, err := s.ownedChat(ctx, userID, chatID); err != nil {
		return models.ChatTouch{}, err
	}

	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	latest, err := s.chats.LatestMessageTime(ctx, chatID)
	if err != nil {
		return models.ChatTouch{}, fmt.Errorf("load latest message time: %w", err)
	}
	at := s.now().UTC().Truncate(time.Microsecond)
	if at.Before(latest) {
		at = latest.UTC()
	}
	if err := s.chats.TouchChat(ctx, chatID, at); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.ChatTouch{}, ErrChatNotFound
		}
		return models.ChatTouch{}, fmt.Errorf("touch chat: %w", err)
	}
	s.invalidate(ctx, userID, chatID)
	return models.ChatTouch{ID: chatID, UpdatedAt: at}, nil
}

// ListChats returns the user's chats, most recently active first, each with its messages.
// A fresh read bypasses the cache.
func (s *ChatService) ListChats(ctx context.Context, userID string, fresh bool) ([]models.Chat, error) {
	key := chatsKey(userID)
	gen := s.generation(key)

	var chats []models.Chat
	if !fresh && s.cached(ctx, key, &chats) {
		return chats, nil
	}

	chats, err := s.chats.ListChatsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	if chats == nil {
		chats = []models.Chat{}
	}
	s.store(ctx, key, gen, chats)
	return chats, nil
}

// ListMessages returns a chat's messages oldest first. A fresh read bypasses the cache.
func (s *ChatService) ListMessages(ctx context.Context, userID, chatID string, fresh bool) ([]models.Message, error) {
	if _, err := s.ownedChat(ctx, userID, chatID); err != nil {
		return nil, err
	}

	key := messagesKey(chatID)
	gen := s.generation(key)

	var messages []models.Message
	if !fresh && s.cached(ctx, key, &messages) {
		return messages, nil
	}

	messages, err := s.chats.ListMessages(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if messages == nil {
		messages = []models.Message{}
	}
	s.store(ctx, key, gen, messages)
	return messages, nil
}

// InvokeResponder forwards content to the responder and returns its reply untouched.
// A reply with success false is not an error; failing to get any reply is.
func (s *ChatService) InvokeResponder(ctx context.Context, userID, chatID, content string) (responder.Reply, error) {
	if _, err := s.ownedChat(ctx, userID, chatID); err != nil {
		return responder.Reply{}, err
	}

	var reply responder.Reply
	start := s.now()
	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		reply, err = s.responder.Respond(ctx, chatID, content)
		return err
	})
	elapsed := s.now().Sub(start)

	switch {
	case err == nil:
		outcome := "success"
		if !reply.Success {
			outcome = "declined"
		}
		s.metrics.RecordResponder(ctx, outcome, elapsed)
		return reply, nil
	case ctx.Err() != nil:
		return responder.Reply{}, ctx.Err()
	case errors.Is(err, resilience.ErrCircuitOpen):
		s.metrics.RecordResponder(ctx, "circuit_open", elapsed)
	default:
		s.metrics.RecordResponder(ctx, "error", elapsed)
	}
	s.log.WithChatID(chatID).LogWarn(err, "responder call failed")
	return responder.Reply{}, fmt.Errorf("%w: %v", ErrResponderUnavailable, err)
}

func (s *ChatService) ownedChat(ctx context.Context, userID, chatID string) (*models.Chat, error) {
	chat, err := s.chats.GetChat(ctx, chatID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrChatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load chat: %w", err)
	}
	// Other users' chats are reported as missing
	if chat.UserID != userID {
		return nil, ErrChatNotFound
	}
	return chat, nil
}

func (s *ChatService) cached(ctx context.Context, key string, dst any) bool {
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.log.LogWarn(err, "cache read failed", "key", key)
		}
		s.metrics.RecordCache(ctx, false)
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.log.LogWarn(err, "cache entry corrupt", "key", key)
		s.metrics.RecordCache(ctx, false)
		return false
	}
	s.metrics.RecordCache(ctx, true)
	return true
}

func (s *ChatService) generation(key string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generations[key]
}

// store caches value under key unless key was invalidated after gen was read.
// The write happens under genMu so an invalidation cannot slip in between the
// check and the write; a concurrent invalidate deletes after it.
func (s *ChatService) store(ctx context.Context, key string, gen uint64, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		s.log.LogWarn(err, "cache encode failed", "key", key)
		return
	}

	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.generations[key] != gen {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil {
		s.log.LogWarn(err, "cache write failed", "key", key)
	}
}

func (s *ChatService) invalidate(ctx context.Context, userID, chatID string) {
	keys := []string{chatsKey(userID), messagesKey(chatID)}

	s.genMu.Lock()
	for _, key := range keys {
		s.generations[key]++
	}
	s.genMu.Unlock()

	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.log.LogWarn(err, "cache invalidation failed", "user_id", userID, "chat_id", chatID)
	}
}
