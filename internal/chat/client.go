package chat

import (
	"context"
	"time"

	"github.com/chatbridge/assistant/internal/gateway"
	"github.com/chatbridge/assistant/internal/session"
	"github.com/chatbridge/assistant/pkg/logger"
	"github.com/chatbridge/assistant/pkg/observability"

	"golang.org/x/sync/errgroup"
)

// ClientOptions configures NewClient
type ClientOptions struct {
	Gateway      gateway.Gateway
	Identity     session.Identity
	PollInterval time.Duration
	Logger       *logger.Logger
	Metrics      *observability.Metrics
}

// Client wires the orchestrator, both views and the refresh machinery for one signed-in user
type Client struct {
	identity     session.Identity
	Orchestrator *Orchestrator
	Conversation *ConversationView
	Chats        *ChatListView
	Coordinator  *Coordinator
	poller       *Poller
}

// NewClient builds a client for a resolved identity
func NewClient(opts ClientOptions) (*Client, error) {
	if !opts.Identity.Valid() {
		return nil, session.ErrNoIdentity
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetGlobal()
	}
	log := opts.Logger.WithUserID(opts.Identity.UserID)

	coordinator := NewCoordinator(log)
	conversation := NewConversationView(opts.Gateway, opts.Identity, log, opts.Metrics)
	chats := NewChatListView(opts.Gateway, opts.Identity, coordinator, log, opts.Metrics)

	coordinator.Subscribe("chat_list", chats)
	coordinator.Subscribe("conversation", conversation, TriggerManual)

	return &Client{
		identity: opts.Identity,
		Orchestrator: NewOrchestrator(OrchestratorOptions{
			Gateway:      opts.Gateway,
			Identity:     opts.Identity,
			Conversation: conversation,
			Notifier:     coordinator,
			Logger:       log,
			Metrics:      opts.Metrics,
		}),
		Conversation: conversation,
		Chats:        chats,
		Coordinator:  coordinator,
		poller:       NewPoller(coordinator, opts.PollInterval),
	}, nil
}

// Identity returns the user this client acts for
func (c *Client) Identity() session.Identity {
	return c.identity
}

// Run loads the chat list and keeps it fresh until ctx is done
func (c *Client) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.Coordinator.Run(ctx) })
	g.Go(func() error { return c.poller.Run(ctx) })
	c.Coordinator.Notify(TriggerManual)
	return g.Wait()
}

// Refresh asks every view to re-pull
func (c *Client) Refresh() {
	c.Coordinator.Notify(TriggerManual)
}

// SelectChat opens chatID in the conversation view
func (c *Client) SelectChat(ctx context.Context, chatID string) error {
	c.Chats.Select(chatID)
	return c.Conversation.Select(ctx, chatID)
}

// NewChat creates a chat and opens it
func (c *Client) NewChat(ctx context.Context) CreateResult {
	result := c.Chats.CreateChat(ctx, c.identity.UserID)
	if !result.OK() {
		return result
	}
	// the view has already logged the failure
	if err := c.Conversation.Select(ctx, result.Chat.ID); err != nil {
		result.Warnings = append(result.Warnings, err)
	}
	return result
}

// Send sends text to the open chat
func (c *Client) Send(ctx context.Context, text string) SendResult {
	return c.Orchestrator.Send(ctx, c.Conversation.ChatID(), text)
}

// SignOut drops everything held for the user
func (c *Client) SignOut() {
	c.Chats.Discard()
	c.Conversation.Clear()
}
