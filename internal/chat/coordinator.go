// Package chat is the client-side core: the send orchestrator, the chat list and
// conversation views, and the coordinator that tells views when to re-pull.
package chat

import (
	"context"
	"sync"

	"github.com/chatbridge/assistant/pkg/logger"
)

// Trigger says why a refresh was requested
type Trigger int

const (
	// TriggerPoll is raised by the fixed-interval poller
	TriggerPoll Trigger = iota
	// TriggerChatCreated is raised after a new chat is created
	TriggerChatCreated
	// TriggerMessageSent is raised after a send completes
	TriggerMessageSent
	// TriggerManual is an explicit user-requested refresh
	TriggerManual
)

func (t Trigger) String() string {
	switch t {
	case TriggerPoll:
		return "poll"
	case TriggerChatCreated:
		return "chat_created"
	case TriggerMessageSent:
		return "message_sent"
	case TriggerManual:
		return "manual"
	default:
		return "unknown"
	}
}

// Refresher re-pulls a view from the gateway
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefreshFunc adapts a function to Refresher
type RefreshFunc func(ctx context.Context) error

// Refresh implements Refresher
func (f RefreshFunc) Refresh(ctx context.Context) error { return f(ctx) }

// Notifier is the one signal producers raise when something changed
type Notifier interface {
	Notify(t Trigger)
}

type subscription struct {
	name      string
	refresher Refresher
	triggers  map[Trigger]bool
}

func (s subscription) wants(pending map[Trigger]bool) bool {
	if len(s.triggers) == 0 {
		return true
	}
	for t := range pending {
		if s.triggers[t] {
			return true
		}
	}
	return false
}

// Coordinator fans refresh triggers out to subscribed views. Triggers raised
// while a round is running coalesce into the next round, so a burst of
// notifications costs at most one extra refresh per view.
type Coordinator struct {
	log *logger.Logger

	mu      sync.Mutex
	subs    []subscription
	pending map[Trigger]bool
	wake    chan struct{}
}

// NewCoordinator creates a coordinator
func NewCoordinator(log *logger.Logger) *Coordinator {
	return &Coordinator{
		log:     log.WithComponent("coordinator"),
		pending: make(map[Trigger]bool),
		wake:    make(chan struct{}, 1),
	}
}

// Subscribe registers r for the given triggers, or for every trigger when none are given
func (c *Coordinator) Subscribe(name string, r Refresher, triggers ...Trigger) {
	set := make(map[Trigger]bool, len(triggers))
	for _, t := range triggers {
		set[t] = true
	}

	c.mu.Lock()
	c.subs = append(c.subs, subscription{name: name, refresher: r, triggers: set})
	c.mu.Unlock()
}

// Notify records t and wakes Run. It never blocks.
func (c *Coordinator) Notify(t Trigger) {
	c.mu.Lock()
	c.pending[t] = true
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Run delivers pending triggers until ctx is done
func (c *Coordinator) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.wake:
			c.process(ctx)
		}
	}
}

// process runs one round: every subscriber interested in a pending trigger refreshes once
func (c *Coordinator) process(ctx context.Context) {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[Trigger]bool)
	subs := append([]subscription(nil), c.subs...)
	c.mu.Unlock()

	if len(pending) == 0 {
		return
	}

	for _, sub := range subs {
		if !sub.wants(pending) {
			continue
		}
		if err := sub.refresher.Refresh(ctx); err != nil && ctx.Err() == nil {
			c.log.LogWarn(err, "refresh failed", "view", sub.name)
		}
	}
}

// hasPending reports whether t is waiting for the next round
func (c *Coordinator) hasPending(t Trigger) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending[t]
}
