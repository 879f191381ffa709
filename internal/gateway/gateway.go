// Package gateway is the client's typed view of the chat API: four mutations
// and two reads, all scoped by the identity carried on the call context.
package gateway

import (
	"context"
	"errors"

	"github.com/chatbridge/assistant/internal/models"
)

// ErrIdentityMismatch is returned when a user-scoped call names someone other than the signed-in user
var ErrIdentityMismatch = errors.New("user does not match signed-in identity")

// FetchPolicy selects how a read treats cached data
type FetchPolicy int

const (
	// CacheFirst allows the server to answer from its read cache
	CacheFirst FetchPolicy = iota
	// NetworkOnly forces an authoritative read so just-written data is visible
	NetworkOnly
)

func (p FetchPolicy) String() string {
	if p == NetworkOnly {
		return "network-only"
	}
	return "cache-first"
}

// Gateway is the remote data surface the chat core depends on
type Gateway interface {
	CreateChat(ctx context.Context, userID string) (models.Chat, error)
	AppendMessage(ctx context.Context, chatID, content string, role models.SenderRole) (models.Message, error)
	TouchChatTimestamp(ctx context.Context, chatID string) (models.ChatTouch, error)
	InvokeResponder(ctx context.Context, chatID, content string) (ResponderResult, error)
	ListChatsForUser(ctx context.Context, userID string) ([]models.Chat, error)
	ListMessagesForChat(ctx context.Context, chatID string, policy FetchPolicy) ([]models.Message, error)
}
