package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/chatbridge/assistant/internal/models"
	"github.com/chatbridge/assistant/internal/session"
	"github.com/chatbridge/assistant/pkg/apiclient"
	"github.com/chatbridge/assistant/pkg/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// HTTPGateway implements Gateway against the chat API
type HTTPGateway struct {
	api    *apiclient.Client
	tracer trace.Tracer
}

// NewHTTPGateway creates a gateway using api
func NewHTTPGateway(api *apiclient.Client) *HTTPGateway {
	return &HTTPGateway{
		api:    api,
		tracer: observability.Tracer("gateway"),
	}
}

type appendMessageBody struct {
	Content    string            `json:"content"`
	SenderType models.SenderRole `json:"senderType"`
}

type responderBody struct {
	Content string `json:"content"`
}

type responderReply struct {
	Success bool            `json:"success"`
	Message json.RawMessage `json:"message"`
}

// CreateChat implements Gateway
func (g *HTTPGateway) CreateChat(ctx context.Context, userID string) (models.Chat, error) {
	var chat models.Chat
	err := g.call(ctx, "CreateChat", userID, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/api/v1/chats",
	}, &chat)
	return chat, err
}

// AppendMessage implements Gateway
func (g *HTTPGateway) AppendMessage(ctx context.Context, chatID, content string, role models.SenderRole) (models.Message, error) {
	var message models.Message
	err := g.call(ctx, "AppendMessage", "", apiclient.Request{
		Method: http.MethodPost,
		Path:   chatPath(chatID, "messages"),
		Body:   appendMessageBody{Content: content, SenderType: role},
	}, &message, attribute.String("chat.id", chatID), attribute.String("message.role", string(role)))
	return message, err
}

// TouchChatTimestamp implements Gateway
func (g *HTTPGateway) TouchChatTimestamp(ctx context.Context, chatID string) (models.ChatTouch, error) {
	var touch models.ChatTouch
	err := g.call(ctx, "TouchChatTimestamp", "", apiclient.Request{
		Method: http.MethodPost,
		Path:   chatPath(chatID, "touch"),
	}, &touch, attribute.String("chat.id", chatID))
	return touch, err
}

// InvokeResponder implements Gateway. The payload is normalized here so callers
// never see the responder's loose shape.
func (g *HTTPGateway) InvokeResponder(ctx context.Context, chatID, content string) (ResponderResult, error) {
	var reply responderReply
	err := g.call(ctx, "InvokeResponder", "", apiclient.Request{
		Method: http.MethodPost,
		Path:   chatPath(chatID, "responder"),
		Body:   responderBody{Content: content},
	}, &reply, attribute.String("chat.id", chatID))
	if err != nil {
		return ResponderResult{}, err
	}
	return NormalizeResponder(reply.Success, reply.Message), nil
}

// ListChatsForUser implements Gateway. The list is always read past the server cache.
func (g *HTTPGateway) ListChatsForUser(ctx context.Context, userID string) ([]models.Chat, error) {
	var chats []models.Chat
	err := g.call(ctx, "ListChatsForUser", userID, apiclient.Request{
		Method: http.MethodGet,
		Path:   "/api/v1/chats",
		Header: http.Header{"Cache-Control": {"no-cache"}},
	}, &chats)
	return chats, err
}

// ListMessagesForChat implements Gateway
func (g *HTTPGateway) ListMessagesForChat(ctx context.Context, chatID string, policy FetchPolicy) ([]models.Message, error) {
	req := apiclient.Request{
		Method: http.MethodGet,
		Path:   chatPath(chatID, "messages"),
	}
	if policy == NetworkOnly {
		req.Header = http.Header{"Cache-Control": {"no-cache"}}
	}

	var messages []models.Message
	err := g.call(ctx, "ListMessagesForChat", "", req, &messages,
		attribute.String("chat.id", chatID), attribute.String("fetch.policy", policy.String()))
	return messages, err
}

// call authenticates req with the identity on ctx and runs it inside a span.
// A non-empty userID must match that identity.
func (g *HTTPGateway) call(ctx context.Context, op, userID string, req apiclient.Request, out any, attrs ...attribute.KeyValue) error {
	ctx, span := g.tracer.Start(ctx, "gateway."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	defer span.End()

	id, err := session.Require(ctx)
	if err == nil && userID != "" && userID != id.UserID {
		err = ErrIdentityMismatch
	}
	if err == nil {
		req.Token = id.Token
		err = g.api.Do(ctx, req, out)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func chatPath(chatID, action string) string {
	return "/api/v1/chats/" + url.PathEscape(chatID) + "/" + action
}
