package api

import (
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/chatbridge/assistant/internal/models"
	"github.com/chatbridge/assistant/internal/service"
	"github.com/chatbridge/assistant/pkg/errors"
	"github.com/chatbridge/assistant/pkg/logger"
	"github.com/chatbridge/assistant/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// AppendMessageRequest is the body of POST /chats/:id/messages
type AppendMessageRequest struct {
	Content    string            `json:"content"`
	SenderType models.SenderRole `json:"senderType" binding:"required"`
}

// ResponderRequest is the body of POST /chats/:id/responder
type ResponderRequest struct {
	Content string `json:"content"`
}

// ChatHandler serves chats and their messages to the signed-in user
type ChatHandler struct {
	service *service.ChatService
}

// NewChatHandler creates a chat handler
func NewChatHandler(service *service.ChatService) *ChatHandler {
	return &ChatHandler{service: service}
}

// RegisterRoutes mounts the chat routes on an authenticated group
func (h *ChatHandler) RegisterRoutes(group *gin.RouterGroup) {
	chats := group.Group("/chats")
	{
		chats.POST("", h.CreateChat)
		chats.GET("", h.ListChats)
		chats.GET("/:id/messages", h.ListMessages)
		chats.POST("/:id/messages", h.AppendMessage)
		chats.POST("/:id/touch", h.TouchChat)
		chats.POST("/:id/responder", h.InvokeResponder)
	}
}

// CreateChat creates an empty chat for the caller
func (h *ChatHandler) CreateChat(c *gin.Context) {
	chat, err := h.service.CreateChat(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, err, "Failed to create chat")
		return
	}
	c.JSON(http.StatusCreated, chat)
}

// ListChats returns the caller's chats with their messages, most recent first
func (h *ChatHandler) ListChats(c *gin.Context) {
	chats, err := h.service.ListChats(c.Request.Context(), middleware.UserID(c), wantsFresh(c))
	if err != nil {
		h.fail(c, err, "Failed to list chats")
		return
	}
	c.JSON(http.StatusOK, chats)
}

// ListMessages returns one chat's messages oldest first
func (h *ChatHandler) ListMessages(c *gin.Context) {
	messages, err := h.service.ListMessages(c.Request.Context(), middleware.UserID(c), c.Param("id"), wantsFresh(c))
	if err != nil {
		h.fail(c, err, "Failed to list messages")
		return
	}
	c.JSON(http.StatusOK, messages)
}

// AppendMessage stores a user or bot message
func (h *ChatHandler) AppendMessage(c *gin.Context) {
	var req AppendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewBadRequestError(errors.CodeInvalidRequest, "Invalid request format").WithDetails(err.Error()))
		return
	}

	message, err := h.service.AppendMessage(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.Content, req.SenderType)
	if err != nil {
		h.fail(c, err, "Failed to append message")
		return
	}
	c.JSON(http.StatusCreated, message)
}

// TouchChat advances the chat's last-activity timestamp
func (h *ChatHandler) TouchChat(c *gin.Context) {
	touch, err := h.service.TouchChat(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to update chat")
		return
	}
	c.JSON(http.StatusOK, touch)
}

// InvokeResponder relays the responder's {success, message} reply unchanged
func (h *ChatHandler) InvokeResponder(c *gin.Context) {
	var req ResponderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewBadRequestError(errors.CodeInvalidRequest, "Invalid request format").WithDetails(err.Error()))
		return
	}

	reply, err := h.service.InvokeResponder(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.Content)
	if err != nil {
		h.fail(c, err, "Failed to reach responder")
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (h *ChatHandler) fail(c *gin.Context, err error, msg string) {
	switch {
	case stderrors.Is(err, service.ErrChatNotFound):
		c.Error(errors.NewNotFoundError(errors.CodeChatNotFound, "Chat not found"))
	case stderrors.Is(err, service.ErrEmptyMessage):
		c.Error(errors.NewBadRequestError(errors.CodeEmptyMessage, "Message content is required"))
	case stderrors.Is(err, service.ErrInvalidSender):
		c.Error(errors.NewBadRequestError(errors.CodeInvalidSender, "senderType must be user or bot"))
	case stderrors.Is(err, service.ErrResponderUnavailable):
		c.Error(errors.NewBadGatewayError(errors.CodeResponderUnavailable, "The responder is unavailable"))
	default:
		logger.FromGin(c).LogError(err, msg)
		c.Error(errors.NewInternalServerError(errors.CodeInternal, msg))
	}
}

// wantsFresh reports whether the caller asked to skip cached reads
func wantsFresh(c *gin.Context) bool {
	return strings.Contains(strings.ToLower(c.GetHeader("Cache-Control")), "no-cache")
}
