package api

import (
	stderrors "errors"
	"net/http"

	"github.com/chatbridge/assistant/internal/models"
	"github.com/chatbridge/assistant/internal/service"
	"github.com/chatbridge/assistant/pkg/errors"
	"github.com/chatbridge/assistant/pkg/logger"
	"github.com/chatbridge/assistant/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	service *service.UserService
	logger  *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(service *service.UserService, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger,
	}
}

// Signup handles user registration
func (h *AuthHandler) Signup(c *gin.Context) {
	var req models.CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Error binding JSON for signup", "error", err.Error())
		c.Error(errors.NewBadRequestError(errors.CodeInvalidRequest, "Invalid request format").WithDetails(err.Error()))
		return
	}

	user, token, err := h.service.Signup(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case stderrors.Is(err, service.ErrUserAlreadyExists):
			c.Error(errors.NewConflictError(errors.CodeUserExists, "A user with this email already exists"))
		default:
			h.logger.LogError(err, "Error creating user")
			c.Error(errors.NewInternalServerError(errors.CodeInternal, "Failed to create user account"))
		}
		return
	}

	c.JSON(http.StatusCreated, models.AuthResponse{User: user.ToResponse(), Token: token})
}

// Login handles user authentication
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Error binding JSON for login", "error", err.Error())
		c.Error(errors.NewBadRequestError(errors.CodeInvalidRequest, "Invalid request format").WithDetails(err.Error()))
		return
	}

	user, token, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case stderrors.Is(err, service.ErrInvalidCredentials):
			c.Error(errors.NewUnauthorizedError(errors.CodeInvalidCredentials, "Invalid email or password"))
		default:
			h.logger.LogError(err, "Error during login")
			c.Error(errors.NewInternalServerError(errors.CodeInternal, "An error occurred during login"))
		}
		return
	}

	h.logger.Info("User logged in", "user_id", user.ID)

	c.JSON(http.StatusOK, models.AuthResponse{User: user.ToResponse(), Token: token})
}

// Me returns the current authenticated user
func (h *AuthHandler) Me(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		c.Error(errors.NewUnauthorizedError(errors.CodeAuthRequired, "Authentication required"))
		return
	}

	user, err := h.service.GetByID(c.Request.Context(), userID)
	if err != nil {
		switch {
		case stderrors.Is(err, service.ErrUserNotFound):
			c.Error(errors.NewNotFoundError(errors.CodeUserNotFound, "User not found"))
		default:
			h.logger.LogError(err, "Error getting user")
			c.Error(errors.NewInternalServerError(errors.CodeInternal, "Failed to retrieve user"))
		}
		return
	}

	c.JSON(http.StatusOK, user.ToResponse())
}
