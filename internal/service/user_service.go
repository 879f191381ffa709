package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chatbridge/assistant/internal/models"
	"github.com/chatbridge/assistant/internal/repository"
	"github.com/chatbridge/assistant/pkg/jwt"
)

var (
	ErrUserAlreadyExists  = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
)

// UserService handles sign-up and sign-in
type UserService struct {
	users  repository.UserRepository
	tokens *jwt.Service
}

// NewUserService creates a new user service
func NewUserService(users repository.UserRepository, tokens *jwt.Service) *UserService {
	return &UserService{users: users, tokens: tokens}
}

// Signup creates a user and signs them in
func (s *UserService) Signup(ctx context.Context, email, password string) (*models.User, string, error) {
	email = normalizeEmail(email)

	// Check if user already exists
	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return nil, "", ErrUserAlreadyExists
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, "", fmt.Errorf("look up user: %w", err)
	}

	user := &models.User{Email: email, Password: password}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login authenticates a user and returns a JWT token
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", fmt.Errorf("look up user: %w", err)
	}

	if !models.CheckPasswordHash(password, user.Password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// GetByID retrieves a user by ID
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
