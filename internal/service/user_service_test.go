package service

import (
	"context"
	"testing"
	"time"

	"github.com/chatbridge/assistant/internal/repository"
	"github.com/chatbridge/assistant/internal/testutil"
	"github.com/chatbridge/assistant/pkg/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUserService(t *testing.T) (*UserService, *jwt.Service) {
	t.Helper()
	tokens, err := jwt.NewService("test-secret", time.Hour)
	require.NoError(t, err)
	return NewUserService(repository.NewGormUserRepository(testutil.NewDB(t)), tokens), tokens
}

func TestSignupThenLogin(t *testing.T) {
	svc, tokens := newTestUserService(t)
	ctx := context.Background()

	user, token, err := svc.Signup(ctx, " Ada@Example.com ", "password123")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.NotEqual(t, "password123", user.Password)

	claims, err := tokens.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	loggedIn, _, err := svc.Login(ctx, "ada@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)

	found, err := svc.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, found.Email)
}

func TestSignupRejectsDuplicateEmail(t *testing.T) {
	svc, _ := newTestUserService(t)
	ctx := context.Background()

	_, _, err := svc.Signup(ctx, "ada@example.com", "password123")
	require.NoError(t, err)
	_, _, err = svc.Signup(ctx, "ADA@example.com", "password456")
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newTestUserService(t)
	ctx := context.Background()

	_, _, err := svc.Signup(ctx, "ada@example.com", "password123")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "ada@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
