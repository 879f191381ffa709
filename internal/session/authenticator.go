package session

import (
	"context"
	"net/http"
	"sync"

	"github.com/chatbridge/assistant/internal/models"
	"github.com/chatbridge/assistant/pkg/apiclient"
	apperrors "github.com/chatbridge/assistant/pkg/errors"
)

// Authenticator signs users in against the chat API and remembers who is signed in
type Authenticator struct {
	api *apiclient.Client

	mu      sync.RWMutex
	current *Identity
}

// NewAuthenticator creates an authenticator using api
func NewAuthenticator(api *apiclient.Client) *Authenticator {
	return &Authenticator{api: api}
}

// Login signs in with email and password
func (a *Authenticator) Login(ctx context.Context, email, password string) (Identity, error) {
	return a.authenticate(ctx, "/api/v1/auth/login", email, password)
}

// Signup creates an account and signs in
func (a *Authenticator) Signup(ctx context.Context, email, password string) (Identity, error) {
	return a.authenticate(ctx, "/api/v1/auth/signup", email, password)
}

func (a *Authenticator) authenticate(ctx context.Context, path, email, password string) (Identity, error) {
	var resp models.AuthResponse
	err := a.api.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   path,
		Body:   models.CredentialsRequest{Email: email, Password: password},
	}, &resp)
	if err != nil {
		return Identity{}, err
	}

	id := Identity{UserID: resp.User.ID, Email: resp.User.Email, Token: resp.Token}
	a.mu.Lock()
	a.current = &id
	a.mu.Unlock()
	return id, nil
}

// CurrentUser returns the signed-in identity, if any
func (a *Authenticator) CurrentUser() (Identity, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.current == nil {
		return Identity{}, false
	}
	return *a.current, true
}

// Verify asks the API whether the current credential is still accepted.
// A rejected credential signs the user out.
func (a *Authenticator) Verify(ctx context.Context) (Identity, error) {
	id, ok := a.CurrentUser()
	if !ok {
		return Identity{}, ErrNoIdentity
	}

	var user models.UserResponse
	err := a.api.Do(ctx, apiclient.Request{
		Method: http.MethodGet,
		Path:   "/api/v1/auth/me",
		Token:  id.Token,
	}, &user)
	if err != nil {
		if isUnauthorized(err) {
			a.SignOut()
		}
		return Identity{}, err
	}
	return id, nil
}

// SignOut forgets the signed-in identity
func (a *Authenticator) SignOut() {
	a.mu.Lock()
	a.current = nil
	a.mu.Unlock()
}

func isUnauthorized(err error) bool {
	return apperrors.GetStatusCode(err) == http.StatusUnauthorized
}
