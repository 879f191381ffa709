// Package session carries the signed-in identity explicitly through calls
// instead of reading it from ambient state.
package session

import (
	"context"
	"errors"
)

// ErrNoIdentity is returned when a user-scoped call runs without a signed-in identity
var ErrNoIdentity = errors.New("no signed-in identity")

// Identity is a resolved user together with the credential that proves it
type Identity struct {
	UserID string
	Email  string
	Token  string
}

// Valid reports whether the identity can authenticate calls
func (i Identity) Valid() bool {
	return i.UserID != "" && i.Token != ""
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying id
func NewContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity carried by ctx
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	if !ok || !id.Valid() {
		return Identity{}, false
	}
	return id, true
}

// Require returns the identity carried by ctx or ErrNoIdentity
func Require(ctx context.Context) (Identity, error) {
	id, ok := FromContext(ctx)
	if !ok {
		return Identity{}, ErrNoIdentity
	}
	return id, nil
}
