// Package secrets resolves credentials such as the JWT signing secret and the
// responder API key from Vault or the environment.
package secrets

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/chatbridge/assistant/pkg/logger"
)

// ErrSecretNotFound is returned when no source holds the requested key
var ErrSecretNotFound = errors.New("secret not found")

// Manager provides access to secrets from various sources
type Manager interface {
	// GetSecret retrieves a secret by key
	GetSecret(ctx context.Context, key string) (string, error)

	// GetSecretWithDefault retrieves a secret with a default value if not found
	GetSecretWithDefault(ctx context.Context, key, defaultValue string) string
}

// EnvManager reads secrets from environment variables.
// Keys like "jwt-secret" or "jwt.secret" map to JWT_SECRET.
type EnvManager struct {
	log    *logger.Logger
	lookup func(string) (string, bool)
}

// NewEnvManager creates an environment-backed manager
func NewEnvManager(log *logger.Logger) *EnvManager {
	return &EnvManager{log: log, lookup: os.LookupEnv}
}

// GetSecret implements Manager
func (m *EnvManager) GetSecret(_ context.Context, key string) (string, error) {
	value, ok := m.lookup(EnvKey(key))
	if !ok || value == "" {
		return "", ErrSecretNotFound
	}
	return value, nil
}

// GetSecretWithDefault implements Manager
func (m *EnvManager) GetSecretWithDefault(ctx context.Context, key, defaultValue string) string {
	return withDefault(ctx, m, m.log, key, defaultValue)
}

// EnvKey converts a secret key to its environment variable name
func EnvKey(key string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(key))
}

func withDefault(ctx context.Context, m Manager, log *logger.Logger, key, defaultValue string) string {
	value, err := m.GetSecret(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrSecretNotFound) {
			log.Warn("Failed to get secret, using default value",
				"key", key,
				"error", err.Error(),
			)
		}
		return defaultValue
	}
	return value
}
