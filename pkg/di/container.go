package di

import (
	"context"
	"errors"
	"fmt"

	"github.com/chatbridge/assistant/internal/repository"
	"github.com/chatbridge/assistant/internal/responder"
	"github.com/chatbridge/assistant/internal/service"
	"github.com/chatbridge/assistant/pkg/cache"
	"github.com/chatbridge/assistant/pkg/config"
	"github.com/chatbridge/assistant/pkg/health"
	"github.com/chatbridge/assistant/pkg/jwt"
	"github.com/chatbridge/assistant/pkg/logger"
	"github.com/chatbridge/assistant/pkg/observability"
	"github.com/chatbridge/assistant/pkg/resilience"
	"github.com/chatbridge/assistant/pkg/secrets"

	"gorm.io/gorm"
)

// Container holds all the dependencies for the API server
type Container struct {
	Config          *config.Config
	DB              *gorm.DB
	Logger          *logger.Logger
	Secrets         secrets.Manager
	JWTService      *jwt.Service
	Cache           cache.Store
	Breaker         *resilience.CircuitBreaker
	MetricsProvider *observability.MetricsProvider
	Metrics         *observability.Metrics
	Checker         *health.Checker
	UserService     *service.UserService
	ChatService     *service.ChatService

	closers []func(context.Context) error
}

// Options holds what the container cannot build on its own
type Options struct {
	Config *config.Config
	DB     *gorm.DB
	Logger *logger.Logger
	// Secrets overrides the manager chosen from the Vault settings
	Secrets secrets.Manager
	// Responder overrides the responder chosen from the responder settings
	Responder responder.Responder
}

// New creates a new dependency injection container
func New(ctx context.Context, opts Options) (*Container, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Get()
	}
	log := opts.Logger
	if log == nil {
		log = logger.GetGlobal()
	}
	if opts.DB == nil {
		return nil, errors.New("di: database is required")
	}

	c := &Container{
		Config:  cfg,
		DB:      opts.DB,
		Logger:  log,
		Secrets: opts.Secrets,
	}

	if c.Secrets == nil {
		manager, err := newSecretsManager(cfg, log)
		if err != nil {
			return nil, err
		}
		c.Secrets = manager
	}

	jwtSecret := c.Secrets.GetSecretWithDefault(ctx, "jwt_secret", cfg.JWT.Secret)
	jwtService, err := jwt.NewService(jwtSecret, cfg.JWT.Expiry)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT service: %w", err)
	}
	c.JWTService = jwtService

	mp, err := observability.SetupPrometheusMetrics()
	if err != nil {
		return nil, err
	}
	c.MetricsProvider = mp
	c.closers = append(c.closers, mp.Shutdown)
	if c.Metrics, err = observability.NewMetrics(mp.Provider); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	c.Checker = health.NewChecker(log, cfg.Server.Timeout)
	c.Checker.RegisterDatabaseCheck(func(ctx context.Context) error {
		sqlDB, err := opts.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})

	c.Cache = c.newCache(ctx)

	resp := opts.Responder
	if resp == nil {
		if resp, err = c.newResponder(ctx); err != nil {
			return nil, err
		}
	}

	c.Breaker = resilience.NewCircuitBreaker(resilience.Config{
		Name:             "responder",
		FailureThreshold: cfg.Responder.FailureThreshold,
		SuccessThreshold: cfg.Responder.SuccessThreshold,
		RetryTimeout:     cfg.Responder.RetryTimeout,
	}, log)

	c.UserService = service.NewUserService(repository.NewGormUserRepository(opts.DB), jwtService)
	c.ChatService = service.NewChatService(service.ChatServiceOptions{
		Chats:     repository.NewGormChatRepository(opts.DB),
		Cache:     c.Cache,
		CacheTTL:  cfg.Cache.TTL,
		Responder: resp,
		Breaker:   c.Breaker,
		Metrics:   c.Metrics,
		Logger:    log,
	})

	return c, nil
}

// Close releases resources held by the container
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func newSecretsManager(cfg *config.Config, log *logger.Logger) (secrets.Manager, error) {
	if !cfg.Vault.Enabled {
		return secrets.NewEnvManager(log), nil
	}
	manager, err := secrets.NewVaultManager(secrets.VaultConfig{
		Address:     cfg.Vault.Addr,
		Token:       cfg.Vault.Token,
		Namespace:   cfg.Vault.Namespace,
		Mount:       cfg.Vault.Mount,
		SecretsPath: cfg.Vault.SecretsPath,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault manager: %w", err)
	}
	return manager, nil
}

// newCache prefers Redis and falls back to process memory when it is disabled or unreachable
func (c *Container) newCache(ctx context.Context) cache.Store {
	if !c.Config.Redis.Enabled {
		return cache.NewMemoryStore(10000)
	}

	store, err := cache.NewRedisStore(ctx, cache.RedisOptions{
		Addr:     c.Config.Redis.Addr,
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
		Prefix:   "assistant:",
	})
	if err != nil {
		c.Logger.LogWarn(err, "Redis unavailable, using in-memory cache", "addr", c.Config.Redis.Addr)
		return cache.NewMemoryStore(10000)
	}

	c.Checker.RegisterCacheCheck(store.Ping)
	c.closers = append(c.closers, func(context.Context) error { return store.Close() })
	return store
}

func (c *Container) newResponder(ctx context.Context) (responder.Responder, error) {
	if c.Config.Responder.URL == "" {
		c.Logger.Warn("RESPONDER_URL not set, bot replies will echo the user")
		return responder.Echo{}, nil
	}

	apiKey := c.Secrets.GetSecretWithDefault(ctx, "responder_api_key", c.Config.Responder.APIKey)
	client, err := responder.NewHTTPClient(c.Config.Responder.URL, apiKey, c.Config.Responder.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create responder client: %w", err)
	}
	return client, nil
}
