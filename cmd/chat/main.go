package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/chatbridge/assistant/internal/chat"
	"github.com/chatbridge/assistant/internal/gateway"
	"github.com/chatbridge/assistant/internal/session"
	"github.com/chatbridge/assistant/pkg/apiclient"
	"github.com/chatbridge/assistant/pkg/config"
	"github.com/chatbridge/assistant/pkg/logger"

	"golang.org/x/sync/errgroup"
)

const usage = `usage: chat [signup]

Signs in with CHAT_EMAIL and CHAT_PASSWORD against CHAT_API_URL.
With "signup" the account is created first.`

func main() {
	cfg := config.New()

	// Diagnostics go to stderr so they do not interleave with the conversation
	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = false
	log := logger.New(logConfig)
	logger.SetGlobal(log)

	signup := false
	if len(os.Args) > 1 {
		if os.Args[1] != "signup" {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
		signup = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, signup); err != nil {
		log.LogError(err, "chat client stopped with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger, signup bool) error {
	if cfg.Client.Email == "" || cfg.Client.Password == "" {
		return errors.New("CHAT_EMAIL and CHAT_PASSWORD must be set")
	}

	api := apiclient.New(cfg.Client.APIURL, &http.Client{Timeout: cfg.Server.Timeout + cfg.Responder.Timeout})
	auth := session.NewAuthenticator(api)

	signIn := auth.Login
	if signup {
		signIn = auth.Signup
	}
	identity, err := signIn(ctx, cfg.Client.Email, cfg.Client.Password)
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	defer auth.SignOut()

	client, err := chat.NewClient(chat.ClientOptions{
		Gateway:      gateway.NewHTTPGateway(api),
		Identity:     identity,
		PollInterval: cfg.Sync.PollInterval,
		Logger:       log,
	})
	if err != nil {
		return err
	}
	defer client.SignOut()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return client.Run(gctx) })
	g.Go(func() error {
		defer cancel()
		return newREPL(client, os.Stdin, os.Stdout).Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
