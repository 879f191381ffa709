package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chatbridge/assistant/internal/repository"
	"github.com/chatbridge/assistant/pkg/config"
	"github.com/chatbridge/assistant/pkg/di"
	"github.com/chatbridge/assistant/pkg/health"
	"github.com/chatbridge/assistant/pkg/logger"
	"github.com/chatbridge/assistant/pkg/observability"
	"github.com/chatbridge/assistant/pkg/router"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.New()

	// Initialize structured logger
	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format != "text"

	log := logger.New(logConfig)
	logger.SetGlobal(log)

	if err := run(cfg, log); err != nil {
		log.LogError(err, "Server stopped with error")
		os.Exit(1)
	}
	log.Info("Server exited gracefully")
}

func run(cfg *config.Config, log *logger.Logger) error {
	log.Info("Starting application", "version", router.Version, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(cfg.Observability.ServiceName, cfg.Observability.TracingEnabled, os.Stdout)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	// Initialize database
	db, err := config.NewDB(cfg)
	if err != nil {
		return err
	}
	if err := repository.Migrate(db); err != nil {
		return err
	}

	container, err := di.New(ctx, di.Options{Config: cfg, DB: db, Logger: log})
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := container.Close(closeCtx); err != nil {
			log.LogError(err, "Failed to close dependencies")
		}
	}()

	r := router.New(container)
	r.SetupRoutes()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r.Engine,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout + cfg.Responder.Timeout,
	}

	grpcServer, _ := health.NewGRPCServer(container.Checker)
	grpcListener, err := net.Listen("tcp", ":"+cfg.GRPC.Port)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		log.Info("gRPC health server starting", "port", cfg.GRPC.Port)
		return grpcServer.Serve(grpcListener)
	})

	g.Go(func() error {
		container.Checker.Run(gctx)
		return nil
	})

	g.Go(func() error {
		r.RateLimiter.RunCleanup(gctx, 10*time.Minute)
		return nil
	})

	// Setup graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		grpcServer.GracefulStop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.LogError(err, "Server forced to shutdown")
			return err
		}
		return nil
	})

	return g.Wait()
}
