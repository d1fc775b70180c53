package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/auth-service/internal/api/http"
	"github.com/spec-kit/auth-service/internal/api/http/handlers"
	"github.com/spec-kit/auth-service/internal/app"
	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/observability"
	"github.com/spec-kit/auth-service/internal/service"
	"github.com/spec-kit/auth-service/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}
	defer application.Close()

	worker.StartAuditWorker(service.NewAuditService(application.Dispatcher, logger))

	seeder := service.NewSeeder(application.Users, cfg.Seed, cfg.Auth.BcryptCost, application.Dispatcher, logger)
	if _, err := seeder.Seed(ctx); err != nil {
		logger.Fatal("failed to seed users", zap.Error(err))
	}

	cleanup := worker.NewRevocationCleanup(application.Revocations, application.Clock, application.Metrics, logger)
	if err := cleanup.Start(cfg.Revocation.CleanupSchedule); err != nil {
		logger.Fatal("failed to schedule revocation cleanup", zap.Error(err))
	}

	dependencies := map[string]handlers.Pinger{"postgres": application.Postgres}
	if application.Redis != nil {
		dependencies["redis"] = application.Redis
	}

	server := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(server, logger, application.Metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(server, httptransport.RouteConfig{
		Health:        handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies),
		Auth:          handlers.NewAuthHandler(application.AuthService),
		Users:         handlers.NewUsersHandler(application.AuthService),
		Authenticator: auth.NewAuthenticator(application.Validator, cfg.Auth.PublicRoutes, logger, application.Metrics),
		Metrics:       application.Metrics,
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		if err := server.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	cleanup.Stop(shutdownCtx)
	_ = server.ShutdownWithContext(shutdownCtx)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
