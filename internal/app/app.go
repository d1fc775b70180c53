// Package app assembles the components shared by the HTTP server and the
// operator CLI from a loaded configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/clock"
	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/observability"
	"github.com/spec-kit/auth-service/internal/persistence"
	"github.com/spec-kit/auth-service/internal/repository"
	"github.com/spec-kit/auth-service/internal/revocation"
	"github.com/spec-kit/auth-service/internal/service"
)

// App holds connections and the token pipeline.
type App struct {
	Config      *config.Config
	Logger      *zap.Logger
	Clock       clock.Clock
	Metrics     *observability.Metrics
	Postgres    *persistence.Postgres
	Redis       *persistence.Redis
	Users       repository.UserRepository
	Revocations revocation.Store
	Issuer      *auth.Issuer
	Validator   *auth.Validator
	Dispatcher  events.Dispatcher
	AuthService *service.AuthService
}

// New connects to the configured stores and builds the issuer and validator.
// Redis is only dialled when it backs the revocation store.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{
		Config:     cfg,
		Logger:     logger,
		Clock:      clock.Real(),
		Metrics:    observability.NewMetrics(),
		Dispatcher: events.NewInMemoryDispatcher(),
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	a.Postgres = pg
	if pg.PoolHandle() == nil {
		a.Close()
		return nil, errors.New("POSTGRES_DSN is required: the user directory lives in postgres")
	}

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			a.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	if cfg.Revocation.Backend == config.RevocationBackendRedis {
		a.Redis, err = persistence.NewRedis(ctx, cfg.Redis, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
	}

	a.Revocations, err = revocation.Open(cfg.Revocation.Backend, pg.PoolHandle(), a.Redis.ClientHandle(), cfg.Redis.KeyPrefix, a.Clock)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Users = repository.NewUserRepository(pg.PoolHandle())

	a.Issuer, err = auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL(), a.Clock)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Validator, err = auth.NewValidator(auth.ValidatorConfig{
		Secret:  cfg.Auth.JWTSecret,
		Issuer:  cfg.Auth.Issuer,
		Timeout: cfg.Auth.ValidationTimeout(),
		Clock:   a.Clock,
	}, a.Revocations, repository.NewIdentityDirectory(a.Users))
	if err != nil {
		a.Close()
		return nil, err
	}

	a.AuthService = service.NewAuthService(service.AuthDependencies{
		UserRepo:    a.Users,
		Issuer:      a.Issuer,
		Verifier:    a.Validator,
		Revocations: a.Revocations,
		Dispatcher:  a.Dispatcher,
		Metrics:     a.Metrics,
		Clock:       a.Clock,
		Logger:      logger,
	})

	logger.Info("token pipeline ready",
		zap.String("issuer", cfg.Auth.Issuer),
		zap.String("revocation_backend", cfg.Revocation.Backend),
		zap.Duration("token_ttl", cfg.Auth.TokenTTL()))
	return a, nil
}

// Close releases connections.
func (a *App) Close() {
	a.Redis.Close()
	a.Postgres.Close()
}
