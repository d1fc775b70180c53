package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/repository"
)

// Seeder inserts a default account when the user table is empty.
type Seeder struct {
	users      repository.UserRepository
	cfg        config.SeedConfig
	bcryptCost int
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewSeeder creates a seeder.
func NewSeeder(users repository.UserRepository, cfg config.SeedConfig, bcryptCost int, dispatcher events.Dispatcher, logger *zap.Logger) *Seeder {
	return &Seeder{users: users, cfg: cfg, bcryptCost: bcryptCost, dispatcher: dispatcher, logger: logger}
}

// Seed creates the configured default user. It reports whether a user was created.
func (s *Seeder) Seed(ctx context.Context) (bool, error) {
	if !s.cfg.Enabled {
		return false, nil
	}

	count, err := s.users.Count(ctx)
	if err != nil {
		return false, err
	}
	if count > 0 {
		s.logger.Debug("users present; skipping seed", zap.Int64("count", count))
		return false, nil
	}

	hash, err := auth.HashPassword(s.cfg.UserPassword, s.bcryptCost)
	if err != nil {
		return false, err
	}
	user := &domain.User{
		Name:         s.cfg.UserName,
		Email:        s.cfg.UserEmail,
		PasswordHash: hash,
		Phone:        s.cfg.UserPhone,
		Status:       domain.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return false, err
	}

	s.logger.Info("seeded default user", zap.String("user_id", user.ID), zap.String("email", user.Email))
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.NewEvent(events.EventUserSeeded, user.ID, time.Now(), nil))
	}
	return true, nil
}
