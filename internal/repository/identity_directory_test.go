package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/repository"
	mock_repository "github.com/spec-kit/auth-service/internal/repository/mock"
)

func TestIdentityDirectoryFindByID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	users := mock_repository.NewMockUserRepository(ctrl)
	users.EXPECT().GetByID(gomock.Any(), "u-1").Return(&domain.User{ID: "u-1", Email: "a@example.com"}, nil)
	users.EXPECT().GetByID(gomock.Any(), "u-2").Return(nil, pgx.ErrNoRows)
	users.EXPECT().GetByID(gomock.Any(), "u-3").Return(nil, errors.New("connection reset"))

	directory := repository.NewIdentityDirectory(users)
	ctx := context.Background()

	identity, err := directory.FindByID(ctx, "u-1")
	assert.NoError(t, err)
	assert.Equal(t, auth.Identity{SubjectID: "u-1", Email: "a@example.com"}, identity)

	_, err = directory.FindByID(ctx, "u-2")
	assert.ErrorIs(t, err, auth.ErrIdentityNotFound)

	_, err = directory.FindByID(ctx, "u-3")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, auth.ErrIdentityNotFound)
}
