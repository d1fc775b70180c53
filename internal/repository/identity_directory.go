package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/auth-service/internal/auth"
)

// IdentityDirectory answers token subject lookups from the user table.
type IdentityDirectory struct {
	users UserRepository
}

// NewIdentityDirectory adapts a UserRepository to auth.IdentityLookup.
func NewIdentityDirectory(users UserRepository) *IdentityDirectory {
	return &IdentityDirectory{users: users}
}

// FindByID returns the current email of subjectID.
func (d *IdentityDirectory) FindByID(ctx context.Context, subjectID string) (auth.Identity, error) {
	user, err := d.users.GetByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return auth.Identity{}, auth.ErrIdentityNotFound
		}
		return auth.Identity{}, err
	}
	return auth.Identity{SubjectID: user.ID, Email: user.Email}, nil
}
