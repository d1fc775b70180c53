//go:generate go run go.uber.org/mock/mockgen -source=ports.go -destination=mock/ports.go

package auth

import (
	"context"
	"errors"
)

// ErrIdentityNotFound is returned by IdentityLookup when the subject is unknown.
var ErrIdentityNotFound = errors.New("identity not found")

// Identity is the canonical directory record for a subject.
type Identity struct {
	SubjectID string
	Email     string
}

// IdentityLookup resolves a token subject against the user directory.
type IdentityLookup interface {
	FindByID(ctx context.Context, subjectID string) (Identity, error)
}

// RevocationChecker answers whether a raw token has been revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, rawToken string) (bool, error)
}
