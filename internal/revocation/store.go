// Package revocation records tokens that were explicitly invalidated before
// their natural expiry.
//
// Entries are keyed by the SHA-256 fingerprint of the exact token bytes, so
// two different tokens never share an entry and the raw credential is never
// stored. Every Store is safe for concurrent use; concurrent Revoke calls for
// the same token persist exactly one entry.
package revocation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/auth-service/internal/clock"
)

// Outcome reports what a Revoke call did.
type Outcome string

const (
	OutcomeRevoked        Outcome = "revoked"
	OutcomeAlreadyRevoked Outcome = "already_revoked"
)

// Entry is a single revoked token.
type Entry struct {
	Fingerprint string
	SubjectID   string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// Store persists revoked tokens and answers membership queries.
type Store interface {
	// Revoke records rawToken. Revoking a token twice is not an error; the
	// second call reports OutcomeAlreadyRevoked.
	Revoke(ctx context.Context, rawToken, subjectID string, expiresAt time.Time) (Outcome, error)
	// IsRevoked reports whether rawToken was revoked.
	IsRevoked(ctx context.Context, rawToken string) (bool, error)
	// Cleanup drops entries whose token expired at or before now.
	Cleanup(ctx context.Context, now time.Time) (int64, error)
}

// Fingerprint returns the hex SHA-256 digest of rawToken.
func Fingerprint(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(sum[:])
}

// Backends understood by Open.
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Open builds the store for backend from the available connections.
func Open(backend string, pool *pgxpool.Pool, rdb *redis.Client, redisPrefix string, clk clock.Clock) (Store, error) {
	switch backend {
	case BackendPostgres:
		if pool == nil {
			return nil, errors.New("postgres revocation backend requires POSTGRES_DSN")
		}
		return NewPostgresStore(pool, clk), nil
	case BackendRedis:
		if rdb == nil {
			return nil, errors.New("redis revocation backend requires a redis client")
		}
		return NewRedisStore(rdb, redisPrefix, clk), nil
	case BackendMemory:
		return NewMemoryStore(clk), nil
	default:
		return nil, fmt.Errorf("unknown revocation backend %q", backend)
	}
}
