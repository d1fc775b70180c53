package revocation

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/auth-service/internal/clock"
)

// PostgresStore keeps revoked tokens in the blacklisted_tokens table. The
// unique index on token_digest makes Revoke a single conditional insert.
type PostgresStore struct {
	pool  *pgxpool.Pool
	clock clock.Clock
}

// NewPostgresStore returns a Postgres-backed implementation.
func NewPostgresStore(pool *pgxpool.Pool, clk clock.Clock) *PostgresStore {
	if clk == nil {
		clk = clock.Real()
	}
	return &PostgresStore{pool: pool, clock: clk}
}

func (s *PostgresStore) Revoke(ctx context.Context, rawToken, subjectID string, expiresAt time.Time) (Outcome, error) {
	const query = `
        INSERT INTO blacklisted_tokens (token_digest, user_id, expiry_date, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $4)
        ON CONFLICT (token_digest) DO NOTHING`

	cmd, err := s.pool.Exec(ctx, query,
		Fingerprint(rawToken),
		subjectID,
		expiresAt.UTC(),
		s.clock.Now().UTC(),
	)
	if err != nil {
		return "", err
	}
	if cmd.RowsAffected() == 0 {
		return OutcomeAlreadyRevoked, nil
	}
	return OutcomeRevoked, nil
}

func (s *PostgresStore) IsRevoked(ctx context.Context, rawToken string) (bool, error) {
	const query = `
        SELECT EXISTS (
            SELECT 1 FROM blacklisted_tokens WHERE token_digest = $1
        )`

	var exists bool
	if err := s.pool.QueryRow(ctx, query, Fingerprint(rawToken)).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *PostgresStore) Cleanup(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM blacklisted_tokens WHERE expiry_date <= $1`

	cmd, err := s.pool.Exec(ctx, query, now.UTC())
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
