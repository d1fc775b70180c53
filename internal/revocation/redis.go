package revocation

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/auth-service/internal/clock"
)

// minRedisTTL keeps an already-expired token's entry long enough to make a
// retried revoke report AlreadyRevoked.
const minRedisTTL = time.Minute

// RedisStore keeps one key per revoked token. Keys expire together with the
// token they describe, so Cleanup has nothing to do.
type RedisStore struct {
	client *redis.Client
	prefix string
	clock  clock.Clock
}

// NewRedisStore returns a Redis-backed implementation.
func NewRedisStore(client *redis.Client, prefix string, clk clock.Clock) *RedisStore {
	if clk == nil {
		clk = clock.Real()
	}
	return &RedisStore{client: client, prefix: prefix, clock: clk}
}

func (s *RedisStore) key(rawToken string) string {
	return s.prefix + Fingerprint(rawToken)
}

func (s *RedisStore) Revoke(ctx context.Context, rawToken, subjectID string, expiresAt time.Time) (Outcome, error) {
	ttl := expiresAt.Sub(s.clock.Now())
	if ttl < minRedisTTL {
		ttl = minRedisTTL
	}

	created, err := s.client.SetNX(ctx, s.key(rawToken), subjectID, ttl).Result()
	if err != nil {
		return "", err
	}
	if !created {
		return OutcomeAlreadyRevoked, nil
	}
	return OutcomeRevoked, nil
}

func (s *RedisStore) IsRevoked(ctx context.Context, rawToken string) (bool, error) {
	exists, err := s.client.Exists(ctx, s.key(rawToken)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

// Cleanup is a no-op: Redis evicts entries on their own TTL.
func (s *RedisStore) Cleanup(context.Context, time.Time) (int64, error) {
	return 0, nil
}
