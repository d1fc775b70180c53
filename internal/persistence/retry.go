package persistence

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	connectAttempts = 5
	connectTimeout  = 5 * time.Second
	initialBackoff  = 500 * time.Millisecond
)

// connectWithRetry runs dial until it succeeds, doubling the pause between
// attempts. Each attempt gets its own deadline.
func connectWithRetry(ctx context.Context, logger *zap.Logger, name string, attempts int, backoff time.Duration, dial func(context.Context) error) error {
	var err error
	for i := 1; i <= attempts; i++ {
		attemptCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		err = dial(attemptCtx)
		cancel()
		if err == nil {
			logger.Info("connected", zap.String("store", name), zap.Int("attempt", i))
			return nil
		}
		if i == attempts {
			break
		}

		logger.Warn("connection attempt failed",
			zap.String("store", name),
			zap.Int("attempt", i),
			zap.Int("max_attempts", attempts),
			zap.Duration("retry_in", backoff),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return fmt.Errorf("unable to connect to %s after %d attempts: %w", name, attempts, err)
}
