package worker

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	cron "github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/clock"
	"github.com/spec-kit/auth-service/internal/observability"
	"github.com/spec-kit/auth-service/internal/revocation"
)

const defaultCleanupRetryDelay = 3 * time.Second

// RevocationCleanup purges revocation entries whose tokens have expired.
type RevocationCleanup struct {
	store      revocation.Store
	clock      clock.Clock
	metrics    *observability.Metrics
	logger     *zap.Logger
	retryDelay time.Duration
	cron       *cron.Cron
}

// NewRevocationCleanup builds the worker.
func NewRevocationCleanup(store revocation.Store, clk clock.Clock, metrics *observability.Metrics, logger *zap.Logger) *RevocationCleanup {
	if clk == nil {
		clk = clock.Real()
	}
	return &RevocationCleanup{
		store:      store,
		clock:      clk,
		metrics:    metrics,
		logger:     logger,
		retryDelay: defaultCleanupRetryDelay,
	}
}

// RunOnce removes every entry expired at the current instant. A transient
// connection error is retried once.
func (w *RevocationCleanup) RunOnce(ctx context.Context) (int64, error) {
	removed, err := w.store.Cleanup(ctx, w.clock.Now())
	if err != nil && isTransient(err) {
		w.logger.Warn("revocation cleanup hit transient error; retrying once", zap.Error(err))
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(w.retryDelay):
		}
		removed, err = w.store.Cleanup(ctx, w.clock.Now())
	}
	if err != nil {
		return 0, err
	}

	w.metrics.RecordCleanup(removed)
	w.logger.Info("revocation cleanup finished", zap.Int64("removed", removed))
	return removed, nil
}

// Start schedules RunOnce on schedule, a standard cron expression or descriptor
// such as "@hourly".
func (w *RevocationCleanup) Start(schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if _, err := w.RunOnce(context.Background()); err != nil {
			w.logger.Error("scheduled revocation cleanup failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}
	w.cron = c
	c.Start()
	return nil
}

// Stop halts the schedule and waits for a running cleanup to finish or ctx to end.
func (w *RevocationCleanup) Stop(ctx context.Context) {
	if w.cron == nil {
		return
	}
	select {
	case <-w.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func isTransient(err error) bool {
	return errors.Is(err, io.EOF) ||
		pgconn.SafeToRetry(err) ||
		strings.Contains(err.Error(), "connection was closed")
}
