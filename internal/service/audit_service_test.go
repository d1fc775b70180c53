package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/service"
)

func TestAuditServiceLogsFingerprintOnly(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	dispatcher := events.NewInMemoryDispatcher()
	service.NewAuditService(dispatcher, zap.New(core)).RegisterHandlers()

	expires := time.Date(2025, 1, 1, 0, 15, 0, 0, time.UTC)
	event := events.NewEvent(events.EventTokenRevoked, "user-1", expires.Add(-time.Minute), events.TokenPayload{
		Fingerprint: "abc123",
		ExpiresAt:   expires,
		Outcome:     "revoked",
	})
	require.NoError(t, dispatcher.Publish(context.Background(), event))

	entries := logs.Filter(func(e observer.LoggedEntry) bool { return e.LoggerName == "audit" }).All()
	require.Len(t, entries, 1)
	assert.Equal(t, string(events.EventTokenRevoked), entries[0].Message)

	fields := entries[0].ContextMap()
	assert.Equal(t, "user-1", fields["subject_id"])
	assert.Equal(t, "abc123", fields["token_fingerprint"])
	assert.Equal(t, "revoked", fields["outcome"])
}

func TestAuditServiceSubscribesEveryEventType(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	dispatcher := events.NewInMemoryDispatcher()
	service.NewAuditService(dispatcher, zap.New(core)).RegisterHandlers()

	for _, eventType := range []events.EventType{
		events.EventUserLoggedIn,
		events.EventUserLoggedOut,
		events.EventTokenRevoked,
		events.EventUserSeeded,
	} {
		require.NoError(t, dispatcher.Publish(context.Background(), events.NewEvent(eventType, "u", time.Now(), nil)))
	}
	assert.Equal(t, 4, logs.Len())
}
