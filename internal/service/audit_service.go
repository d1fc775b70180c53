package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/events"
)

// AuditService writes an audit log line for every authentication event.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventUserLoggedIn, a.handle)
	a.dispatcher.Subscribe(events.EventUserLoggedOut, a.handle)
	a.dispatcher.Subscribe(events.EventTokenRevoked, a.handle)
	a.dispatcher.Subscribe(events.EventUserSeeded, a.handle)
}

func (a *AuditService) handle(_ context.Context, event events.Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("subject_id", event.SubjectID),
		zap.Time("at", event.Timestamp),
	}
	if payload, ok := event.Payload.(events.TokenPayload); ok {
		fields = append(fields,
			zap.String("token_fingerprint", payload.Fingerprint),
			zap.Time("token_expires_at", payload.ExpiresAt),
		)
		if payload.Outcome != "" {
			fields = append(fields, zap.String("outcome", payload.Outcome))
		}
	}
	a.logger.Info(string(event.Type), fields...)
	return nil
}
