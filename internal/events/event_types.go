package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserLoggedIn  EventType = "user_logged_in"
	EventUserLoggedOut EventType = "user_logged_out"
	EventTokenRevoked  EventType = "token_revoked"
	EventUserSeeded    EventType = "user_seeded"
)

// Event represents an audit-relevant occurrence emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	SubjectID string    `json:"subject_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// NewEvent stamps an event with a fresh ID.
func NewEvent(eventType EventType, subjectID string, at time.Time, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SubjectID: subjectID,
		Timestamp: at,
		Payload:   payload,
	}
}

// TokenPayload describes a token without exposing it. Fingerprint is the
// SHA-256 digest of the raw token.
type TokenPayload struct {
	Fingerprint string    `json:"fingerprint"`
	ExpiresAt   time.Time `json:"expires_at"`
	Outcome     string    `json:"outcome,omitempty"`
}
