package events

import (
	"time"

	"github.com/spec-kit/exim-session/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSessionStarted  EventType = "session_started"
	EventSessionEnded    EventType = "session_ended"
	EventSessionRejected EventType = "session_rejected"
)

// Actor identifies who the event is about.
type Actor struct {
	Kind   domain.CredentialKind `json:"kind"`
	UserID string                `json:"user_id,omitempty"`
	Role   domain.Role           `json:"role,omitempty"`
}

// Event represents an authentication event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// SessionStartedPayload payload.
type SessionStartedPayload struct {
	SessionID string    `json:"session_id,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionEndedPayload payload.
type SessionEndedPayload struct {
	SessionID     string `json:"session_id,omitempty"`
	Revoked       int    `json:"revoked"`
	ClaimedUserID string `json:"claimed_user_id,omitempty"`
}

// SessionRejectedPayload payload.
type SessionRejectedPayload struct {
	Reason string `json:"reason"`
}
