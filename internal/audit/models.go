// Package audit keeps an append-only trail of roster changes and
// verification outcomes.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action names the operation an event records.
type Action string

const (
	ActionSignatoryUpserted Action = "signatory.upserted"
	ActionSignatoryRemoved  Action = "signatory.removed"
	ActionVerifyStarted     Action = "verify.started"
	ActionVerifyCompleted   Action = "verify.completed"
)

// ClientMetadata describes the caller as seen at the HTTP edge.
type ClientMetadata struct {
	RemoteAddr string `json:"remote_addr,omitempty"`
	UserAgent  string `json:"user_agent,omitempty"`
	Browser    string `json:"browser,omitempty"`
	OS         string `json:"os,omitempty"`
}

// Event is emitted from domain logic to capture key actions. It is
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID         string            `json:"id"`
	OccurredAt time.Time         `json:"occurred_at"`
	Action     Action            `json:"action"`
	Actor      string            `json:"actor,omitempty"`
	Subject    string            `json:"subject,omitempty"`
	Outcome    string            `json:"outcome,omitempty"`
	Detail     map[string]string `json:"detail,omitempty"`
	Client     ClientMetadata    `json:"client,omitempty"`
}

// NewEvent stamps identity and time; callers fill the rest.
func NewEvent(action Action) Event {
	return Event{
		ID:         uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Action:     action,
	}
}
