package audit

import "time"

// Event is an immutable, append-only audit log record of a dial trigger decision.
//
// Invariants:
// - Events are never updated or deleted.
// - actor and ip capture are best-effort; do not block dispatch on audit failures.
//
// Phone numbers are not stored here; the call records carry them.
type Event struct {
	ID string `json:"id" db:"id"`

	// Type indicates the business category of the audit record.
	Type EventType `json:"type" db:"type"`

	// ActorUserID is the authenticated user causing the event (empty for anonymous triggers).
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`

	// IPAddress is the resolved client IP.
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	SessionID   string `json:"session_id,omitempty" db:"session_id"`
	SourceID    string `json:"source_id,omitempty" db:"source_id"`
	NumberCount int    `json:"number_count" db:"number_count"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeSessionDispatched EventType = "session_dispatched"
	EventTypeSessionRejected   EventType = "session_rejected"
)

// Actor identifies who triggered a session and from where.
type Actor struct {
	UserID string
	Role   string
	IP     string
}
