package calls

import "time"

// CallAttempt is the persisted progress of one canonical number within one dial session.
//
// Invariants:
// - Phone is E.164 and non-empty.
// - At most one attempt per (SessionID, Phone) under normal operation.
// - Transcript, Summary, DurationSeconds and Cost are written only by provider webhooks.
//
// Provider identifiers are empty until the provider assigns them.
type CallAttempt struct {
	ID        string `json:"id" db:"id"`
	SessionID string `json:"session_id" db:"session_id"`
	OwnerID   string `json:"owner_id,omitempty" db:"owner_id"`
	SourceID  string `json:"source_id,omitempty" db:"source_id"`

	Phone    string `json:"phone" db:"phone"`
	RawPhone string `json:"raw_phone,omitempty" db:"raw_phone"`

	TelephonyCallID string `json:"telephony_call_id,omitempty" db:"telephony_call_id"`
	AgentCallID     string `json:"agent_call_id,omitempty" db:"agent_call_id"`
	AgentID         string `json:"agent_id,omitempty" db:"agent_id"`

	Status Status `json:"status" db:"status"`

	Transcript string `json:"transcript,omitempty" db:"transcript"`
	Summary    string `json:"summary,omitempty" db:"summary"`

	// Error is the last non-fatal error recorded for this attempt. It does not imply StatusFailed.
	Error string `json:"error,omitempty" db:"error"`

	DurationSeconds float64 `json:"duration_seconds,omitempty" db:"duration_seconds"`
	Cost            float64 `json:"cost,omitempty" db:"cost"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// Terminal reports whether s is a final status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	TelephonyCallID *string
	AgentCallID     *string
	AgentID         *string
	Status          *Status

	Transcript *string
	Summary    *string
	Error      *string

	DurationSeconds *float64
	Cost            *float64
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.TelephonyCallID == nil && p.AgentCallID == nil && p.AgentID == nil && p.Status == nil &&
		p.Transcript == nil && p.Summary == nil && p.Error == nil &&
		p.DurationSeconds == nil && p.Cost == nil
}

func (p Patch) apply(a *CallAttempt) {
	if p.TelephonyCallID != nil {
		a.TelephonyCallID = *p.TelephonyCallID
	}
	if p.AgentCallID != nil {
		a.AgentCallID = *p.AgentCallID
	}
	if p.AgentID != nil {
		a.AgentID = *p.AgentID
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.Transcript != nil {
		a.Transcript = *p.Transcript
	}
	if p.Summary != nil {
		a.Summary = *p.Summary
	}
	if p.Error != nil {
		a.Error = *p.Error
	}
	if p.DurationSeconds != nil {
		a.DurationSeconds = *p.DurationSeconds
	}
	if p.Cost != nil {
		a.Cost = *p.Cost
	}
}

// ProviderKey identifies an attempt from a provider callback.
// Any non-empty field may match; ID is the store's own key when the callback echoes it back.
type ProviderKey struct {
	ID              string
	TelephonyCallID string
	AgentCallID     string
}

func (k ProviderKey) Empty() bool {
	return k.ID == "" && k.TelephonyCallID == "" && k.AgentCallID == ""
}

func (k ProviderKey) matches(a CallAttempt) bool {
	if k.ID != "" && a.ID == k.ID {
		return true
	}
	if k.TelephonyCallID != "" && a.TelephonyCallID == k.TelephonyCallID {
		return true
	}
	if k.AgentCallID != "" && a.AgentCallID == k.AgentCallID {
		return true
	}
	return false
}

// Ptr is a small helper for building patches.
func Ptr[T any](v T) *T { return &v }
