package calls

import (
	"context"
	"errors"
	"strings"
)

// Correlation is the metadata attached to a provider session so that
// asynchronous callbacks can be joined back to a CallAttempt.
type Correlation struct {
	TelephonyCallID string `json:"telephonyCallId,omitempty"`
	Phone           string `json:"phone,omitempty"`
	SessionID       string `json:"sessionId,omitempty"`
	OwnerID         string `json:"ownerId,omitempty"`
	SourceID        string `json:"sourceId,omitempty"`
	CallAttemptID   string `json:"callAttemptId,omitempty"`
}

// CorrelationFor builds the correlation metadata for a stored attempt.
func CorrelationFor(a CallAttempt) Correlation {
	return Correlation{
		TelephonyCallID: a.TelephonyCallID,
		Phone:           a.Phone,
		SessionID:       a.SessionID,
		OwnerID:         a.OwnerID,
		SourceID:        a.SourceID,
		CallAttemptID:   a.ID,
	}
}

type TranscriptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AgentCallEnded is the agent provider's "call ended" event.
type AgentCallEnded struct {
	AgentCallID     string
	Metadata        Correlation
	Messages        []TranscriptMessage
	Summary         string
	DurationSeconds *float64
	Cost            *float64
}

type AgentCallStarted struct {
	AgentCallID string
	Metadata    Correlation
}

// TelephonyStatusUpdate is a status callback from the telephony provider.
type TelephonyStatusUpdate struct {
	TelephonyCallID string
	Status          Status
	DurationSeconds *float64
}

// orphanSessionPrefix marks attempts created from a callback that matched nothing.
const orphanSessionPrefix = "webhook:"

// Events applies provider callbacks to the Store. It is the only writer of
// transcript, summary, duration and cost.
type Events struct {
	store Store
}

func NewEvents(store Store) *Events { return &Events{store: store} }

// CallEnded upserts the attempt as completed with its transcript.
// Applying the same event twice leaves the attempt unchanged.
func (e *Events) CallEnded(ctx context.Context, ev AgentCallEnded) (CallAttempt, error) {
	if ev.AgentCallID == "" || ev.Metadata.Phone == "" {
		return CallAttempt{}, ErrInvalidArgument
	}
	p := Patch{
		AgentCallID:     Ptr(ev.AgentCallID),
		Status:          Ptr(StatusCompleted),
		Transcript:      Ptr(BuildTranscript(ev.Messages)),
		Summary:         Ptr(ev.Summary),
		DurationSeconds: ev.DurationSeconds,
		Cost:            ev.Cost,
	}
	return e.store.UpsertByProviderKey(ctx, keyFor(ev.AgentCallID, ev.Metadata), p, seedFor(ev.AgentCallID, ev.Metadata))
}

// CallStarted upserts the attempt as in-progress. Without a phone in the
// metadata an unmatched event cannot seed a record and ErrNotFound is returned.
func (e *Events) CallStarted(ctx context.Context, ev AgentCallStarted) (CallAttempt, error) {
	if ev.AgentCallID == "" {
		return CallAttempt{}, ErrInvalidArgument
	}
	p := Patch{
		AgentCallID: Ptr(ev.AgentCallID),
		Status:      Ptr(StatusInProgress),
	}
	seed := seedFor(ev.AgentCallID, ev.Metadata)
	a, err := e.store.UpsertByProviderKey(ctx, keyFor(ev.AgentCallID, ev.Metadata), p, seed)
	if errors.Is(err, ErrInvalidArgument) && seed.Phone == "" {
		return CallAttempt{}, ErrNotFound
	}
	return a, err
}

// TelephonyStatus applies a telephony status callback to an existing attempt.
// Unknown call ids are reported as ErrNotFound; no record is created.
func (e *Events) TelephonyStatus(ctx context.Context, u TelephonyStatusUpdate) (CallAttempt, error) {
	if u.TelephonyCallID == "" || !u.Status.Valid() {
		return CallAttempt{}, ErrInvalidArgument
	}
	p := Patch{Status: Ptr(u.Status), DurationSeconds: u.DurationSeconds}
	a, err := e.store.UpsertByProviderKey(ctx, ProviderKey{TelephonyCallID: u.TelephonyCallID}, p, CallAttempt{})
	if errors.Is(err, ErrInvalidArgument) {
		return CallAttempt{}, ErrNotFound
	}
	return a, err
}

// BuildTranscript renders messages as "role: content" lines.
func BuildTranscript(msgs []TranscriptMessage) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		role := m.Role
		if role == "" {
			role = "unknown"
		}
		lines = append(lines, role+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

func keyFor(agentCallID string, md Correlation) ProviderKey {
	return ProviderKey{
		ID:              md.CallAttemptID,
		TelephonyCallID: md.TelephonyCallID,
		AgentCallID:     agentCallID,
	}
}

func seedFor(agentCallID string, md Correlation) CallAttempt {
	sessionID := md.SessionID
	if sessionID == "" {
		sessionID = orphanSessionPrefix + agentCallID
	}
	return CallAttempt{
		SessionID:       sessionID,
		OwnerID:         md.OwnerID,
		SourceID:        md.SourceID,
		Phone:           md.Phone,
		TelephonyCallID: md.TelephonyCallID,
	}
}
