package agent

import (
	"voice-dialer/internal/calls"
)

// EventKind is the normalized agent webhook event.
type EventKind string

const (
	EventStarted EventKind = "started"
	EventEnded   EventKind = "ended"
	EventOther   EventKind = "other"
)

// WebhookPayload is the body the agent provider posts to /webhooks/vapi.
type WebhookPayload struct {
	Event    string                    `json:"event"`
	Call     WebhookCall               `json:"call"`
	Messages []calls.TranscriptMessage `json:"messages"`
	Summary  string                    `json:"summary"`
}

type WebhookCall struct {
	ID              string            `json:"id"`
	Status          string            `json:"status"`
	Metadata        calls.Correlation `json:"metadata"`
	DurationSeconds *float64          `json:"durationSeconds,omitempty"`
	Cost            *float64          `json:"cost,omitempty"`
}

// Kind maps the provider's event spellings onto EventKind.
func (p WebhookPayload) Kind() EventKind {
	switch p.Event {
	case "call.ended", "call-ended", "ended":
		return EventEnded
	case "call.started", "call-started", "started":
		return EventStarted
	default:
		return EventOther
	}
}

func (p WebhookPayload) Ended() calls.AgentCallEnded {
	return calls.AgentCallEnded{
		AgentCallID:     p.Call.ID,
		Metadata:        p.Call.Metadata,
		Messages:        p.Messages,
		Summary:         p.Summary,
		DurationSeconds: p.Call.DurationSeconds,
		Cost:            p.Call.Cost,
	}
}

func (p WebhookPayload) Started() calls.AgentCallStarted {
	return calls.AgentCallStarted{AgentCallID: p.Call.ID, Metadata: p.Call.Metadata}
}
