package reporting

import "time"

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// CallsSummary aggregates CallAttempts. A dial session emits no batch
// record, so this is the only view of batch-level progress.
type CallsSummary struct {
	SessionID string `json:"session_id,omitempty"`
	OwnerID   string `json:"owner_id,omitempty"`

	TotalAttempts   int `json:"total_attempts"`
	PendingCalls    int `json:"pending_calls"`
	InProgressCalls int `json:"in_progress_calls"`
	CompletedCalls  int `json:"completed_calls"`
	FailedCalls     int `json:"failed_calls"`

	// AttemptsWithErrors counts attempts carrying a non-fatal error.
	AttemptsWithErrors int `json:"attempts_with_errors"`
	AgentAttached      int `json:"agent_attached"`
	Transcribed        int `json:"transcribed"`

	TotalDurationSeconds   float64 `json:"total_duration_seconds"`
	AverageDurationSeconds float64 `json:"average_duration_seconds"`
	TotalCost              float64 `json:"total_cost"`

	// Settled is true when every attempt reached a terminal status.
	Settled bool `json:"settled"`

	FirstCreatedAt *time.Time `json:"first_created_at,omitempty"`
	LastUpdatedAt  *time.Time `json:"last_updated_at,omitempty"`
}

type OwnerSummaryRequest struct {
	OwnerID string `json:"owner_id"`
	// Range is optional; a zero range covers everything.
	Range TimeRange `json:"range"`
}
