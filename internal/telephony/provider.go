package telephony

import (
	"context"
)

// Provider places outbound calls that play a single audio clip.
//
// Rules:
// - No provider SDK calls outside telephony adapters.
// - PlaceCall is billable and irreversible; adapters never retry it.
// - Failures are returned as *provider.Error.
type Provider interface {
	Name() string
	PlaceCall(ctx context.Context, to, audioURL string) (CallHandle, error)
}

// CallHandle is the provider's acknowledgement of an accepted call.
type CallHandle struct {
	// ID is the provider-assigned call identifier.
	ID string `json:"id"`

	// From and To are E.164.
	From string `json:"from"`
	To   string `json:"to"`

	// AccountID is the provider account that placed the call, when known.
	AccountID string `json:"account_id,omitempty"`
}
