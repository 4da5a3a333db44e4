package calls

import (
	"context"
	"errors"
)

var (
	ErrNotFound        = errors.New("calls: not found")
	ErrInvalidArgument = errors.New("calls: invalid argument")
)

// Store persists CallAttempts. It carries no business logic.
//
// Writers:
// - the dial orchestrator (Create, Update: identifiers, status up to in-progress, error)
// - provider webhooks (UpsertByProviderKey: transcript, summary, final status, duration, cost)
//
// Concurrent writes to the same row are last-write-wins per field; the field sets are disjoint by convention.
type Store interface {
	// Create assigns ID and timestamps when empty and inserts the attempt.
	Create(ctx context.Context, a *CallAttempt) error
	Update(ctx context.Context, id string, p Patch) error
	Get(ctx context.Context, id string) (CallAttempt, error)

	// UpsertByProviderKey applies p to the attempt matched by key.
	// When nothing matches, seed (with p applied) is inserted as a new attempt.
	UpsertByProviderKey(ctx context.Context, key ProviderKey, p Patch, seed CallAttempt) (CallAttempt, error)

	// FindBySession returns the session's attempts in creation order.
	FindBySession(ctx context.Context, sessionID string) ([]CallAttempt, error)
	// FindByOwner returns the owner's attempts, newest first. limit <= 0 means no limit.
	FindByOwner(ctx context.Context, ownerID string, limit int) ([]CallAttempt, error)
}

func validateNew(a *CallAttempt) error {
	if a == nil || a.SessionID == "" || a.Phone == "" {
		return ErrInvalidArgument
	}
	if a.Status == "" {
		a.Status = StatusPending
	}
	if !a.Status.Valid() {
		return ErrInvalidArgument
	}
	return nil
}
