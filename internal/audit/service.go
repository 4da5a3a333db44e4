package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
//
// IMPORTANT:
// - Audit is internal-only. These records are not exposed over the read API.
// - Callers should treat audit logging as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}
	if e.Type == EventTypeSessionDispatched && e.SessionID == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// SessionDispatched records an accepted trigger.
func (s *Service) SessionDispatched(ctx context.Context, actor Actor, sessionID, sourceID string, numbers int) error {
	return s.Append(ctx, Event{
		Type:        EventTypeSessionDispatched,
		ActorUserID: actor.UserID,
		ActorRole:   actor.Role,
		IPAddress:   actor.IP,
		SessionID:   sessionID,
		SourceID:    sourceID,
		NumberCount: numbers,
		Message:     "dial session dispatched",
	})
}

// SessionRejected records a trigger refused for capacity or input reasons.
func (s *Service) SessionRejected(ctx context.Context, actor Actor, sourceID string, numbers int, reason string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeSessionRejected,
		ActorUserID: actor.UserID,
		ActorRole:   actor.Role,
		IPAddress:   actor.IP,
		SourceID:    sourceID,
		NumberCount: numbers,
		Message:     reason,
	})
}
