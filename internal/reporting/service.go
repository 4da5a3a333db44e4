package reporting

import (
	"context"
	"errors"

	"voice-dialer/internal/calls"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository is the read side of the call record store.
type Repository interface {
	FindBySession(ctx context.Context, sessionID string) ([]calls.CallAttempt, error)
	FindByOwner(ctx context.Context, ownerID string, limit int) ([]calls.CallAttempt, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func (s *Service) SessionSummary(ctx context.Context, sessionID string) (CallsSummary, error) {
	if sessionID == "" {
		return CallsSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return CallsSummary{}, errors.New("reporting: repository not configured")
	}
	rows, err := s.repo.FindBySession(ctx, sessionID)
	if err != nil {
		return CallsSummary{}, err
	}
	if len(rows) == 0 {
		return CallsSummary{}, calls.ErrNotFound
	}
	out := Summarize(rows)
	out.SessionID = sessionID
	return out, nil
}

func (s *Service) OwnerSummary(ctx context.Context, req OwnerSummaryRequest) (CallsSummary, error) {
	if req.OwnerID == "" {
		return CallsSummary{}, ErrInvalidRequest
	}
	bounded := !req.Range.From.IsZero() || !req.Range.To.IsZero()
	if bounded && (req.Range.From.IsZero() || req.Range.To.IsZero() || !req.Range.To.After(req.Range.From)) {
		return CallsSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return CallsSummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.FindByOwner(ctx, req.OwnerID, 0)
	if err != nil {
		return CallsSummary{}, err
	}
	if bounded {
		kept := rows[:0]
		for _, a := range rows {
			if a.CreatedAt.Before(req.Range.From) || !a.CreatedAt.Before(req.Range.To) {
				continue
			}
			kept = append(kept, a)
		}
		rows = kept
	}
	out := Summarize(rows)
	out.OwnerID = req.OwnerID
	return out, nil
}

// Summarize aggregates attempts in any order.
func Summarize(rows []calls.CallAttempt) CallsSummary {
	var out CallsSummary
	for _, a := range rows {
		out.TotalAttempts++
		out.TotalDurationSeconds += a.DurationSeconds
		out.TotalCost += a.Cost
		if a.Error != "" {
			out.AttemptsWithErrors++
		}
		if a.AgentCallID != "" {
			out.AgentAttached++
		}
		if a.Transcript != "" {
			out.Transcribed++
		}
		switch a.Status {
		case calls.StatusPending:
			out.PendingCalls++
		case calls.StatusInProgress:
			out.InProgressCalls++
		case calls.StatusCompleted:
			out.CompletedCalls++
		case calls.StatusFailed:
			out.FailedCalls++
		}

		created, updated := a.CreatedAt, a.UpdatedAt
		if out.FirstCreatedAt == nil || created.Before(*out.FirstCreatedAt) {
			out.FirstCreatedAt = &created
		}
		if out.LastUpdatedAt == nil || updated.After(*out.LastUpdatedAt) {
			out.LastUpdatedAt = &updated
		}
	}
	ended := out.CompletedCalls + out.FailedCalls
	if out.CompletedCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / float64(out.CompletedCalls)
	}
	out.Settled = out.TotalAttempts > 0 && ended == out.TotalAttempts
	return out
}
