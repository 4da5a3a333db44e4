package calls

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a simple in-memory Store for tests and the operator CLI.
// It is not intended for production use.
type MemoryStore struct {
	mu       sync.Mutex
	attempts []CallAttempt

	clock func() time.Time
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{clock: time.Now} }

func (s *MemoryStore) Create(ctx context.Context, a *CallAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(a)
}

// createLocked inserts a; s.mu must be held.
func (s *MemoryStore) createLocked(a *CallAttempt) error {
	if err := validateNew(a); err != nil {
		return err
	}
	now := s.clock().UTC()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	s.attempts = append(s.attempts, *a)
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, p Patch) error {
	if id == "" {
		return ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.attempts {
		if s.attempts[i].ID == id {
			p.apply(&s.attempts[i])
			s.attempts[i].UpdatedAt = s.clock().UTC()
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) Get(ctx context.Context, id string) (CallAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.attempts {
		if a.ID == id {
			return a, nil
		}
	}
	return CallAttempt{}, ErrNotFound
}

func (s *MemoryStore) UpsertByProviderKey(ctx context.Context, key ProviderKey, p Patch, seed CallAttempt) (CallAttempt, error) {
	if key.Empty() {
		return CallAttempt{}, ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.attempts {
		if key.matches(s.attempts[i]) {
			p.apply(&s.attempts[i])
			s.attempts[i].UpdatedAt = s.clock().UTC()
			return s.attempts[i], nil
		}
	}

	p.apply(&seed)
	if err := s.createLocked(&seed); err != nil {
		return CallAttempt{}, err
	}
	return seed, nil
}

func (s *MemoryStore) FindBySession(ctx context.Context, sessionID string) ([]CallAttempt, error) {
	if sessionID == "" {
		return nil, ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CallAttempt, 0)
	for _, a := range s.attempts {
		if a.SessionID == sessionID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *MemoryStore) FindByOwner(ctx context.Context, ownerID string, limit int) ([]CallAttempt, error) {
	if ownerID == "" {
		return nil, ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CallAttempt, 0)
	for i := len(s.attempts) - 1; i >= 0; i-- {
		if s.attempts[i].OwnerID != ownerID {
			continue
		}
		out = append(out, s.attempts[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
