package dialer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
)

var (
	ErrNoNumbers = errors.New("dialer: numbers are required")
	ErrCapacity  = errors.New("dialer: too many sessions running")
)

// Request is the trigger contract: one request starts exactly one session.
type Request struct {
	Numbers         []string `json:"numbers"`
	MessageTemplate string   `json:"messageTemplate,omitempty"`
	OwnerID         string   `json:"ownerId,omitempty"`
	SourceID        string   `json:"sourceId,omitempty"`

	// UseAgent overrides the dispatcher default when set.
	UseAgent *bool `json:"useAgent,omitempty"`
}

// Runner runs one session to completion.
type Runner interface {
	Run(ctx context.Context, s Session)
}

// Limiter caps concurrently running sessions per owner. Acquire returns a
// release func or ErrCapacity.
type Limiter interface {
	Acquire(ctx context.Context, ownerID string) (release func(), err error)
}

// Dispatcher starts sessions in the background and returns their id at once.
// Sessions report progress only through the call record store.
type Dispatcher struct {
	runner   Runner
	pool     *ants.Pool
	limiter  Limiter
	useAgent bool
	log      *slog.Logger

	newID func() string
}

// NewDispatcher creates a dispatcher running at most workers sessions at a time.
// limiter may be nil.
func NewDispatcher(runner Runner, workers int, limiter Limiter, useAgent bool, log *slog.Logger) (*Dispatcher, error) {
	if log == nil {
		log = slog.Default()
	}
	if workers <= 0 {
		workers = 16
	}
	panicHandler := func(p any) {
		log.Error("panic in dial session", "panic", fmt.Sprint(p))
	}
	pool, err := ants.NewPool(workers, ants.WithNonblocking(true), ants.WithPanicHandler(panicHandler))
	if err != nil {
		return nil, fmt.Errorf("dialer: worker pool: %w", err)
	}
	return &Dispatcher{
		runner:   runner,
		pool:     pool,
		limiter:  limiter,
		useAgent: useAgent,
		log:      log,
		newID:    uuid.NewString,
	}, nil
}

// Dispatch validates req, starts its session and returns the session id.
// The session outlives ctx; only its values (logger, request id) are kept.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (string, error) {
	numbers := make([]string, 0, len(req.Numbers))
	for _, n := range req.Numbers {
		if strings.TrimSpace(n) != "" {
			numbers = append(numbers, n)
		}
	}
	if len(numbers) == 0 {
		return "", ErrNoNumbers
	}

	release := func() {}
	if d.limiter != nil && req.OwnerID != "" {
		r, err := d.limiter.Acquire(ctx, req.OwnerID)
		if err != nil {
			return "", err
		}
		release = r
	}

	s := Session{
		ID:              d.newID(),
		Numbers:         numbers,
		MessageTemplate: req.MessageTemplate,
		OwnerID:         req.OwnerID,
		SourceID:        req.SourceID,
		UseAgent:        d.useAgent,
	}
	if req.UseAgent != nil {
		s.UseAgent = *req.UseAgent
	}

	runCtx := context.WithoutCancel(ctx)
	err := d.pool.Submit(func() {
		defer release()
		d.runner.Run(runCtx, s)
	})
	if err != nil {
		release()
		if errors.Is(err, ants.ErrPoolOverload) {
			return "", ErrCapacity
		}
		return "", fmt.Errorf("dialer: submit session: %w", err)
	}

	d.log.Info("dial session dispatched", "session_id", s.ID, "owner_id", s.OwnerID, "numbers", len(numbers))
	return s.ID, nil
}

// Running reports the number of sessions in flight.
func (d *Dispatcher) Running() int { return d.pool.Running() }

// Shutdown stops accepting sessions and waits up to timeout for running ones.
func (d *Dispatcher) Shutdown(timeout time.Duration) error {
	return d.pool.ReleaseTimeout(timeout)
}
