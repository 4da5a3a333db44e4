// Package dialer runs dial sessions: one strictly sequential pass over a
// batch of numbers that synthesizes a message, places a call and attaches
// a conversational agent for each valid number.
package dialer

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"voice-dialer/internal/agent"
	"voice-dialer/internal/calls"
	"voice-dialer/internal/phone"
	"voice-dialer/internal/telephony"
	"voice-dialer/pkg/logger"
)

// DefaultMessage is spoken when a session has no template.
const DefaultMessage = "Hello, this is a voice call."

// numberPlaceholder in a template is replaced with the canonical number.
const numberPlaceholder = "{{number}}"

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (string, error)
}

type Agent interface {
	AttachAgent(ctx context.Context, call telephony.CallHandle, md calls.Correlation) (agent.Handle, error)
}

// Session is one batch of numbers dialed together.
type Session struct {
	ID              string
	Numbers         []string
	MessageTemplate string
	OwnerID         string
	SourceID        string
	UseAgent        bool
}

type Options struct {
	DefaultRegion string
	PublicBaseURL string

	// Pacing is applied after every dialed number. Invalid and duplicate
	// inputs are skipped without a pause.
	Pacing time.Duration
	// ProviderTimeout bounds each synthesis, telephony and agent call.
	ProviderTimeout time.Duration
}

// Orchestrator processes sessions. It holds no per-session state and is
// safe to share between concurrently running sessions.
type Orchestrator struct {
	store     calls.Store
	speech    Synthesizer
	telephony telephony.Provider
	agent     Agent
	opts      Options
	log       *slog.Logger

	normalize func(raw, region string) (string, bool)
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator wires the adapters. agent may be nil; sessions then skip attachment.
func NewOrchestrator(store calls.Store, speech Synthesizer, tel telephony.Provider, ag Agent, opts Options, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = 15 * time.Second
	}
	return &Orchestrator{
		store:     store,
		speech:    speech,
		telephony: tel,
		agent:     ag,
		opts:      opts,
		log:       log,
		normalize: phone.Normalize,
		sleep:     sleepCtx,
	}
}

// Run processes every number of s in order. It never returns an error:
// outcomes are recorded on the CallAttempts and in logs. Run stops early
// only when ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context, s Session) {
	log := o.log.With("session_id", s.ID)
	if rid := logger.RequestID(ctx); rid != "" {
		log = log.With("request_id", rid)
	}
	started := time.Now()
	log.Info("dial session started", "numbers", len(s.Numbers), "use_agent", s.UseAgent)

	seen := make(map[string]bool, len(s.Numbers))
	for _, raw := range s.Numbers {
		if ctx.Err() != nil {
			log.Warn("dial session cancelled", "err", ctx.Err())
			return
		}

		to, ok := o.normalize(raw, o.opts.DefaultRegion)
		if !ok {
			log.Info("skipping invalid number", "raw_phone", raw)
			continue
		}
		if seen[to] {
			log.Info("skipping duplicate number", "phone", to, "raw_phone", raw)
			continue
		}
		seen[to] = true
		o.dialOne(ctx, log, s, raw, to)

		if err := o.sleep(ctx, o.opts.Pacing); err != nil {
			log.Warn("dial session cancelled", "err", err)
			return
		}
	}

	log.Info("dial session finished", "duration_ms", time.Since(started).Milliseconds())
}

func (o *Orchestrator) dialOne(ctx context.Context, log *slog.Logger, s Session, raw, to string) {
	rec := &calls.CallAttempt{
		SessionID: s.ID,
		OwnerID:   s.OwnerID,
		SourceID:  s.SourceID,
		Phone:     to,
		RawPhone:  raw,
		Status:    calls.StatusPending,
	}
	if err := o.store.Create(ctx, rec); err != nil {
		// Without a record the call could not be tracked; do not place it.
		log.Error("create call attempt failed", "phone", to, "err", err)
		return
	}
	log = log.With("call_attempt_id", rec.ID, "phone", to)

	text := Render(s.MessageTemplate, to)

	sctx, cancel := context.WithTimeout(ctx, o.opts.ProviderTimeout)
	ref, err := o.speech.Synthesize(sctx, text)
	cancel()
	if err != nil {
		log.Warn("speech synthesis failed", "err", err)
		return
	}
	audioURL := ResolveAudioURL(o.opts.PublicBaseURL, ref)

	tctx, cancel := context.WithTimeout(ctx, o.opts.ProviderTimeout)
	call, err := o.telephony.PlaceCall(tctx, to, audioURL)
	cancel()
	if err != nil {
		log.Warn("place call failed", "provider", o.telephony.Name(), "err", err)
		return
	}
	rec.TelephonyCallID = call.ID
	if err := o.store.Update(ctx, rec.ID, calls.Patch{
		TelephonyCallID: calls.Ptr(call.ID),
		Status:          calls.Ptr(calls.StatusInProgress),
	}); err != nil {
		log.Error("record telephony call failed", "call_sid", call.ID, "err", err)
	}
	log.Info("call placed", "call_sid", call.ID)

	if !s.UseAgent || o.agent == nil {
		return
	}

	actx, cancel := context.WithTimeout(ctx, o.opts.ProviderTimeout)
	h, err := o.agent.AttachAgent(actx, call, calls.CorrelationFor(*rec))
	cancel()
	if err != nil {
		log.Warn("agent attach failed", "err", err)
		if uerr := o.store.Update(ctx, rec.ID, calls.Patch{Error: calls.Ptr("agent attach failed: " + err.Error())}); uerr != nil {
			log.Error("record agent error failed", "err", uerr)
		}
		return
	}
	if err := o.store.Update(ctx, rec.ID, calls.Patch{
		AgentCallID: calls.Ptr(h.ID),
		AgentID:     calls.Ptr(h.AgentID),
	}); err != nil {
		log.Error("record agent call failed", "agent_call_id", h.ID, "err", err)
		return
	}
	log.Info("agent attached", "agent_call_id", h.ID)
}

// Render substitutes the canonical number into the template.
func Render(template, number string) string {
	if strings.TrimSpace(template) == "" {
		return DefaultMessage
	}
	return strings.ReplaceAll(template, numberPlaceholder, number)
}

// ResolveAudioURL prefixes relative references with the public base URL.
// Absolute references (object storage) are returned unchanged.
func ResolveAudioURL(base, ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(ref, "/")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
