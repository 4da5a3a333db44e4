package telephony

import (
	"context"
	"log/slog"
	"sync"

	"voice-dialer/internal/provider"

	"github.com/google/uuid"
)

// DryRunProvider accepts every call without dialing. It is meant for local
// development and rehearsing a batch; configuration refuses it in production.
type DryRunProvider struct {
	From string
	Log  *slog.Logger

	mu    sync.Mutex
	calls []CallHandle
}

func (p *DryRunProvider) Name() string { return "dryrun" }

func (p *DryRunProvider) PlaceCall(ctx context.Context, to, audioURL string) (CallHandle, error) {
	if err := ctx.Err(); err != nil {
		return CallHandle{}, provider.Transport(p.Name(), err)
	}
	if _, err := PlayTwiML(audioURL); err != nil {
		return CallHandle{}, &provider.Error{Provider: p.Name(), Kind: provider.KindRejected, Message: err.Error(), Err: err}
	}
	h := CallHandle{ID: "DRY" + uuid.NewString(), From: p.From, To: to}

	p.mu.Lock()
	p.calls = append(p.calls, h)
	p.mu.Unlock()

	if p.Log != nil {
		p.Log.Info("dry-run call", "call_sid", h.ID, "to", to, "audio_url", audioURL)
	}
	return h, nil
}

// Calls returns the calls accepted so far.
func (p *DryRunProvider) Calls() []CallHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]CallHandle(nil), p.calls...)
}
