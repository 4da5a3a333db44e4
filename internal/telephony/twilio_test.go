package telephony

import (
	"context"
	"errors"
	"strings"
	"testing"

	"voice-dialer/internal/config"
	"voice-dialer/internal/provider"

	"github.com/twilio/twilio-go/client"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
)

type fakeCreator struct {
	params *twilioapi.CreateCallParams
	sid    string
	err    error
}

func (f *fakeCreator) CreateCall(p *twilioapi.CreateCallParams) (*twilioapi.ApiV2010Call, error) {
	f.params = p
	if f.err != nil {
		return nil, f.err
	}
	sid := f.sid
	return &twilioapi.ApiV2010Call{Sid: &sid}, nil
}

func testTwilioConfig() config.TwilioConfig {
	return config.TwilioConfig{
		Provider:   config.TelephonyTwilio,
		AccountSID: "AC0123456789abcdef0123456789abcdef",
		AuthToken:  "token",
		FromNumber: "+15005550006",
	}
}

func TestTwilioProvider_PlaceCall(t *testing.T) {
	fake := &fakeCreator{sid: "CA42"}
	p := NewTwilioProvider(testTwilioConfig(), "https://dialer.example.com", 0, nil)
	p.api = fake

	h, err := p.PlaceCall(context.Background(), "+14155550123", "https://dialer.example.com/audio/eleven_1.mp3")
	if err != nil {
		t.Fatalf("place call: %v", err)
	}
	if h.ID != "CA42" || h.To != "+14155550123" || h.From != "+15005550006" {
		t.Fatalf("unexpected handle: %+v", h)
	}
	if *fake.params.To != "+14155550123" || *fake.params.From != "+15005550006" {
		t.Fatalf("unexpected to/from")
	}
	if !strings.Contains(*fake.params.Twiml, "<Play>https://dialer.example.com/audio/eleven_1.mp3</Play>") {
		t.Fatalf("unexpected twiml: %s", *fake.params.Twiml)
	}
	if *fake.params.StatusCallback != "https://dialer.example.com/webhooks/twilio/status" {
		t.Fatalf("unexpected status callback: %s", *fake.params.StatusCallback)
	}
}

func TestTwilioProvider_MissingCredentials(t *testing.T) {
	cfg := testTwilioConfig()
	cfg.AuthToken = ""
	p := NewTwilioProvider(cfg, "", 0, nil)
	_, err := p.PlaceCall(context.Background(), "+14155550123", "https://x/audio/a.mp3")
	if !provider.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestTwilioProvider_UnauthorizedIsDistinguished(t *testing.T) {
	p := NewTwilioProvider(testTwilioConfig(), "", 0, nil)
	p.api = &fakeCreator{err: &client.TwilioRestError{Code: 20003, Status: 401, Message: "Authenticate"}}

	_, err := p.PlaceCall(context.Background(), "+14155550123", "https://x/audio/a.mp3")
	if !provider.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	var rest *client.TwilioRestError
	if !errors.As(err, &rest) {
		t.Fatalf("expected the rest error to stay reachable")
	}
}

func TestTwilioProvider_RejectedAndTransport(t *testing.T) {
	p := NewTwilioProvider(testTwilioConfig(), "", 0, nil)

	p.api = &fakeCreator{err: &client.TwilioRestError{Code: 21211, Status: 400, Message: "Invalid 'To' Phone Number"}}
	if _, err := p.PlaceCall(context.Background(), "+1", "https://x/a.mp3"); !provider.IsKind(err, provider.KindRejected) {
		t.Fatalf("expected rejected, got %v", err)
	}

	p.api = &fakeCreator{err: errors.New("dial tcp: connection refused")}
	if _, err := p.PlaceCall(context.Background(), "+14155550123", "https://x/a.mp3"); !provider.IsKind(err, provider.KindUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestTwilioProvider_RelativeAudioURLNeverDials(t *testing.T) {
	fake := &fakeCreator{sid: "CA1"}
	p := NewTwilioProvider(testTwilioConfig(), "", 0, nil)
	p.api = fake
	if _, err := p.PlaceCall(context.Background(), "+14155550123", "/audio/a.mp3"); err == nil {
		t.Fatalf("expected error")
	}
	if fake.params != nil {
		t.Fatalf("CreateCall must not be reached")
	}
}

func TestMaskSID(t *testing.T) {
	if got := MaskSID("AC0123456789abcdef0123456789abcdef"); got != "AC01...cdef" {
		t.Fatalf("unexpected mask %q", got)
	}
	if got := MaskSID("short"); got != "****" {
		t.Fatalf("unexpected mask %q", got)
	}
}

func TestDryRunProvider(t *testing.T) {
	p := &DryRunProvider{From: "+15005550006"}
	h, err := p.PlaceCall(context.Background(), "+14155550123", "http://localhost:8080/audio/a.mp3")
	if err != nil {
		t.Fatalf("place call: %v", err)
	}
	if !strings.HasPrefix(h.ID, "DRY") || len(p.Calls()) != 1 {
		t.Fatalf("unexpected dry run state: %+v", h)
	}
	var _ Provider = p
	var _ Provider = (*TwilioProvider)(nil)
}
