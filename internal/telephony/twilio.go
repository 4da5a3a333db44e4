package telephony

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"voice-dialer/internal/config"
	"voice-dialer/internal/provider"

	"github.com/twilio/twilio-go"
	"github.com/twilio/twilio-go/client"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
)

const twilioName = "twilio"

// StatusCallbackPath is where Twilio posts call progress for calls we place.
const StatusCallbackPath = "/webhooks/twilio/status"

// callCreator is the slice of the Twilio REST API the adapter uses.
type callCreator interface {
	CreateCall(params *twilioapi.CreateCallParams) (*twilioapi.ApiV2010Call, error)
}

// TwilioProvider places calls through the Twilio REST API with inline TwiML.
type TwilioProvider struct {
	cfg config.TwilioConfig
	api callCreator
	log *slog.Logger

	// statusCallback is empty when no public base URL is known.
	statusCallback string
}

func NewTwilioProvider(cfg config.TwilioConfig, publicBaseURL string, timeout time.Duration, log *slog.Logger) *TwilioProvider {
	if log == nil {
		log = slog.Default()
	}
	p := &TwilioProvider{cfg: cfg, log: log}
	if publicBaseURL != "" {
		p.statusCallback = publicBaseURL + StatusCallbackPath
	}
	if cfg.AccountSID != "" && cfg.AuthToken != "" {
		c := &client.Client{
			Credentials: client.NewCredentials(cfg.AccountSID, cfg.AuthToken),
			HTTPClient:  &http.Client{Timeout: timeout},
		}
		c.SetAccountSid(cfg.AccountSID)
		rc := twilio.NewRestClientWithParams(twilio.ClientParams{
			Username:   cfg.AccountSID,
			Password:   cfg.AuthToken,
			AccountSid: cfg.AccountSID,
			Client:     c,
		})
		p.api = rc.Api
	}
	return p
}

func (p *TwilioProvider) Name() string { return twilioName }

func (p *TwilioProvider) PlaceCall(ctx context.Context, to, audioURL string) (CallHandle, error) {
	if !p.cfg.Configured() || p.api == nil {
		return CallHandle{}, provider.Configuration(twilioName, "TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_PHONE_NUMBER must be set")
	}
	twiml, err := PlayTwiML(audioURL)
	if err != nil {
		return CallHandle{}, &provider.Error{Provider: twilioName, Kind: provider.KindRejected, Message: err.Error(), Err: err}
	}
	// The REST client has no context support; honour cancellation before dialing.
	if err := ctx.Err(); err != nil {
		return CallHandle{}, provider.Transport(twilioName, err)
	}

	params := &twilioapi.CreateCallParams{}
	params.SetTo(to)
	params.SetFrom(p.cfg.FromNumber)
	params.SetTwiml(twiml)
	if p.statusCallback != "" {
		params.SetStatusCallback(p.statusCallback)
		params.SetStatusCallbackMethod(http.MethodPost)
		params.SetStatusCallbackEvent([]string{"initiated", "ringing", "answered", "completed"})
	}

	call, err := p.api.CreateCall(params)
	if err != nil {
		p.log.Warn("twilio create call failed", "account_sid", MaskSID(p.cfg.AccountSID), "to", to, "err", err)
		return CallHandle{}, twilioError(err)
	}
	if call == nil || call.Sid == nil || *call.Sid == "" {
		return CallHandle{}, &provider.Error{Provider: twilioName, Kind: provider.KindRejected, Message: "response carried no call sid"}
	}

	p.log.Debug("twilio call created", "account_sid", MaskSID(p.cfg.AccountSID), "call_sid", *call.Sid, "to", to)
	return CallHandle{ID: *call.Sid, From: p.cfg.FromNumber, To: to, AccountID: p.cfg.AccountSID}, nil
}

func twilioError(err error) error {
	var rest *client.TwilioRestError
	if errors.As(err, &rest) {
		pe := provider.FromStatus(twilioName, rest.Status, rest.Message)
		pe.Err = err
		return pe
	}
	return provider.Transport(twilioName, err)
}

// MaskSID keeps the first and last four characters of an account SID.
func MaskSID(sid string) string {
	if len(sid) <= 8 {
		return "****"
	}
	return sid[:4] + "..." + sid[len(sid)-4:]
}
