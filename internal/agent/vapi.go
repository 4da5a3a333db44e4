// Package agent attaches a conversational-AI session to a placed telephony call.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"voice-dialer/internal/calls"
	"voice-dialer/internal/config"
	"voice-dialer/internal/provider"
	"voice-dialer/internal/telephony"
)

const providerName = "vapi"

// Handle identifies the agent-side session.
type Handle struct {
	ID      string `json:"id"`
	AgentID string `json:"agent_id"`
}

// Linkage names the call-origination scheme used for a request.
type Linkage string

const (
	LinkageManagedNumber Linkage = "managed-number"
	LinkageTelephony     Linkage = "telephony-context"
	LinkagePhoneOnly     Linkage = "phone-only"
	LinkageNone          Linkage = "none"
)

type customer struct {
	Number string `json:"number,omitempty"`
	Name   string `json:"name,omitempty"`
}

type telephonyContext struct {
	TwilioPhoneNumber string `json:"twilioPhoneNumber"`
	TwilioAccountSid  string `json:"twilioAccountSid"`
}

type callRequest struct {
	AssistantID   string            `json:"assistantId"`
	PhoneNumberID string            `json:"phoneNumberId,omitempty"`
	PhoneNumber   *telephonyContext `json:"phoneNumber,omitempty"`
	Customer      *customer         `json:"customer,omitempty"`
	Metadata      calls.Correlation `json:"metadata"`
}

type callResponse struct {
	ID     string `json:"id"`
	CallID string `json:"callId"`
}

type errorResponse struct {
	Message any `json:"message"`
}

// Vapi starts Vapi calls correlated with a telephony call.
type Vapi struct {
	cfg    config.VapiConfig
	twilio config.TwilioConfig
	HTTP   *http.Client
}

func NewVapi(cfg config.VapiConfig, twilio config.TwilioConfig, timeout time.Duration) *Vapi {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Vapi{cfg: cfg, twilio: twilio, HTTP: &http.Client{Timeout: timeout}}
}

func (v *Vapi) AttachAgent(ctx context.Context, call telephony.CallHandle, md calls.Correlation) (Handle, error) {
	if v.cfg.APIKey == "" || v.cfg.AssistantID == "" {
		return Handle{}, provider.Configuration(providerName, "VAPI_API_KEY and VAPI_ASSISTANT_ID must be set")
	}
	if md.TelephonyCallID == "" {
		md.TelephonyCallID = call.ID
	}

	req, _ := v.buildRequest(call, md)
	body, err := json.Marshal(req)
	if err != nil {
		return Handle{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(v.cfg.BaseURL, "/")+"/call", bytes.NewReader(body))
	if err != nil {
		return Handle{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+v.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := v.HTTP.Do(httpReq)
	if err != nil {
		return Handle{}, provider.Transport(providerName, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Handle{}, provider.FromStatus(providerName, resp.StatusCode, errorMessage(raw))
	}

	var out callResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return Handle{}, &provider.Error{Provider: providerName, Kind: provider.KindRejected, Status: resp.StatusCode, Message: "invalid response body", Err: err}
	}
	id := out.ID
	if id == "" {
		id = out.CallID
	}
	if id == "" {
		return Handle{}, &provider.Error{Provider: providerName, Kind: provider.KindRejected, Status: resp.StatusCode, Message: "response carried no call id"}
	}
	return Handle{ID: id, AgentID: v.cfg.AssistantID}, nil
}

// buildRequest applies the linkage policy, first match wins:
// a provider-managed number id, then Twilio context, then the bare phone, then nothing.
func (v *Vapi) buildRequest(call telephony.CallHandle, md calls.Correlation) (callRequest, Linkage) {
	req := callRequest{AssistantID: v.cfg.AssistantID, Metadata: md}

	phone := md.Phone
	if phone == "" {
		phone = call.To
	}
	if phone == "" {
		return req, LinkageNone
	}
	req.Customer = &customer{Number: phone, Name: "Customer " + phone}

	switch {
	case v.cfg.PhoneNumberID != "":
		req.PhoneNumberID = v.cfg.PhoneNumberID
		return req, LinkageManagedNumber
	case v.twilio.Configured():
		accountSID := call.AccountID
		if accountSID == "" {
			accountSID = v.twilio.AccountSID
		}
		from := call.From
		if from == "" {
			from = v.twilio.FromNumber
		}
		req.PhoneNumber = &telephonyContext{TwilioPhoneNumber: from, TwilioAccountSid: accountSID}
		return req, LinkageTelephony
	default:
		return req, LinkagePhoneOnly
	}
}

func errorMessage(raw []byte) string {
	var e errorResponse
	if err := json.Unmarshal(raw, &e); err == nil && e.Message != nil {
		switch m := e.Message.(type) {
		case string:
			return m
		case []any:
			parts := make([]string, 0, len(m))
			for _, p := range m {
				if s, ok := p.(string); ok {
					parts = append(parts, s)
				}
			}
			return strings.Join(parts, "; ")
		}
	}
	return strings.TrimSpace(string(raw))
}
