package telephony

import (
	"net/http"
	"strconv"
	"strings"

	"voice-dialer/internal/calls"
)

// TwilioStatusForm captures the subset of status callback fields we care about.
// Twilio sends application/x-www-form-urlencoded by default.
// Ref: https://www.twilio.com/docs/voice/api/call-resource#statuscallback
type TwilioStatusForm struct {
	CallSid      string
	AccountSid   string
	From         string
	To           string
	Direction    string
	CallStatus   string
	CallDuration string
	Timestamp    string
}

func ParseTwilioStatusCallback(r *http.Request) (TwilioStatusForm, error) {
	if err := r.ParseForm(); err != nil {
		return TwilioStatusForm{}, err
	}
	return TwilioStatusForm{
		CallSid:      r.PostFormValue("CallSid"),
		AccountSid:   r.PostFormValue("AccountSid"),
		From:         strings.TrimSpace(r.PostFormValue("From")),
		To:           strings.TrimSpace(r.PostFormValue("To")),
		Direction:    r.PostFormValue("Direction"),
		CallStatus:   r.PostFormValue("CallStatus"),
		CallDuration: r.PostFormValue("CallDuration"),
		Timestamp:    r.PostFormValue("Timestamp"),
	}, nil
}

// MapCallStatus maps a Twilio CallStatus onto the attempt lifecycle.
// queued, initiated and ringing carry no new information and report false.
func MapCallStatus(s string) (calls.Status, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "answered", "in-progress":
		return calls.StatusInProgress, true
	case "completed":
		return calls.StatusCompleted, true
	case "busy", "no-answer", "failed", "canceled":
		return calls.StatusFailed, true
	default:
		return "", false
	}
}

// ToStatusUpdate reports false when the callback does not move the attempt.
func (f TwilioStatusForm) ToStatusUpdate() (calls.TelephonyStatusUpdate, bool) {
	st, ok := MapCallStatus(f.CallStatus)
	if !ok || f.CallSid == "" {
		return calls.TelephonyStatusUpdate{}, false
	}
	u := calls.TelephonyStatusUpdate{TelephonyCallID: f.CallSid, Status: st}
	if f.CallDuration != "" {
		if d, err := strconv.ParseFloat(f.CallDuration, 64); err == nil && d >= 0 {
			u.DurationSeconds = &d
		}
	}
	return u, true
}
