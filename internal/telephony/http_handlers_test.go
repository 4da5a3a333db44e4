package telephony

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"voice-dialer/internal/calls"

	"github.com/gin-gonic/gin"
	"github.com/twilio/twilio-go/client"
)

func newStatusRouter(h TwilioStatusHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST(StatusCallbackPath, h.HandleStatus)
	return r
}

func postStatus(r http.Handler, form url.Values, sig string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, StatusCallbackPath, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if sig != "" {
		req.Header.Set(headerTwilioSignature, sig)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTwilioStatusHandler_AppliesCompleted(t *testing.T) {
	ctx := context.Background()
	store := calls.NewMemoryStore()
	a := &calls.CallAttempt{SessionID: "s1", Phone: "+14155550123", TelephonyCallID: "CA1", Status: calls.StatusInProgress}
	if err := store.Create(ctx, a); err != nil {
		t.Fatalf("create: %v", err)
	}
	r := newStatusRouter(TwilioStatusHandler{Events: calls.NewEvents(store)})

	w := postStatus(r, url.Values{"CallSid": {"CA1"}, "CallStatus": {"completed"}, "CallDuration": {"17"}}, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", w.Code, w.Body.String())
	}
	got, err := store.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != calls.StatusCompleted || got.DurationSeconds != 17 {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestTwilioStatusHandler_UnknownCallIsAcknowledged(t *testing.T) {
	r := newStatusRouter(TwilioStatusHandler{Events: calls.NewEvents(calls.NewMemoryStore())})
	w := postStatus(r, url.Values{"CallSid": {"CA404"}, "CallStatus": {"busy"}}, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
}

func TestTwilioStatusHandler_Signature(t *testing.T) {
	const token = "test-auth-token"
	const base = "https://dialer.example.com"
	store := calls.NewMemoryStore()
	r := newStatusRouter(TwilioStatusHandler{Events: calls.NewEvents(store), AuthToken: token, PublicBaseURL: base})

	form := url.Values{"CallSid": {"CA1"}, "CallStatus": {"ringing"}}
	if w := postStatus(r, form, ""); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without signature, got %d", w.Code)
	}
	if w := postStatus(r, form, "bogus"); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for bad signature, got %d", w.Code)
	}

	params := map[string]string{"CallSid": "CA1", "CallStatus": "ringing"}
	sig, err := signTwilio(token, base+StatusCallbackPath, params)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	v := client.NewRequestValidator(token)
	if !v.Validate(base+StatusCallbackPath, params, sig) {
		t.Fatalf("test signature does not validate")
	}
	if w := postStatus(r, form, sig); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 with valid signature, got %d", w.Code)
	}
}
