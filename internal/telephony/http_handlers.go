package telephony

import (
	"context"
	"errors"
	"net/http"

	"voice-dialer/internal/calls"
	"voice-dialer/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/twilio/twilio-go/client"
)

const headerTwilioSignature = "X-Twilio-Signature"

// StatusApplier is the webhook collaborator writing telephony status into the store.
type StatusApplier interface {
	TelephonyStatus(ctx context.Context, u calls.TelephonyStatusUpdate) (calls.CallAttempt, error)
}

// TwilioStatusHandler converts Twilio status callbacks to attempt updates.
//
// No business logic here.
type TwilioStatusHandler struct {
	Events StatusApplier

	// AuthToken enables X-Twilio-Signature validation when set.
	AuthToken string
	// PublicBaseURL is the origin Twilio was given; signatures are computed over it.
	PublicBaseURL string
}

func (h TwilioStatusHandler) HandleStatus(c *gin.Context) {
	log := logger.FromGin(c)

	if h.Events == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "status handler not configured"})
		return
	}

	form, err := ParseTwilioStatusCallback(c.Request)
	if err != nil {
		log.Warn("twilio status parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}

	if h.AuthToken != "" && !h.validSignature(c) {
		log.Warn("twilio signature rejected", "call_sid", form.CallSid)
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid signature"})
		return
	}

	u, ok := form.ToStatusUpdate()
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}

	a, err := h.Events.TelephonyStatus(c.Request.Context(), u)
	switch {
	case errors.Is(err, calls.ErrNotFound):
		// Calls placed outside this service share the account; acknowledge so Twilio stops retrying.
		log.Info("twilio status for unknown call", "call_sid", form.CallSid, "status", form.CallStatus)
		c.Status(http.StatusNoContent)
		return
	case err != nil:
		log.Error("twilio status apply failed", "call_sid", form.CallSid, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}

	log.Info("twilio status applied", "call_attempt_id", a.ID, "call_sid", form.CallSid, "status", a.Status)
	c.Status(http.StatusNoContent)
}

func (h TwilioStatusHandler) validSignature(c *gin.Context) bool {
	sig := c.GetHeader(headerTwilioSignature)
	if sig == "" {
		return false
	}
	url := h.PublicBaseURL + c.Request.URL.RequestURI()

	params := make(map[string]string, len(c.Request.PostForm))
	for k, v := range c.Request.PostForm {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	v := client.NewRequestValidator(h.AuthToken)
	return v.Validate(url, params, sig)
}
