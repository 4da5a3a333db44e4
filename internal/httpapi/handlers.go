package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"voice-dialer/internal/agent"
	"voice-dialer/internal/audit"
	"voice-dialer/internal/auth"
	"voice-dialer/internal/calls"
	"voice-dialer/internal/dialer"
	"voice-dialer/internal/reporting"
	"voice-dialer/pkg/logger"

	"github.com/gin-gonic/gin"
)

// MeCallsLimit caps GET /v1/calls/me.
const MeCallsLimit = 100

// Dispatcher starts dial sessions.
type Dispatcher interface {
	Dispatch(ctx context.Context, req dialer.Request) (string, error)
}

// CallReader is the read side of the call record store.
type CallReader interface {
	FindBySession(ctx context.Context, sessionID string) ([]calls.CallAttempt, error)
	FindByOwner(ctx context.Context, ownerID string, limit int) ([]calls.CallAttempt, error)
}

// AgentEvents applies agent webhooks to the store.
type AgentEvents interface {
	CallEnded(ctx context.Context, ev calls.AgentCallEnded) (calls.CallAttempt, error)
	CallStarted(ctx context.Context, ev calls.AgentCallStarted) (calls.CallAttempt, error)
}

// Auditor records trigger decisions. Failures never block a dispatch.
type Auditor interface {
	SessionDispatched(ctx context.Context, actor audit.Actor, sessionID, sourceID string, numbers int) error
	SessionRejected(ctx context.Context, actor audit.Actor, sourceID string, numbers int, reason string) error
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Dispatcher Dispatcher
	Calls      CallReader
	Reporting  *reporting.Service
	Events     AgentEvents
	Audit      Auditor // optional

	// Ping reports storage readiness. Optional.
	Ping func(ctx context.Context) error
}

// --- Health ---

func (h Handlers) Health(c *gin.Context) {
	if h.Ping != nil {
		if err := h.Ping(c.Request.Context()); err != nil {
			logger.FromGin(c).Error("health check failed", "err", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- Trigger ---

// TriggerCalls starts one dial session and returns its id before any call is placed.
// The owner is taken from the access token when present; a body ownerId is ignored.
func (h Handlers) TriggerCalls(c *gin.Context) {
	if h.Dispatcher == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "dispatcher not configured"})
		return
	}
	var req dialer.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	req.OwnerID, _ = auth.UserID(c.Request.Context())

	sessionID, err := h.Dispatcher.Dispatch(c.Request.Context(), req)
	switch {
	case errors.Is(err, dialer.ErrNoNumbers):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "numbers array required"})
		return
	case errors.Is(err, dialer.ErrCapacity):
		h.auditRejected(c, req, "capacity")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many sessions running, retry later"})
		return
	case err != nil:
		logger.FromGin(c).Error("dispatch failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "dispatch failed"})
		return
	}
	if h.Audit != nil {
		if err := h.Audit.SessionDispatched(c.Request.Context(), actorOf(c), sessionID, req.SourceID, len(req.Numbers)); err != nil {
			logger.FromGin(c).Warn("audit append failed", "session_id", sessionID, "err", err)
		}
	}
	c.JSON(http.StatusAccepted, gin.H{"sessionId": sessionID})
}

func (h Handlers) auditRejected(c *gin.Context, req dialer.Request, reason string) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.SessionRejected(c.Request.Context(), actorOf(c), req.SourceID, len(req.Numbers), reason); err != nil {
		logger.FromGin(c).Warn("audit append failed", "err", err)
	}
}

func actorOf(c *gin.Context) audit.Actor {
	uid, _ := auth.UserID(c.Request.Context())
	role, _ := auth.Role(c.Request.Context())
	return audit.Actor{UserID: uid, Role: role, IP: c.ClientIP()}
}

// --- Read API ---

func (h Handlers) SessionCalls(c *gin.Context) {
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call store not configured"})
		return
	}
	sessionID := c.Param("id")
	if sessionID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "session id required"})
		return
	}
	rows, err := h.Calls.FindBySession(c.Request.Context(), sessionID)
	if err != nil {
		logger.FromGin(c).Error("session lookup failed", "session_id", sessionID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessionId": sessionID, "calls": rows})
}

func (h Handlers) SessionSummary(c *gin.Context) {
	if h.Reporting == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	sessionID := c.Param("id")
	sum, err := h.Reporting.SessionSummary(c.Request.Context(), sessionID)
	switch {
	case errors.Is(err, reporting.ErrInvalidRequest):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "session id required"})
		return
	case errors.Is(err, calls.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	case err != nil:
		logger.FromGin(c).Error("session summary failed", "session_id", sessionID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "summary failed"})
		return
	}
	c.JSON(http.StatusOK, sum)
}

// MyCalls lists the caller's most recent attempts.
func (h Handlers) MyCalls(c *gin.Context) {
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call store not configured"})
		return
	}
	ownerID, err := auth.UserID(c.Request.Context())
	if err != nil || ownerID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	rows, err := h.Calls.FindByOwner(c.Request.Context(), ownerID, MeCallsLimit)
	if err != nil {
		logger.FromGin(c).Error("owner lookup failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": rows})
}

// MySummary aggregates the caller's attempts, optionally within ?from=&to= (RFC 3339).
func (h Handlers) MySummary(c *gin.Context) {
	if h.Reporting == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	ownerID, err := auth.UserID(c.Request.Context())
	if err != nil || ownerID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	req := reporting.OwnerSummaryRequest{OwnerID: ownerID}
	if req.Range.From, err = parseTime(c.Query("from")); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from must be RFC 3339"})
		return
	}
	if req.Range.To, err = parseTime(c.Query("to")); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "to must be RFC 3339"})
		return
	}
	sum, err := h.Reporting.OwnerSummary(c.Request.Context(), req)
	if errors.Is(err, reporting.ErrInvalidRequest) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from and to must both be set, with to after from"})
		return
	}
	if err != nil {
		logger.FromGin(c).Error("owner summary failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "summary failed"})
		return
	}
	c.JSON(http.StatusOK, sum)
}

func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, v)
}

// --- Webhooks ---

// AgentWebhook applies agent provider events. Unknown events are acknowledged.
func (h Handlers) AgentWebhook(c *gin.Context) {
	log := logger.FromGin(c)
	if h.Events == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "webhook handler not configured"})
		return
	}
	var p agent.WebhookPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	switch p.Kind() {
	case agent.EventEnded:
		a, err := h.Events.CallEnded(c.Request.Context(), p.Ended())
		if errors.Is(err, calls.ErrInvalidArgument) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "call id and metadata.phone required"})
			return
		}
		if err != nil {
			log.Error("agent call ended not applied", "agent_call_id", p.Call.ID, "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
			return
		}
		log.Info("agent call ended", "agent_call_id", p.Call.ID, "call_attempt_id", a.ID)
		c.JSON(http.StatusOK, gin.H{"ok": true, "callAttemptId": a.ID})

	case agent.EventStarted:
		a, err := h.Events.CallStarted(c.Request.Context(), p.Started())
		if errors.Is(err, calls.ErrNotFound) || errors.Is(err, calls.ErrInvalidArgument) {
			log.Info("agent call started for unknown call", "agent_call_id", p.Call.ID)
			c.JSON(http.StatusOK, gin.H{"ok": true, "ignored": true})
			return
		}
		if err != nil {
			log.Error("agent call started not applied", "agent_call_id", p.Call.ID, "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "callAttemptId": a.ID})

	default:
		log.Debug("agent webhook ignored", "event", p.Event)
		c.JSON(http.StatusOK, gin.H{"ok": true, "ignored": true})
	}
}
