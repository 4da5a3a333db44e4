package main

import (
	"voice-dialer/internal/app"
	"voice-dialer/internal/auth"
	"voice-dialer/internal/config"
	"voice-dialer/internal/httpapi"
	"voice-dialer/internal/rbac"
	"voice-dialer/internal/speech"
	"voice-dialer/internal/telephony"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, a *app.App) {
	h := httpapi.Handlers{
		Dispatcher: a.Dispatcher,
		Calls:      a.Store,
		Reporting:  a.Reporting,
		Events:     a.Events,
		Audit:      a.Audit,
		Ping:       a.Ping,
	}

	// public
	r.GET("/healthz", h.Health)
	// Synthesized audio must be publicly fetchable by the telephony provider.
	if a.Config.Audio.Store == config.AudioStoreLocal {
		r.Static(speech.AudioPathPrefix, a.Config.Audio.Dir)
	}

	// Provider webhooks (public). Twilio callbacks are signature-checked when an auth token is set.
	r.POST("/webhooks/vapi", h.AgentWebhook)
	tw := telephony.TwilioStatusHandler{
		Events:        a.Events,
		AuthToken:     a.Config.Twilio.AuthToken,
		PublicBaseURL: a.Config.App.PublicBaseURL,
	}
	r.POST(telephony.StatusCallbackPath, tw.HandleStatus)

	v1 := r.Group("/v1")
	{
		// Trigger accepts anonymous callers; authenticated ones must be allowed to dial.
		v1.POST("/calls",
			auth.OptionalAccessToken(a.Auth),
			rbac.RoleIfAuthenticated(rbac.RoleOperator),
			h.TriggerCalls,
		)

		read := v1.Group("")
		read.Use(auth.RequireAccessToken(a.Auth))
		read.Use(rbac.RequireAnyRole(rbac.RoleViewer, rbac.RoleOperator))
		{
			read.GET("/sessions/:id/calls", h.SessionCalls)
			read.GET("/sessions/:id/summary", h.SessionSummary)
			read.GET("/calls/me", h.MyCalls)
			read.GET("/calls/me/summary", h.MySummary)
		}
	}
}
