package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := map[string]any{}
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestNew_RedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("production", &buf)
	l.Info("provider configured", "api_key", "sk-123", "voice_id", "v1")

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0]["api_key"] != "[redacted]" {
		t.Fatalf("api_key leaked: %v", lines[0]["api_key"])
	}
	if lines[0]["voice_id"] != "v1" || lines[0]["service"] != "voice-dialer" {
		t.Fatalf("unexpected attrs: %v", lines[0])
	}
}

func TestNew_DebugOnlyInLocal(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter("production", &buf).Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug must be off in production")
	}
	NewWithWriter("local", &buf).Debug("shown")
	if buf.Len() == 0 {
		t.Fatalf("debug must be on in local")
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	if RequestID(ctx) != "" {
		t.Fatalf("expected empty request id")
	}
	if WithRequestID(ctx, "") != ctx {
		t.Fatalf("empty id must not wrap ctx")
	}
	var buf bytes.Buffer
	l := NewWithWriter("local", &buf)
	if From(With(ctx, l)) != l {
		t.Fatalf("expected stored logger")
	}
}

func TestMiddleware_PropagatesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	r := gin.New()
	r.Use(Middleware(NewWithWriter("local", &buf)))

	var seen string
	r.GET("/x", func(c *gin.Context) {
		seen = RequestID(c.Request.Context())
		FromGin(c).Info("inside")
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(headerRequestID, "rid-1")
	r.ServeHTTP(w, req)

	if seen != "rid-1" || w.Header().Get(headerRequestID) != "rid-1" {
		t.Fatalf("request id not propagated: ctx=%q header=%q", seen, w.Header().Get(headerRequestID))
	}
	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d", len(lines))
	}
	for _, l := range lines {
		if l["request_id"] != "rid-1" {
			t.Fatalf("line without request id: %v", l)
		}
	}
	if lines[1]["msg"] != "request" || lines[1]["path"] != "/x" {
		t.Fatalf("unexpected summary line: %v", lines[1])
	}
}
