package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogFields(t *testing.T) {
	f := NewFields().
		WithOperation(OpChat).
		WithAdvice("student", "rules").
		WithError(errors.New("boom")).
		WithError(nil)

	if f[FieldPersona] != "student" || f[FieldSource] != "rules" {
		t.Errorf("advice fields not set: %v", f)
	}
	if f[FieldError] != "boom" {
		t.Errorf("error field = %v, want boom", f[FieldError])
	}
	if got := len(f.ToSlice()); got != 2*len(f) {
		t.Errorf("ToSlice() length = %d, want %d", got, 2*len(f))
	}
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: ComponentHTTP, Handler: slog.NewTextHandler(&buf, nil)})
	sl := NewStructuredLogger(logger)

	r := httptest.NewRequest("POST", "/chat", nil)
	sl.LogHTTPEnd(context.Background(), r, 503, 12, "10.0.0.1")
	sl.LogAdviceServed(context.Background(), OpChat, "general", "model", 7)

	out := buf.String()
	for _, want := range []string{"level=ERROR", "status_code=503", "Advice served", "source=model", "component=advisor"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestStructuredLogger_SingleComponent(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Component: "unknown", Handler: slog.NewTextHandler(&buf, nil)})
	sl := NewStructuredLogger(base.WithComponent(ComponentTrace).With(FieldRequestID, "req_1"))

	sl.LogAdviceServed(context.Background(), OpChat, "general", "rules", 3)
	sl.LogError(context.Background(), "Advisor operation failed", errors.New("boom"), ComponentAdvisor, OpChat, NewFields())
	sl.LogHTTPEnd(context.Background(), httptest.NewRequest("GET", "/", nil), 200, 1, "10.0.0.1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d log lines, want 3:\n%s", len(lines), buf.String())
	}
	wants := []string{"component=advisor", "component=advisor", "component=http"}
	for i, line := range lines {
		if n := strings.Count(line, "component="); n != 1 {
			t.Errorf("line %d has %d component keys: %s", i, n, line)
		}
		if !strings.Contains(line, wants[i]) {
			t.Errorf("line %d missing %q: %s", i, wants[i], line)
		}
		if !strings.Contains(line, "request_id=req_1") {
			t.Errorf("line %d lost request id: %s", i, line)
		}
	}
}

func TestLogger_SlogCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: ComponentApp, Handler: slog.NewTextHandler(&buf, nil)})

	logger.WithComponent(ComponentNLU).Slog().Info("ready")

	if out := buf.String(); strings.Count(out, "component=") != 1 || !strings.Contains(out, "component=nlu") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestFromContext_Default(t *testing.T) {
	if FromContext(context.Background()).Component() != "unknown" {
		t.Error("logger without context should use the unknown component")
	}
}

func TestComponentMiddleware(t *testing.T) {
	var got string
	h := ComponentMiddleware(ComponentWebSocket)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context()).Component()
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/ws/chat", nil))

	if got != ComponentWebSocket {
		t.Errorf("component = %q, want %q", got, ComponentWebSocket)
	}
}
