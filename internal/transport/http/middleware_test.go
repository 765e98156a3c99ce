package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cimillas/order-ledger/internal/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLogger_LogsStatusAndPath(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.DebugLevel)
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodPost, "/orders", nil)
	rec := httptest.NewRecorder()
	RequestLogger(zap.New(core))(handler).ServeHTTP(rec, req)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["method"] != "POST" || fields["path"] != "/orders" || fields["status"] != int64(201) {
		t.Fatalf("unexpected fields: %v", fields)
	}
	if entries[0].Level != zapcore.InfoLevel {
		t.Fatalf("expected info level, got %s", entries[0].Level)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected generated request id header")
	}
}

func TestRequestLogger_LevelByStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   zapcore.Level
	}{
		{status: http.StatusOK, want: zapcore.InfoLevel},
		{status: http.StatusNotFound, want: zapcore.WarnLevel},
		{status: http.StatusServiceUnavailable, want: zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		core, logs := observer.New(zap.DebugLevel)
		handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tt.status)
		})
		RequestLogger(zap.New(core))(handler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

		if got := logs.All()[0].Level; got != tt.want {
			t.Fatalf("status %d: expected %s, got %s", tt.status, tt.want, got)
		}
	}
}

func TestRequestLogger_PropagatesRequestID(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.DebugLevel)
	var seen string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.RequestID(r.Context())
		logging.Logger(r.Context()).Info("inside")
		_, _ = w.Write([]byte("ok"))
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	RequestLogger(zap.New(core))(handler).ServeHTTP(rec, req)

	if seen != "abc-123" {
		t.Fatalf("expected request id in context, got %q", seen)
	}
	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("expected request id echoed, got %q", got)
	}
	for _, e := range logs.All() {
		if e.ContextMap()["request_id"] != "abc-123" {
			t.Fatalf("expected request_id on %q, got %v", e.Message, e.ContextMap())
		}
	}
	if status := logs.FilterMessage("request").All()[0].ContextMap()["status"]; status != int64(200) {
		t.Fatalf("expected implicit 200, got %v", status)
	}
}
