package core

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"cropguard/internal/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequestIDMiddleware_GeneratesID(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = types.GetRequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == "" {
		t.Error("expected a request ID in the context")
	}
	if got := w.Header().Get("X-Request-Id"); got != seen {
		t.Errorf("response header %q does not match context ID %q", got, seen)
	}
}

func TestRequestIDMiddleware_ReusesIncomingHeader(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = types.GetRequestID(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Request-Id", "upstream-trace-42")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if seen != "upstream-trace-42" {
		t.Errorf("expected upstream-trace-42, got %q", seen)
	}
	if got := w.Header().Get("X-Request-Id"); got != "upstream-trace-42" {
		t.Errorf("expected header echoed back, got %q", got)
	}
}

func TestRecoverer_CatchesPanic(t *testing.T) {
	s := &Server{Logger: discardLogger()}
	handler := s.Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", w.Code)
	}
	var errResp APIErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&errResp); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	if errResp.Error.Code != string(types.ErrCodeInternalUnexpected) {
		t.Errorf("expected code internal_unexpected_error, got %s", errResp.Error.Code)
	}
}

func TestRequestLogger_CapturesStatus(t *testing.T) {
	handler := RequestLogger(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusTeapot {
		t.Errorf("expected status 418 to pass through, got %d", w.Code)
	}
}

func TestResponseCapture_DefaultsTo200OnWrite(t *testing.T) {
	rc := &responseCapture{ResponseWriter: httptest.NewRecorder()}
	if _, err := rc.Write([]byte("ok")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if rc.statusCode != http.StatusOK {
		t.Errorf("expected implicit 200, got %d", rc.statusCode)
	}
}

func TestResponseCapture_FirstStatusWins(t *testing.T) {
	rc := &responseCapture{ResponseWriter: httptest.NewRecorder()}
	rc.WriteHeader(http.StatusBadRequest)
	rc.WriteHeader(http.StatusOK)
	if rc.statusCode != http.StatusBadRequest {
		t.Errorf("expected 400 to stick, got %d", rc.statusCode)
	}
}

func TestContextTimeoutMiddleware_SetsDeadline(t *testing.T) {
	var hasDeadline bool
	handler := ContextTimeoutMiddleware(defaultRequestTimeout)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasDeadline = r.Context().Deadline()
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !hasDeadline {
		t.Error("expected the request context to carry a deadline")
	}
}
