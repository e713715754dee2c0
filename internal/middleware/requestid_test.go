package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/automan-solutions/challandesk/internal/logger"
)

func TestRequestIDGenerated(t *testing.T) {
	var got string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = logger.RequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	if got == "" {
		t.Fatal("request ID missing from context")
	}
	if rec.Header().Get("X-Request-ID") != got {
		t.Error("response header should carry the same ID")
	}
}

func TestRequestIDPassedThrough(t *testing.T) {
	var got string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = logger.RequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("X-Request-ID", "abc-123")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got != "abc-123" {
		t.Errorf("request ID = %q, want abc-123", got)
	}
}
