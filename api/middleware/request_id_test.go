package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func runRequestID(t *testing.T, inbound string) string {
	t.Helper()
	handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	if inbound != "" {
		req.Header.Set(requestIDHeader, inbound)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec.Header().Get(requestIDHeader)
}

func TestRequestIDHonorsInbound(t *testing.T) {
	got := runRequestID(t, "trace-abc-123")
	if got != "trace-abc-123" {
		t.Fatalf("expected inbound id echoed back, got %q", got)
	}
}

func TestRequestIDGeneratesWhenMissing(t *testing.T) {
	got := runRequestID(t, "")
	if _, err := uuid.Parse(got); err != nil {
		t.Fatalf("expected generated uuid, got %q: %v", got, err)
	}
}

func TestRequestIDReplacesGarbage(t *testing.T) {
	for _, inbound := range []string{
		"has space",
		"ctrl\x01char",
		strings.Repeat("x", maxRequestIDLen+1),
	} {
		got := runRequestID(t, inbound)
		if got == inbound {
			t.Fatalf("garbage id %q was echoed back", inbound)
		}
		if _, err := uuid.Parse(got); err != nil {
			t.Fatalf("expected replacement uuid for %q, got %q", inbound, got)
		}
	}
}
