package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/domain"
)

func TestMapDomainError(t *testing.T) {
	t.Parallel()
	cases := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{domain.ErrInvalidInput, http.StatusBadRequest, "VALIDATION_ERROR"},
		{domain.ErrInvalidTier, http.StatusBadRequest, "VALIDATION_ERROR"},
		{domain.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
		{domain.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{domain.ErrTokenExpired, http.StatusUnauthorized, "TOKEN_EXPIRED"},
		{domain.ErrTokenInvalid, http.StatusUnauthorized, "TOKEN_INVALID"},
		{domain.ErrVelocityExceeded, http.StatusTooManyRequests, "VELOCITY_EXCEEDED"},
		{domain.ErrTierProhibited, http.StatusConflict, "TIER_PROHIBITED"},
		{domain.ErrConflict, http.StatusConflict, "CONFLICT"},
		{domain.ErrIdempotencyConflict, http.StatusConflict, "CONFLICT"},
		{domain.ErrBatchClaimed, http.StatusConflict, "CONFLICT"},
		{domain.ErrInvalidTransition, http.StatusConflict, "CONFLICT"},
		{domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tc := range cases {
		status, code, _ := mapDomainError(tc.err)
		if status != tc.wantStatus || code != tc.wantCode {
			t.Fatalf("%v: expected %d/%s, got %d/%s", tc.err, tc.wantStatus, tc.wantCode, status, code)
		}
	}
}

func TestBearerTokenFromHeader(t *testing.T) {
	t.Parallel()
	token, err := bearerTokenFromHeader("Bearer abc-123")
	if err != nil || token != "abc-123" {
		t.Fatalf("expected abc-123, got %q (%v)", token, err)
	}
	for _, header := range []string{"", "abc-123", "Basic abc", "Bearer   "} {
		if _, err := bearerTokenFromHeader(header); err == nil {
			t.Fatalf("header %q: expected error", header)
		}
	}
}

func TestDecodeBodyRejectsUnknownFieldsAndTrailers(t *testing.T) {
	t.Parallel()
	type payload struct {
		Name string `json:"name"`
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ok"}`))
	var p payload
	if err := decodeBody(r, &p); err != nil || p.Name != "ok" {
		t.Fatalf("valid body rejected: %v", err)
	}

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ok","extra":1}`))
	if err := decodeBody(r, &payload{}); err == nil {
		t.Fatalf("unknown field must be rejected")
	}

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ok"}{"name":"again"}`))
	if err := decodeBody(r, &payload{}); err == nil {
		t.Fatalf("trailing JSON value must be rejected")
	}
}

func TestReadIP(t *testing.T) {
	t.Parallel()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := readIP(r); got != "203.0.113.9" {
		t.Fatalf("expected first forwarded hop, got %q", got)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.4:51234"
	if got := readIP(r); got != "192.0.2.4" {
		t.Fatalf("expected remote host, got %q", got)
	}
}

func TestRequestIDMiddlewarePropagates(t *testing.T) {
	t.Parallel()
	var seen string
	handler := requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Request-Id", "req-42")
	handler.ServeHTTP(rec, r)

	if seen != "req-42" {
		t.Fatalf("expected propagated request id, got %q", seen)
	}
	if rec.Header().Get("X-Request-Id") != "req-42" {
		t.Fatalf("request id must echo in the response")
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("missing request id must be generated")
	}
}
