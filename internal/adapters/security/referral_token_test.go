package security

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/domain"
)

func newTestCodec(t *testing.T) *ReferralTokenCodec {
	t.Helper()
	codec, err := NewReferralTokenCodec("test-signing-secret", 30*24*time.Hour)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	return codec
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	t.Parallel()
	codec := newTestCodec(t)
	referrerID := uuid.New()
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

	token, err := codec.Issue(referrerID, "/listing/42", now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := codec.Verify(token, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.ReferrerID != referrerID {
		t.Fatalf("referrer mismatch: %s", claims.ReferrerID)
	}
	if claims.Destination != "/listing/42" {
		t.Fatalf("destination mismatch: %q", claims.Destination)
	}
	if !claims.ExpiresAt.Equal(now.Add(30 * 24 * time.Hour)) {
		t.Fatalf("unexpected expiry %v", claims.ExpiresAt)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	t.Parallel()
	codec := newTestCodec(t)
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

	token, err := codec.Issue(uuid.New(), "", now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// One second past the 30-day window.
	_, err = codec.Verify(token, now.Add(30*24*time.Hour+time.Second))
	if !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}

	// Just inside the window still verifies.
	if _, err := codec.Verify(token, now.Add(30*24*time.Hour-time.Second)); err != nil {
		t.Fatalf("verify inside window: %v", err)
	}
}

func TestVerifyTamperedToken(t *testing.T) {
	t.Parallel()
	codec := newTestCodec(t)
	now := time.Now().UTC()

	token, err := codec.Issue(uuid.New(), "", now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Flip a payload character; the MAC no longer matches.
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape")
	}
	payload := []byte(parts[1])
	if payload[10] == 'A' {
		payload[10] = 'B'
	} else {
		payload[10] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	if _, err := codec.Verify(tampered, now); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	t.Parallel()
	codec := newTestCodec(t)
	other, err := NewReferralTokenCodec("different-secret", time.Hour)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	now := time.Now().UTC()

	token, err := other.Issue(uuid.New(), "", now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := codec.Verify(token, now); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestVerifyMalformedInput(t *testing.T) {
	t.Parallel()
	codec := newTestCodec(t)
	now := time.Now().UTC()

	for _, raw := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		if _, err := codec.Verify(raw, now); !errors.Is(err, domain.ErrTokenInvalid) {
			t.Fatalf("input %q: expected ErrTokenInvalid, got %v", raw, err)
		}
	}
}

func TestIssueRequiresReferrer(t *testing.T) {
	t.Parallel()
	codec := newTestCodec(t)

	if _, err := codec.Issue(uuid.Nil, "", time.Now().UTC()); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestNewReferralTokenCodecRequiresSecret(t *testing.T) {
	t.Parallel()
	if _, err := NewReferralTokenCodec("", time.Hour); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
