package application

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/domain"
)

func TestIssueReferralLinkForSelf(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	referrer := f.seedAccount(t, "alice@example.com", "KRZ7BQ2", nil)

	result, err := f.service.IssueReferralLink(context.Background(), userActor(referrer.AccountID), IssueLinkInput{
		Destination: "/listing/42",
	})
	if err != nil {
		t.Fatalf("issue link: %v", err)
	}
	if result.Token == "" {
		t.Fatalf("expected a signed token")
	}
	if result.ReferralCode != "KRZ7BQ2" {
		t.Fatalf("expected referral code in result, got %q", result.ReferralCode)
	}

	claims, err := f.tokens.Verify(result.Token, testNow)
	if err != nil {
		t.Fatalf("verify issued token: %v", err)
	}
	if claims.ReferrerID != referrer.AccountID {
		t.Fatalf("token bound to wrong referrer")
	}
	if claims.Destination != "/listing/42" {
		t.Fatalf("token lost destination, got %q", claims.Destination)
	}
}

func TestIssueReferralLinkForOtherRequiresAdmin(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	referrer := f.seedAccount(t, "alice@example.com", "KRZ7BQ2", nil)

	_, err := f.service.IssueReferralLink(context.Background(), userActor(uuid.New()), IssueLinkInput{
		ReferrerID: referrer.AccountID,
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	if _, err := f.service.IssueReferralLink(context.Background(), adminActor(), IssueLinkInput{
		ReferrerID: referrer.AccountID,
	}); err != nil {
		t.Fatalf("admin issue for other: %v", err)
	}
}

func TestIssueReferralLinkUnknownReferrer(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.service.IssueReferralLink(context.Background(), userActor(uuid.New()), IssueLinkInput{})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordClickOpensAttempt(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	referrer := f.seedAccount(t, "alice@example.com", "KRZ7BQ2", nil)

	attempt, err := f.service.RecordClick(context.Background(), ClickInput{
		ReferralCode: "krz7bq2",
		Channel:      "qr",
		IPAddress:    "203.0.113.9",
		UserAgent:    "test-agent",
	})
	if err != nil {
		t.Fatalf("record click: %v", err)
	}
	if attempt.State != domain.AttemptClicked {
		t.Fatalf("expected clicked attempt, got %q", attempt.State)
	}
	if attempt.ReferrerID != referrer.AccountID {
		t.Fatalf("attempt bound to wrong referrer")
	}
	if attempt.Channel != domain.ChannelQR {
		t.Fatalf("expected qr channel, got %q", attempt.Channel)
	}
	if len(f.eventsOfType("referral.clicked")) != 1 {
		t.Fatalf("expected one clicked event")
	}
}

func TestRecordClickVelocityExceeded(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seedAccount(t, "alice@example.com", "KRZ7BQ2", nil)
	f.velocity.counts["referral:velocity:203.0.113.9"] = 3

	_, err := f.service.RecordClick(context.Background(), ClickInput{
		ReferralCode: "KRZ7BQ2",
		IPAddress:    "203.0.113.9",
	})
	if !errors.Is(err, domain.ErrVelocityExceeded) {
		t.Fatalf("expected ErrVelocityExceeded, got %v", err)
	}
	if len(f.eventsOfType("referral.fraud.denied")) != 1 {
		t.Fatalf("expected one fraud denial event")
	}
}

func TestRecordClickVelocityStoreFailsOpen(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seedAccount(t, "alice@example.com", "KRZ7BQ2", nil)
	f.velocity.recordErr = errors.New("redis down")

	if _, err := f.service.RecordClick(context.Background(), ClickInput{
		ReferralCode: "KRZ7BQ2",
		IPAddress:    "203.0.113.9",
	}); err != nil {
		t.Fatalf("expected fail-open click intake, got %v", err)
	}
}

func TestRecordClickRejectsBadCode(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	if _, err := f.service.RecordClick(context.Background(), ClickInput{ReferralCode: "short"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := f.service.RecordClick(context.Background(), ClickInput{ReferralCode: "ZZZZZZZ"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown code, got %v", err)
	}
}
