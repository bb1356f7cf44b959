package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/domain"
)

// IssueLinkResult carries the signed token the link/QR surface embeds.
type IssueLinkResult struct {
	Token        string    `json:"token"`
	ReferralCode string    `json:"referral_code"`
	ExpiresAt    string    `json:"expires_at"`
	ReferrerID   uuid.UUID `json:"referrer_id"`
}

// IssueReferralLink signs an attribution token binding the referrer and the
// intended destination. The token is the only continuity mechanism across the
// click-to-signup gap, so it must survive cookie loss and device changes.
func (s *Service) IssueReferralLink(ctx context.Context, actor Actor, input IssueLinkInput) (IssueLinkResult, error) {
	if actor.SubjectID == uuid.Nil {
		return IssueLinkResult{}, domain.ErrUnauthorized
	}
	referrerID := input.ReferrerID
	if referrerID == uuid.Nil {
		referrerID = actor.SubjectID
	}
	if referrerID != actor.SubjectID && normalizeRole(actor.Role) != "admin" {
		return IssueLinkResult{}, domain.ErrForbidden
	}

	referrer, err := s.accounts.GetByID(ctx, referrerID)
	if err != nil {
		return IssueLinkResult{}, err
	}

	now := s.nowFn()
	token, err := s.tokens.Issue(referrer.AccountID, strings.TrimSpace(input.Destination), now)
	if err != nil {
		return IssueLinkResult{}, fmt.Errorf("issue attribution token: %w", err)
	}
	return IssueLinkResult{
		Token:        token,
		ReferralCode: referrer.ReferralCode,
		ExpiresAt:    now.Add(s.cfg.TokenTTL).Format("2006-01-02T15:04:05Z07:00"),
		ReferrerID:   referrer.AccountID,
	}, nil
}

// RecordClick registers a click-equivalent event on a referral code and opens
// a clicked pipeline attempt. Velocity denial rejects the event but is logged
// for audit rather than treated as an application failure upstream.
func (s *Service) RecordClick(ctx context.Context, input ClickInput) (domain.ReferralAttempt, error) {
	code := domain.NormalizeReferralCode(input.ReferralCode)
	if err := domain.ValidateReferralCode(code); err != nil {
		return domain.ReferralAttempt{}, err
	}

	referrer, err := s.accounts.GetByReferralCode(ctx, code)
	if err != nil {
		return domain.ReferralAttempt{}, err
	}

	if err := s.checkVelocity(ctx, input.IPAddress); err != nil {
		s.logFraudDenial(ctx, "velocity", referrer.AccountID, input.IPAddress)
		return domain.ReferralAttempt{}, err
	}

	now := s.nowFn()
	attempt, err := s.attempts.Create(ctx, domain.ReferralAttempt{
		AttemptID:    uuid.New(),
		ReferrerID:   referrer.AccountID,
		ReferralCode: code,
		State:        domain.AttemptClicked,
		Channel:      domain.NormalizeChannel(input.Channel),
		IPAddress:    input.IPAddress,
		UserAgent:    input.UserAgent,
		CreatedAt:    now,
	})
	if err != nil {
		return domain.ReferralAttempt{}, err
	}

	s.enqueueEvent(ctx, "referral.clicked", referrer.AccountID.String(), map[string]any{
		"attempt_id":    attempt.AttemptID,
		"referrer_id":   referrer.AccountID,
		"referral_code": code,
		"channel":       attempt.Channel,
		"occurred_at":   now,
	})
	return attempt, nil
}
