package application

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/domain"
)

// checkVelocity denies click intake when an origin exceeds the configured
// threshold within the trailing window. An unavailable counter store fails
// open with a warning: attribution quality degrades before availability does.
func (s *Service) checkVelocity(ctx context.Context, originIP string) error {
	if s.velocity == nil || strings.TrimSpace(originIP) == "" {
		return nil
	}
	count, err := s.velocity.Record(ctx, "referral:velocity:"+originIP, s.cfg.ClickVelocityWindow)
	if err != nil {
		s.appLogger().WarnContext(ctx, "velocity state unavailable",
			"operation", "check_velocity",
			"outcome", "warning",
			"error", err,
		)
		return nil
	}
	if count > s.cfg.ClickVelocityThreshold {
		return domain.ErrVelocityExceeded
	}
	return nil
}

// checkSelfAssociation denies a candidate referrer that is the signup itself
// or shares the signup's contact email. Both state reads are supplied by the
// caller; the check itself is side-effect-free.
func checkSelfAssociation(candidate domain.Account, newAccountID uuid.UUID, newAccountEmail string) error {
	if candidate.AccountID == newAccountID {
		return domain.ErrSelfReferral
	}
	if newAccountEmail != "" && strings.EqualFold(candidate.Email, newAccountEmail) {
		return domain.ErrSelfReferral
	}
	return nil
}

// logFraudDenial records a guard denial for audit. Denials never block the
// user-visible flow, but they must never be silent either.
func (s *Service) logFraudDenial(ctx context.Context, check string, candidateID uuid.UUID, origin string) {
	s.appLogger().WarnContext(ctx, "fraud guard denial",
		"operation", "fraud_check",
		"outcome", "denied",
		"check", check,
		"candidate_id", candidateID,
		"origin", origin,
	)
	s.enqueueEvent(ctx, "referral.fraud.denied", candidateID.String(), map[string]any{
		"check":        check,
		"candidate_id": candidateID,
		"origin":       origin,
		"occurred_at":  s.nowFn(),
	})
}
