package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/domain"
)

// PreferenceInput updates a beneficiary's settlement gates.
type PreferenceInput struct {
	AccountID uuid.UUID
	MinAmount float64
	Cadence   string
	OptedOut  bool
	PayoutRef string
}

// UpdatePayoutPreference writes the beneficiary's settlement gates. Owners
// may edit their own; admins may edit anyone's.
func (s *Service) UpdatePayoutPreference(ctx context.Context, actor Actor, input PreferenceInput) (domain.PayoutPreference, error) {
	if actor.SubjectID == uuid.Nil {
		return domain.PayoutPreference{}, domain.ErrUnauthorized
	}
	if input.AccountID == uuid.Nil {
		input.AccountID = actor.SubjectID
	}
	if input.AccountID != actor.SubjectID && normalizeRole(actor.Role) != "admin" {
		return domain.PayoutPreference{}, domain.ErrForbidden
	}
	if input.MinAmount < 0 {
		return domain.PayoutPreference{}, fmt.Errorf("%w: min amount cannot be negative", domain.ErrInvalidInput)
	}
	if _, err := s.accounts.GetByID(ctx, input.AccountID); err != nil {
		return domain.PayoutPreference{}, err
	}

	pref := domain.PayoutPreference{
		AccountID: input.AccountID,
		MinAmount: input.MinAmount,
		Cadence:   domain.NormalizeCadence(input.Cadence),
		OptedOut:  input.OptedOut,
		PayoutRef: input.PayoutRef,
		UpdatedAt: s.nowFn(),
	}
	if err := s.preferences.Upsert(ctx, pref); err != nil {
		return domain.PayoutPreference{}, err
	}

	s.appLogger().InfoContext(ctx, "payout preference updated",
		"operation", "update_payout_preference",
		"outcome", "success",
		"account_id", input.AccountID,
		"opted_out", pref.OptedOut,
		"cadence", pref.Cadence,
		"request_id", actor.RequestID,
	)
	return pref, nil
}

// GetPayoutPreference reads the stored gates, or the weekly defaults when the
// beneficiary never set any.
func (s *Service) GetPayoutPreference(ctx context.Context, actor Actor, accountID uuid.UUID) (domain.PayoutPreference, error) {
	if actor.SubjectID == uuid.Nil {
		return domain.PayoutPreference{}, domain.ErrUnauthorized
	}
	if accountID != actor.SubjectID && normalizeRole(actor.Role) != "admin" {
		return domain.PayoutPreference{}, domain.ErrForbidden
	}
	return s.preferenceFor(ctx, accountID), nil
}
