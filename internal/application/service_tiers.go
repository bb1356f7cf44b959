package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/domain"
)

// ListTiers returns all tier configurations ordered by tier number.
func (s *Service) ListTiers(ctx context.Context, actor Actor) ([]domain.TierConfig, error) {
	if actor.SubjectID == uuid.Nil {
		return nil, domain.ErrUnauthorized
	}
	if normalizeRole(actor.Role) != "admin" {
		return nil, domain.ErrForbidden
	}
	configs, err := s.tiers.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	domain.SortTiers(configs)
	return configs, nil
}

// ActivateTier turns a tier on, stamping approval and an audit entry.
// A prohibited tier is refused outright with no partial mutation.
func (s *Service) ActivateTier(ctx context.Context, actor Actor, input TierChangeInput) (domain.TierConfig, error) {
	if actor.SubjectID == uuid.Nil {
		return domain.TierConfig{}, domain.ErrUnauthorized
	}
	if normalizeRole(actor.Role) != "admin" {
		return domain.TierConfig{}, domain.ErrForbidden
	}
	if err := domain.ValidateTierNumber(input.Tier); err != nil {
		return domain.TierConfig{}, err
	}

	config, err := s.tiers.Get(ctx, input.Tier)
	if err != nil {
		return domain.TierConfig{}, err
	}
	if config.Approval == domain.TierProhibited {
		return domain.TierConfig{}, fmt.Errorf("%w: tier %d", domain.ErrTierProhibited, input.Tier)
	}

	now := s.nowFn()
	if err := s.tiers.SetActive(ctx, input.Tier, true, domain.TierApproved, actor.SubjectID, input.Notes, now); err != nil {
		return domain.TierConfig{}, err
	}
	s.enqueueEvent(ctx, "tier.activated", fmt.Sprintf("tier-%d", input.Tier), map[string]any{
		"tier":         input.Tier,
		"activated_by": actor.SubjectID,
		"notes":        input.Notes,
		"occurred_at":  now,
	})
	return s.tiers.Get(ctx, input.Tier)
}

// DeactivateTier turns a tier off. Always permitted: compliance may need to
// stop a tier immediately without an approval round-trip.
func (s *Service) DeactivateTier(ctx context.Context, actor Actor, input TierChangeInput) (domain.TierConfig, error) {
	if actor.SubjectID == uuid.Nil {
		return domain.TierConfig{}, domain.ErrUnauthorized
	}
	if normalizeRole(actor.Role) != "admin" {
		return domain.TierConfig{}, domain.ErrForbidden
	}
	if err := domain.ValidateTierNumber(input.Tier); err != nil {
		return domain.TierConfig{}, err
	}

	config, err := s.tiers.Get(ctx, input.Tier)
	if err != nil {
		return domain.TierConfig{}, err
	}

	now := s.nowFn()
	if err := s.tiers.SetActive(ctx, input.Tier, false, config.Approval, actor.SubjectID, input.Notes, now); err != nil {
		return domain.TierConfig{}, err
	}
	s.enqueueEvent(ctx, "tier.deactivated", fmt.Sprintf("tier-%d", input.Tier), map[string]any{
		"tier":           input.Tier,
		"deactivated_by": actor.SubjectID,
		"notes":          input.Notes,
		"occurred_at":    now,
	})
	return s.tiers.Get(ctx, input.Tier)
}
