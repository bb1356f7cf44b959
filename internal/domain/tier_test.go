package domain

import (
	"errors"
	"testing"
)

func tierSet(states ...TierConfig) []TierConfig {
	return states
}

func TestActiveTierRatesContiguousRun(t *testing.T) {
	t.Parallel()
	rates := ActiveTierRates(tierSet(
		TierConfig{Tier: 1, Rate: 0.10, Active: true, Approval: TierApproved},
		TierConfig{Tier: 2, Rate: 0.05, Active: true, Approval: TierApproved},
		TierConfig{Tier: 3, Rate: 0.02, Active: true, Approval: TierApproved},
	))
	if len(rates) != 3 {
		t.Fatalf("expected 3 participating tiers, got %d", len(rates))
	}
	if rates[1] != 0.10 || rates[2] != 0.05 || rates[3] != 0.02 {
		t.Fatalf("rates mismatch: %v", rates)
	}
}

func TestActiveTierRatesGapHaltsRun(t *testing.T) {
	t.Parallel()
	rates := ActiveTierRates(tierSet(
		TierConfig{Tier: 1, Rate: 0.10, Active: true, Approval: TierApproved},
		TierConfig{Tier: 2, Rate: 0.05, Active: false, Approval: TierApproved},
		TierConfig{Tier: 3, Rate: 0.02, Active: true, Approval: TierApproved},
	))
	if len(rates) != 1 {
		t.Fatalf("gap at tier 2 must halt the run, got %v", rates)
	}
	if _, ok := rates[3]; ok {
		t.Fatalf("tier 3 must not pay across the gap")
	}
}

func TestActiveTierRatesUnapprovedDoesNotParticipate(t *testing.T) {
	t.Parallel()
	rates := ActiveTierRates(tierSet(
		TierConfig{Tier: 1, Rate: 0.10, Active: true, Approval: TierPendingReview},
	))
	if len(rates) != 0 {
		t.Fatalf("unapproved tier must not participate, got %v", rates)
	}
}

func TestActiveTierRatesMissingTier1(t *testing.T) {
	t.Parallel()
	rates := ActiveTierRates(tierSet(
		TierConfig{Tier: 2, Rate: 0.05, Active: true, Approval: TierApproved},
	))
	if len(rates) != 0 {
		t.Fatalf("run must start at tier 1, got %v", rates)
	}
}

func TestValidateTierNumber(t *testing.T) {
	t.Parallel()
	for tier := 1; tier <= MaxTierDepth; tier++ {
		if err := ValidateTierNumber(tier); err != nil {
			t.Fatalf("tier %d rejected: %v", tier, err)
		}
	}
	for _, tier := range []int{0, -3, MaxTierDepth + 1} {
		if err := ValidateTierNumber(tier); !errors.Is(err, ErrInvalidTier) {
			t.Fatalf("tier %d: expected ErrInvalidTier, got %v", tier, err)
		}
	}
}

func TestSortTiers(t *testing.T) {
	t.Parallel()
	configs := tierSet(
		TierConfig{Tier: 3},
		TierConfig{Tier: 1},
		TierConfig{Tier: 2},
	)
	SortTiers(configs)
	for i, config := range configs {
		if config.Tier != i+1 {
			t.Fatalf("unsorted result: %v", configs)
		}
	}
}
