package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// MaxTierDepth caps the referral chain walk regardless of configuration.
const MaxTierDepth = 7

// Tier approval statuses. Only approved tiers may participate in the walk;
// prohibited tiers can never be activated.
const (
	TierApproved          = "approved"
	TierPendingReview     = "pending_review"
	TierRequiresClearance = "requires_clearance"
	TierProhibited        = "prohibited"
)

// TierConfig carries per-tier commission policy.
// Rate is a fraction of the base payable amount (not of the parent tier's cut).
type TierConfig struct {
	Tier        int
	Rate        float64
	Active      bool
	Approval    string
	ActivatedBy *uuid.UUID
	ActivatedAt *time.Time
	Notes       string
	UpdatedAt   time.Time
}

// Participates reports whether this tier counts toward the commission walk.
func (t TierConfig) Participates() bool {
	return t.Active && t.Approval == TierApproved
}

// ActiveTierRates returns rates indexed by tier for the contiguous run of
// participating tiers starting at tier 1. A gap halts the run: tiers above
// the gap never pay even if individually active.
func ActiveTierRates(configs []TierConfig) map[int]float64 {
	byTier := make(map[int]TierConfig, len(configs))
	for _, c := range configs {
		byTier[c.Tier] = c
	}
	rates := make(map[int]float64)
	for tier := 1; tier <= MaxTierDepth; tier++ {
		c, ok := byTier[tier]
		if !ok || !c.Participates() {
			break
		}
		rates[tier] = c.Rate
	}
	return rates
}

// SortTiers orders configurations by tier number for stable listings.
func SortTiers(configs []TierConfig) {
	sort.Slice(configs, func(i, j int) bool { return configs[i].Tier < configs[j].Tier })
}

// ValidateTierNumber bounds administrative tier operations.
func ValidateTierNumber(tier int) error {
	if tier < 1 || tier > MaxTierDepth {
		return ErrInvalidTier
	}
	return nil
}
