package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/ports"
)

// TierRepository implements ports.TierRepository over Postgres.
type TierRepository struct {
	db *gorm.DB
}

func NewTierRepository(db *gorm.DB) *TierRepository {
	return &TierRepository{db: db}
}

func (r *TierRepository) ListAll(ctx context.Context) ([]domain.TierConfig, error) {
	var models []tierConfigModel
	if err := r.db.WithContext(ctx).Order("tier ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list tiers: %w", err)
	}
	out := make([]domain.TierConfig, 0, len(models))
	for _, m := range models {
		out = append(out, toDomainTier(m))
	}
	return out, nil
}

func (r *TierRepository) Get(ctx context.Context, tier int) (domain.TierConfig, error) {
	var model tierConfigModel
	err := r.db.WithContext(ctx).First(&model, "tier = ?", tier).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.TierConfig{}, fmt.Errorf("%w: tier %d", domain.ErrNotFound, tier)
		}
		return domain.TierConfig{}, fmt.Errorf("get tier: %w", err)
	}
	return toDomainTier(model), nil
}

// SetActive stamps who flipped the tier and when. The approval column is
// written alongside the flag so the audit row always reflects the decision
// that allowed the change.
func (r *TierRepository) SetActive(ctx context.Context, tier int, active bool, approval string, actorID uuid.UUID, notes string, at time.Time) error {
	updates := map[string]any{
		"active":       active,
		"approval":     approval,
		"activated_by": actorID,
		"activated_at": at,
		"updated_at":   at,
	}
	if notes != "" {
		updates["notes"] = notes
	}
	res := r.db.WithContext(ctx).Model(&tierConfigModel{}).
		Where("tier = ?", tier).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("set tier active: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: tier %d", domain.ErrNotFound, tier)
	}
	return nil
}

var _ ports.TierRepository = (*TierRepository)(nil)
