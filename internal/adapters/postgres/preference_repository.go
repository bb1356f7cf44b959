package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/ports"
)

// PreferenceRepository implements ports.PreferenceRepository over Postgres.
type PreferenceRepository struct {
	db *gorm.DB
}

func NewPreferenceRepository(db *gorm.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

func (r *PreferenceRepository) Get(ctx context.Context, accountID uuid.UUID) (domain.PayoutPreference, error) {
	var model payoutPreferenceModel
	err := r.db.WithContext(ctx).First(&model, "account_id = ?", accountID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.PayoutPreference{}, fmt.Errorf("%w: payout preference", domain.ErrNotFound)
		}
		return domain.PayoutPreference{}, fmt.Errorf("get payout preference: %w", err)
	}
	return toDomainPreference(model), nil
}

func (r *PreferenceRepository) Upsert(ctx context.Context, pref domain.PayoutPreference) error {
	model := payoutPreferenceModel{
		AccountID: pref.AccountID,
		MinAmount: pref.MinAmount,
		Cadence:   pref.Cadence,
		OptedOut:  pref.OptedOut,
		PayoutRef: pref.PayoutRef,
		UpdatedAt: pref.UpdatedAt,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}},
			UpdateAll: true,
		}).
		Create(&model).Error
	if err != nil {
		return fmt.Errorf("upsert payout preference: %w", err)
	}
	return nil
}

var _ ports.PreferenceRepository = (*PreferenceRepository)(nil)
