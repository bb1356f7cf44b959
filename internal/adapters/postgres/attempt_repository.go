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

// AttemptRepository implements ports.AttemptRepository over Postgres.
type AttemptRepository struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

func (r *AttemptRepository) Create(ctx context.Context, attempt domain.ReferralAttempt) (domain.ReferralAttempt, error) {
	model := toAttemptModel(attempt)
	if model.AttemptID == uuid.Nil {
		model.AttemptID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.ReferralAttempt{}, fmt.Errorf("insert attempt: %w", err)
	}
	return toDomainAttempt(model), nil
}

func (r *AttemptRepository) LatestClicked(ctx context.Context, referrerID uuid.UUID) (domain.ReferralAttempt, error) {
	var model referralAttemptModel
	err := r.db.WithContext(ctx).
		Where("referrer_id = ? AND state = ?", referrerID, domain.AttemptClicked).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ReferralAttempt{}, fmt.Errorf("%w: no clicked attempt", domain.ErrNotFound)
		}
		return domain.ReferralAttempt{}, fmt.Errorf("latest clicked attempt: %w", err)
	}
	return toDomainAttempt(model), nil
}

func (r *AttemptRepository) LatestForAccount(ctx context.Context, accountID uuid.UUID) (domain.ReferralAttempt, error) {
	var model referralAttemptModel
	err := r.db.WithContext(ctx).
		Where("referred_account_id = ?", accountID).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ReferralAttempt{}, fmt.Errorf("%w: no attempt for account", domain.ErrNotFound)
		}
		return domain.ReferralAttempt{}, fmt.Errorf("latest attempt for account: %w", err)
	}
	return toDomainAttempt(model), nil
}

// MarkConverted is state-guarded so replayed payment events cannot advance an
// already converted attempt.
func (r *AttemptRepository) MarkConverted(ctx context.Context, attemptID uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&referralAttemptModel{}).
		Where("attempt_id = ? AND state = ?", attemptID, domain.AttemptAttributed).
		Updates(map[string]any{
			"state":        domain.AttemptConverted,
			"converted_at": at,
		})
	if res.Error != nil {
		return fmt.Errorf("mark attempt converted: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: attempt not in attributed state", domain.ErrInvalidTransition)
	}
	return nil
}

func (r *AttemptRepository) MarkBlocked(ctx context.Context, attemptID uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&referralAttemptModel{}).
		Where("attempt_id = ? AND state = ?", attemptID, domain.AttemptClicked).
		Update("state", domain.AttemptBlocked)
	if res.Error != nil {
		return fmt.Errorf("mark attempt blocked: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: attempt not in clicked state", domain.ErrInvalidTransition)
	}
	return nil
}

var _ ports.AttemptRepository = (*AttemptRepository)(nil)
