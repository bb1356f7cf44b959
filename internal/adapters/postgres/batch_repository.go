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

// BatchRepository implements ports.BatchRepository over Postgres.
type BatchRepository struct {
	db *gorm.DB
}

func NewBatchRepository(db *gorm.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// CreateClaim inserts the (run_id, beneficiary_id) claim row. The unique
// index makes this the settlement mutex: the loser of a concurrent run gets
// domain.ErrBatchClaimed and must not call the provider.
func (r *BatchRepository) CreateClaim(ctx context.Context, batch domain.PayoutBatch) error {
	model := payoutBatchModel{
		BatchID:       batch.BatchID,
		RunID:         batch.RunID,
		BeneficiaryID: batch.BeneficiaryID,
		Amount:        batch.Amount,
		Status:        batch.Status,
		CreatedAt:     batch.CreatedAt,
	}
	if model.BatchID == uuid.Nil {
		model.BatchID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: run %s beneficiary %s", domain.ErrBatchClaimed, batch.RunID, batch.BeneficiaryID)
		}
		return fmt.Errorf("insert payout batch: %w", err)
	}
	return nil
}

func (r *BatchRepository) MarkSettled(ctx context.Context, batchID uuid.UUID, providerRef string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&payoutBatchModel{}).
		Where("batch_id = ? AND status = ?", batchID, domain.BatchClaimed).
		Updates(map[string]any{
			"status":       domain.BatchSettled,
			"provider_ref": providerRef,
			"settled_at":   at,
		})
	if res.Error != nil {
		return fmt.Errorf("mark batch settled: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: batch not in claimed state", domain.ErrInvalidTransition)
	}
	return nil
}

func (r *BatchRepository) MarkFailed(ctx context.Context, batchID uuid.UUID, reason string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&payoutBatchModel{}).
		Where("batch_id = ? AND status = ?", batchID, domain.BatchClaimed).
		Updates(map[string]any{
			"status":         domain.BatchFailed,
			"failure_reason": reason,
		})
	if res.Error != nil {
		return fmt.Errorf("mark batch failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: batch not in claimed state", domain.ErrInvalidTransition)
	}
	return nil
}

func (r *BatchRepository) GetByRunAndBeneficiary(ctx context.Context, runID string, beneficiaryID uuid.UUID) (domain.PayoutBatch, error) {
	var model payoutBatchModel
	err := r.db.WithContext(ctx).
		First(&model, "run_id = ? AND beneficiary_id = ?", runID, beneficiaryID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.PayoutBatch{}, fmt.Errorf("%w: payout batch", domain.ErrNotFound)
		}
		return domain.PayoutBatch{}, fmt.Errorf("get payout batch: %w", err)
	}
	return toDomainBatch(model), nil
}

var _ ports.BatchRepository = (*BatchRepository)(nil)
