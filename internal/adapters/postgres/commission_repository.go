package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/ports"
)

// CommissionRepository implements ports.CommissionRepository over Postgres.
type CommissionRepository struct {
	db *gorm.DB
}

func NewCommissionRepository(db *gorm.DB) *CommissionRepository {
	return &CommissionRepository{db: db}
}

// CreateIfAbsent leans on the (booking_id, tier) unique index: the insert is
// the idempotency check, so two concurrent payment events cannot both win.
func (r *CommissionRepository) CreateIfAbsent(ctx context.Context, txn domain.CommissionTransaction) (bool, error) {
	model := toTxnModel(txn)
	if model.TransactionID == uuid.Nil {
		model.TransactionID = uuid.New()
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "booking_id"}, {Name: "tier"}},
			DoNothing: true,
		}).
		Create(&model)
	if res.Error != nil {
		return false, fmt.Errorf("insert commission: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *CommissionRepository) ListByBeneficiary(ctx context.Context, beneficiaryID uuid.UUID, limit, offset int) ([]domain.CommissionTransaction, error) {
	var models []commissionTransactionModel
	err := r.db.WithContext(ctx).
		Where("beneficiary_id = ?", beneficiaryID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list commissions: %w", err)
	}
	out := make([]domain.CommissionTransaction, 0, len(models))
	for _, m := range models {
		out = append(out, toDomainTxn(m))
	}
	return out, nil
}

// MaturePending advances all pending rows past the clearing cutoff in one
// statement. Re-running with the same cutoff matches zero rows.
func (r *CommissionRepository) MaturePending(ctx context.Context, cutoff, at time.Time) (int, error) {
	res := r.db.WithContext(ctx).Model(&commissionTransactionModel{}).
		Where("status = ? AND created_at <= ?", domain.TxnPending, cutoff).
		Updates(map[string]any{
			"status":       domain.TxnAvailable,
			"available_at": at,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("mature pending commissions: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

func (r *CommissionRepository) SumAvailableByBeneficiary(ctx context.Context) (map[uuid.UUID]float64, error) {
	type row struct {
		BeneficiaryID uuid.UUID `gorm:"column:beneficiary_id"`
		Total         float64   `gorm:"column:total"`
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&commissionTransactionModel{}).
		Select("beneficiary_id, SUM(amount) AS total").
		Where("status = ? AND batch_id IS NULL", domain.TxnAvailable).
		Group("beneficiary_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("sum available commissions: %w", err)
	}
	out := make(map[uuid.UUID]float64, len(rows))
	for _, rec := range rows {
		out[rec.BeneficiaryID] = rec.Total
	}
	return out, nil
}

// ClaimAvailableForBatch stamps the batch id on every unclaimed available row
// of the beneficiary, then returns the stamped rows. The batch_id IS NULL
// guard means a row can only ever belong to one batch.
func (r *CommissionRepository) ClaimAvailableForBatch(ctx context.Context, beneficiaryID, batchID uuid.UUID) ([]domain.CommissionTransaction, error) {
	var models []commissionTransactionModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&commissionTransactionModel{}).
			Where("beneficiary_id = ? AND status = ? AND batch_id IS NULL", beneficiaryID, domain.TxnAvailable).
			Update("batch_id", batchID)
		if res.Error != nil {
			return fmt.Errorf("stamp batch id: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return tx.Where("batch_id = ?", batchID).
			Order("created_at ASC").
			Find(&models).Error
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.CommissionTransaction, 0, len(models))
	for _, m := range models {
		out = append(out, toDomainTxn(m))
	}
	return out, nil
}

func (r *CommissionRepository) MarkBatchPaidOut(ctx context.Context, batchID uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&commissionTransactionModel{}).
		Where("batch_id = ? AND status = ?", batchID, domain.TxnAvailable).
		Updates(map[string]any{
			"status":      domain.TxnPaidOut,
			"paid_out_at": at,
		})
	if res.Error != nil {
		return fmt.Errorf("mark batch rows paid out: %w", res.Error)
	}
	return nil
}

func (r *CommissionRepository) MarkBatchFailed(ctx context.Context, batchID uuid.UUID, reason string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&commissionTransactionModel{}).
		Where("batch_id = ? AND status = ?", batchID, domain.TxnAvailable).
		Updates(map[string]any{
			"status":         domain.TxnFailed,
			"failure_reason": reason,
		})
	if res.Error != nil {
		return fmt.Errorf("mark batch rows failed: %w", res.Error)
	}
	return nil
}

var _ ports.CommissionRepository = (*CommissionRepository)(nil)
