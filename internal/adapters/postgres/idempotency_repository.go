package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/ports"
)

const (
	idempotencyInProgress = "IN_PROGRESS"
	idempotencyCompleted  = "COMPLETED"
)

// IdempotencyRepository implements ports.IdempotencyRepository over Postgres.
type IdempotencyRepository struct {
	db *gorm.DB
}

func NewIdempotencyRepository(db *gorm.DB) *IdempotencyRepository {
	return &IdempotencyRepository{db: db}
}

// Get returns nil when no live record exists. Expired records are treated as
// absent rather than deleted inline; a cleanup sweep owns removal.
func (r *IdempotencyRepository) Get(ctx context.Context, key string) (*ports.IdempotencyRecord, error) {
	var model referralIdempotencyModel
	err := r.db.WithContext(ctx).First(&model, "idempotency_key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get idempotency record: %w", err)
	}
	if time.Now().UTC().After(model.ExpiresAt) {
		return nil, nil
	}
	record := &ports.IdempotencyRecord{
		Key:          model.IdempotencyKey,
		RequestHash:  model.RequestHash,
		Status:       model.Status,
		ResponseCode: model.ResponseCode,
		ExpiresAt:    model.ExpiresAt,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
	if model.ResponseBody != nil {
		record.ResponseBody = []byte(*model.ResponseBody)
	}
	return record, nil
}

func (r *IdempotencyRepository) Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error {
	now := time.Now().UTC()
	model := referralIdempotencyModel{
		IdempotencyKey: key,
		RequestHash:    requestHash,
		Status:         idempotencyInProgress,
		ExpiresAt:      expiresAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: idempotency key reserved", domain.ErrConflict)
		}
		return fmt.Errorf("reserve idempotency key: %w", err)
	}
	return nil
}

func (r *IdempotencyRepository) Complete(ctx context.Context, key string, responseCode int, responseBody []byte, at time.Time) error {
	body := string(responseBody)
	res := r.db.WithContext(ctx).Model(&referralIdempotencyModel{}).
		Where("idempotency_key = ?", key).
		Updates(map[string]any{
			"status":        idempotencyCompleted,
			"response_code": responseCode,
			"response_body": &body,
			"updated_at":    at,
		})
	if res.Error != nil {
		return fmt.Errorf("complete idempotency record: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: idempotency key", domain.ErrNotFound)
	}
	return nil
}

var _ ports.IdempotencyRepository = (*IdempotencyRepository)(nil)
