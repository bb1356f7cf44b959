package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/ports"
)

// OutboxRepository implements the transactional outbox over Postgres.
// Claims use SKIP LOCKED so concurrent workers never fight over rows.
type OutboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

func (r *OutboxRepository) Enqueue(ctx context.Context, event ports.OutboxEvent) error {
	model := referralOutboxModel{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      string(event.Payload),
		CreatedAt:    event.OccurredAt,
		FirstSeenAt:  event.OccurredAt,
	}
	if model.OutboxID == uuid.Nil {
		model.OutboxID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("enqueue outbox event: %w", err)
	}
	return nil
}

const claimOutboxSQL = `
UPDATE referral_outbox
SET claim_token = ?, claim_until = ?
WHERE outbox_id IN (
	SELECT outbox_id
	FROM referral_outbox
	WHERE published_at IS NULL
	  AND dead_lettered_at IS NULL
	  AND (claim_until IS NULL OR claim_until < ?)
	ORDER BY created_at ASC
	LIMIT ?
	FOR UPDATE SKIP LOCKED
)
RETURNING outbox_id, event_type, partition_key, payload, created_at,
	first_seen_at, published_at, retry_count, last_error, last_error_at,
	claim_token, claim_until, dead_lettered_at`

// ClaimUnpublished leases a batch of unpublished rows to one worker until
// claimUntil. A crashed worker's lease simply expires and the rows become
// claimable again.
func (r *OutboxRepository) ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]ports.OutboxRecord, error) {
	var models []referralOutboxModel
	err := r.db.WithContext(ctx).
		Raw(claimOutboxSQL, claimToken, claimUntil, time.Now().UTC(), limit).
		Scan(&models).Error
	if err != nil {
		return nil, fmt.Errorf("claim outbox rows: %w", err)
	}
	out := make([]ports.OutboxRecord, 0, len(models))
	for _, m := range models {
		out = append(out, toOutboxRecord(m))
	}
	return out, nil
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&referralOutboxModel{}).
		Where("outbox_id = ? AND claim_token = ?", outboxID, claimToken).
		Updates(map[string]any{
			"published_at": at,
			"claim_token":  nil,
			"claim_until":  nil,
		})
	if res.Error != nil {
		return fmt.Errorf("mark outbox published: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: outbox claim lost", domain.ErrConflict)
	}
	return nil
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&referralOutboxModel{}).
		Where("outbox_id = ? AND claim_token = ?", outboxID, claimToken).
		Updates(map[string]any{
			"retry_count":   gorm.Expr("retry_count + 1"),
			"last_error":    errMsg,
			"last_error_at": at,
			"claim_token":   nil,
			"claim_until":   nil,
		})
	if res.Error != nil {
		return fmt.Errorf("mark outbox failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: outbox claim lost", domain.ErrConflict)
	}
	return nil
}

func (r *OutboxRepository) MarkDeadLettered(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&referralOutboxModel{}).
		Where("outbox_id = ? AND claim_token = ?", outboxID, claimToken).
		Updates(map[string]any{
			"dead_lettered_at": at,
			"last_error":       errMsg,
			"last_error_at":    at,
			"claim_token":      nil,
			"claim_until":      nil,
		})
	if res.Error != nil {
		return fmt.Errorf("mark outbox dead lettered: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: outbox claim lost", domain.ErrConflict)
	}
	return nil
}

var _ ports.OutboxRepository = (*OutboxRepository)(nil)
