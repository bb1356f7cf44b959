package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/ports"
)

// AccountRepository implements ports.AccountRepository over Postgres.
type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// CreateWithAttributionTx inserts the account, flips the attributed attempt,
// and enqueues the outbox event in one transaction. A partial write would
// leave an account without its attribution trail, so all three commit or none.
func (r *AccountRepository) CreateWithAttributionTx(ctx context.Context, params ports.CreateAccountTxParams, outboxEvent ports.OutboxEvent) (domain.Account, error) {
	model := accountModel{
		AccountID:      uuid.New(),
		Email:          params.Email,
		ReferralCode:   params.ReferralCode,
		ReferredBy:     params.ReferredBy,
		ReferralSource: params.ReferralSource,
		CreatedAt:      params.RegisteredAt,
		UpdatedAt:      params.RegisteredAt,
	}
	if params.ReferredBy != nil {
		at := params.RegisteredAt
		model.ReferredAt = &at
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&model).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: account already exists", domain.ErrConflict)
			}
			return fmt.Errorf("insert account: %w", err)
		}

		if params.AttributedAttemptID != nil {
			res := tx.Model(&referralAttemptModel{}).
				Where("attempt_id = ? AND state = ?", *params.AttributedAttemptID, domain.AttemptClicked).
				Updates(map[string]any{
					"state":               domain.AttemptAttributed,
					"referred_account_id": model.AccountID,
					"attributed_at":       params.RegisteredAt,
				})
			if res.Error != nil {
				return fmt.Errorf("attribute attempt: %w", res.Error)
			}
			// A raced or blocked attempt simply stays behind; attribution on
			// the account row is the source of truth.
		}

		outboxRow := referralOutboxModel{
			OutboxID:     outboxEvent.EventID,
			EventType:    outboxEvent.EventType,
			PartitionKey: outboxEvent.PartitionKey,
			Payload:      string(outboxEvent.Payload),
			CreatedAt:    outboxEvent.OccurredAt,
			FirstSeenAt:  outboxEvent.OccurredAt,
		}
		if err := tx.Create(&outboxRow).Error; err != nil {
			return fmt.Errorf("enqueue outbox: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Account{}, err
	}
	return toDomainAccount(model), nil
}

func (r *AccountRepository) GetByID(ctx context.Context, accountID uuid.UUID) (domain.Account, error) {
	var model accountModel
	err := r.db.WithContext(ctx).First(&model, "account_id = ?", accountID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Account{}, fmt.Errorf("%w: account %s", domain.ErrNotFound, accountID)
		}
		return domain.Account{}, fmt.Errorf("get account: %w", err)
	}
	return toDomainAccount(model), nil
}

func (r *AccountRepository) GetByReferralCode(ctx context.Context, code string) (domain.Account, error) {
	var model accountModel
	err := r.db.WithContext(ctx).First(&model, "referral_code = ?", code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Account{}, fmt.Errorf("%w: referral code", domain.ErrNotFound)
		}
		return domain.Account{}, fmt.Errorf("get account by code: %w", err)
	}
	return toDomainAccount(model), nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	var model accountModel
	err := r.db.WithContext(ctx).First(&model, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Account{}, fmt.Errorf("%w: account email", domain.ErrNotFound)
		}
		return domain.Account{}, fmt.Errorf("get account by email: %w", err)
	}
	return toDomainAccount(model), nil
}

var _ ports.AccountRepository = (*AccountRepository)(nil)
