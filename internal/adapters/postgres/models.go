package postgres

import (
	"time"

	"github.com/google/uuid"
)

type accountModel struct {
	AccountID      uuid.UUID  `gorm:"column:account_id;type:uuid;primaryKey"`
	Email          string     `gorm:"column:email"`
	ReferralCode   string     `gorm:"column:referral_code"`
	ReferredBy     *uuid.UUID `gorm:"column:referred_by"`
	ReferralSource string     `gorm:"column:referral_source"`
	ReferredAt     *time.Time `gorm:"column:referred_at"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at"`
}

func (accountModel) TableName() string { return "accounts" }

type referralAttemptModel struct {
	AttemptID         uuid.UUID  `gorm:"column:attempt_id;type:uuid;primaryKey"`
	ReferrerID        uuid.UUID  `gorm:"column:referrer_id"`
	ReferralCode      string     `gorm:"column:referral_code"`
	ReferredAccountID *uuid.UUID `gorm:"column:referred_account_id"`
	State             string     `gorm:"column:state"`
	Channel           string     `gorm:"column:channel"`
	IPAddress         *string    `gorm:"column:ip_address"`
	UserAgent         string     `gorm:"column:user_agent"`
	CreatedAt         time.Time  `gorm:"column:created_at"`
	AttributedAt      *time.Time `gorm:"column:attributed_at"`
	ConvertedAt       *time.Time `gorm:"column:converted_at"`
}

func (referralAttemptModel) TableName() string { return "referral_attempts" }

type tierConfigModel struct {
	Tier        int        `gorm:"column:tier;primaryKey"`
	Rate        float64    `gorm:"column:rate"`
	Active      bool       `gorm:"column:active"`
	Approval    string     `gorm:"column:approval"`
	ActivatedBy *uuid.UUID `gorm:"column:activated_by"`
	ActivatedAt *time.Time `gorm:"column:activated_at"`
	Notes       string     `gorm:"column:notes"`
	UpdatedAt   time.Time  `gorm:"column:updated_at"`
}

func (tierConfigModel) TableName() string { return "tier_configs" }

type commissionTransactionModel struct {
	TransactionID uuid.UUID  `gorm:"column:transaction_id;type:uuid;primaryKey"`
	BeneficiaryID uuid.UUID  `gorm:"column:beneficiary_id"`
	BookingID     uuid.UUID  `gorm:"column:booking_id"`
	Tier          int        `gorm:"column:tier"`
	Rate          float64    `gorm:"column:rate"`
	Amount        float64    `gorm:"column:amount"`
	Status        string     `gorm:"column:status"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	AvailableAt   *time.Time `gorm:"column:available_at"`
	PaidOutAt     *time.Time `gorm:"column:paid_out_at"`
	BatchID       *uuid.UUID `gorm:"column:batch_id"`
	FailureReason *string    `gorm:"column:failure_reason"`
}

func (commissionTransactionModel) TableName() string { return "commission_transactions" }

type payoutBatchModel struct {
	BatchID       uuid.UUID  `gorm:"column:batch_id;type:uuid;primaryKey"`
	RunID         string     `gorm:"column:run_id"`
	BeneficiaryID uuid.UUID  `gorm:"column:beneficiary_id"`
	Amount        float64    `gorm:"column:amount"`
	Status        string     `gorm:"column:status"`
	ProviderRef   *string    `gorm:"column:provider_ref"`
	FailureReason *string    `gorm:"column:failure_reason"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	SettledAt     *time.Time `gorm:"column:settled_at"`
}

func (payoutBatchModel) TableName() string { return "payout_batches" }

type payoutPreferenceModel struct {
	AccountID uuid.UUID `gorm:"column:account_id;type:uuid;primaryKey"`
	MinAmount float64   `gorm:"column:min_amount"`
	Cadence   string    `gorm:"column:cadence"`
	OptedOut  bool      `gorm:"column:opted_out"`
	PayoutRef string    `gorm:"column:payout_ref"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (payoutPreferenceModel) TableName() string { return "payout_preferences" }

type referralOutboxModel struct {
	OutboxID       uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType      string     `gorm:"column:event_type"`
	PartitionKey   string     `gorm:"column:partition_key"`
	Payload        string     `gorm:"column:payload;type:jsonb"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	FirstSeenAt    time.Time  `gorm:"column:first_seen_at"`
	PublishedAt    *time.Time `gorm:"column:published_at"`
	RetryCount     int        `gorm:"column:retry_count"`
	LastError      *string    `gorm:"column:last_error"`
	LastErrorAt    *time.Time `gorm:"column:last_error_at"`
	ClaimToken     *string    `gorm:"column:claim_token"`
	ClaimUntil     *time.Time `gorm:"column:claim_until"`
	DeadLetteredAt *time.Time `gorm:"column:dead_lettered_at"`
}

func (referralOutboxModel) TableName() string { return "referral_outbox" }

type referralIdempotencyModel struct {
	IdempotencyKey string    `gorm:"column:idempotency_key;primaryKey"`
	RequestHash    string    `gorm:"column:request_hash"`
	Status         string    `gorm:"column:status"`
	ResponseCode   int       `gorm:"column:response_code"`
	ResponseBody   *string   `gorm:"column:response_body;type:jsonb"`
	ExpiresAt      time.Time `gorm:"column:expires_at"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (referralIdempotencyModel) TableName() string { return "referral_idempotency" }
