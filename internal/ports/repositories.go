package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/domain"
)

// CreateAccountTxParams captures atomic signup inputs.
// Attribution fields travel with account creation so the write-once referral
// binding and the account row commit or roll back together.
type CreateAccountTxParams struct {
	Email          string
	ReferralCode   string
	ReferredBy     *uuid.UUID
	ReferralSource string
	RegisteredAt   time.Time
	// AttributedAttemptID, when set, is flipped from clicked to attributed
	// inside the same transaction.
	AttributedAttemptID *uuid.UUID
}

// AccountRepository defines persistence for referral-bearing accounts.
// The transactional create enforces account+attribution+attempt+outbox consistency.
type AccountRepository interface {
	CreateWithAttributionTx(ctx context.Context, params CreateAccountTxParams, outboxEvent OutboxEvent) (domain.Account, error)
	GetByID(ctx context.Context, accountID uuid.UUID) (domain.Account, error)
	GetByReferralCode(ctx context.Context, code string) (domain.Account, error)
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
}

// AttemptRepository manages the click/attribute/convert pipeline records.
type AttemptRepository interface {
	Create(ctx context.Context, attempt domain.ReferralAttempt) (domain.ReferralAttempt, error)
	// LatestClicked returns the most recent unattributed clicked attempt for
	// the referrer, or ErrNotFound.
	LatestClicked(ctx context.Context, referrerID uuid.UUID) (domain.ReferralAttempt, error)
	// LatestForAccount returns the attempt bound to the referred account, or ErrNotFound.
	LatestForAccount(ctx context.Context, accountID uuid.UUID) (domain.ReferralAttempt, error)
	MarkConverted(ctx context.Context, attemptID uuid.UUID, at time.Time) error
	MarkBlocked(ctx context.Context, attemptID uuid.UUID, at time.Time) error
}

// TierRepository owns commission tier configuration and its audit trail.
type TierRepository interface {
	ListAll(ctx context.Context) ([]domain.TierConfig, error)
	Get(ctx context.Context, tier int) (domain.TierConfig, error)
	// SetActive flips the active flag, stamps approval and audit metadata.
	SetActive(ctx context.Context, tier int, active bool, approval string, actorID uuid.UUID, notes string, at time.Time) error
}

// CommissionRepository persists the settlement ledger rows.
type CommissionRepository interface {
	// CreateIfAbsent inserts the transaction unless (BookingID, Tier) already
	// exists; the bool reports whether a row was created.
	CreateIfAbsent(ctx context.Context, txn domain.CommissionTransaction) (bool, error)
	ListByBeneficiary(ctx context.Context, beneficiaryID uuid.UUID, limit, offset int) ([]domain.CommissionTransaction, error)
	// MaturePending advances pending rows created before cutoff to available,
	// one atomic row transition at a time. Returns rows changed.
	MaturePending(ctx context.Context, cutoff, at time.Time) (int, error)
	// SumAvailableByBeneficiary groups unclaimed available amounts per beneficiary.
	SumAvailableByBeneficiary(ctx context.Context) (map[uuid.UUID]float64, error)
	// ClaimAvailableForBatch atomically stamps all unclaimed available rows of
	// the beneficiary with the batch id and returns them.
	ClaimAvailableForBatch(ctx context.Context, beneficiaryID, batchID uuid.UUID) ([]domain.CommissionTransaction, error)
	MarkBatchPaidOut(ctx context.Context, batchID uuid.UUID, at time.Time) error
	MarkBatchFailed(ctx context.Context, batchID uuid.UUID, reason string, at time.Time) error
}

// BatchRepository persists settlement batches. CreateClaim is the settlement
// idempotency barrier: a second insert for (RunID, BeneficiaryID) returns
// domain.ErrBatchClaimed.
type BatchRepository interface {
	CreateClaim(ctx context.Context, batch domain.PayoutBatch) error
	MarkSettled(ctx context.Context, batchID uuid.UUID, providerRef string, at time.Time) error
	MarkFailed(ctx context.Context, batchID uuid.UUID, reason string, at time.Time) error
	GetByRunAndBeneficiary(ctx context.Context, runID string, beneficiaryID uuid.UUID) (domain.PayoutBatch, error)
}

// PreferenceRepository reads per-beneficiary payout gates.
type PreferenceRepository interface {
	Get(ctx context.Context, accountID uuid.UUID) (domain.PayoutPreference, error)
	Upsert(ctx context.Context, pref domain.PayoutPreference) error
}

// OutboxEvent is the write-side event payload prior to storage.
// It is adapter-neutral to keep application code independent of broker specifics.
type OutboxEvent struct {
	EventID      uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	OccurredAt   time.Time
}

// OutboxRecord represents durable outbox state, including retry/error metadata.
type OutboxRecord struct {
	OutboxID       uuid.UUID
	EventType      string
	PartitionKey   string
	Payload        []byte
	RetryCount     int
	LastError      *string
	CreatedAt      time.Time
	PublishedAt    *time.Time
	LastErrorAt    *time.Time
	FirstSeenAt    time.Time
	ClaimToken     *string
	ClaimUntil     *time.Time
	DeadLetteredAt *time.Time
}

// OutboxRepository controls publish-retry workflow for domain events.
// This explicit contract enables transactional outbox patterns without leaking DB details.
type OutboxRepository interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
	ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
	MarkDeadLettered(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
}

// IdempotencyRecord tracks a previously accepted mutating request.
// Storing response metadata lets handlers return stable replay responses.
type IdempotencyRecord struct {
	Key          string
	RequestHash  string
	Status       string
	ResponseCode int
	ResponseBody []byte
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IdempotencyRepository enforces idempotent mutation semantics.
type IdempotencyRepository interface {
	Get(ctx context.Context, key string) (*IdempotencyRecord, error)
	Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error
	Complete(ctx context.Context, key string, responseCode int, responseBody []byte, at time.Time) error
}
