package domain

import (
	"time"

	"github.com/google/uuid"
)

// CommissionTransaction statuses.
// pending -> available (clearing interval elapsed)
// available -> paid_out (batch settlement)
// pending/available -> failed (payout rejected; terminal unless manually reset)
const (
	TxnPending   = "pending"
	TxnAvailable = "available"
	TxnPaidOut   = "paid_out"
	TxnFailed    = "failed"
)

// PayoutBatch statuses. A batch is claimed atomically before the provider
// call so a duplicate settlement run can never double-pay.
const (
	BatchClaimed = "claimed"
	BatchSettled = "settled"
	BatchFailed  = "failed"
)

// CommissionTransaction is one tier's earned commission for one payment event.
// The (BookingID, Tier) pair is the idempotency key against replayed
// payment notifications.
type CommissionTransaction struct {
	TransactionID uuid.UUID
	BeneficiaryID uuid.UUID
	BookingID     uuid.UUID
	Tier          int
	Rate          float64
	Amount        float64
	Status        string
	CreatedAt     time.Time
	AvailableAt   *time.Time
	PaidOutAt     *time.Time
	BatchID       *uuid.UUID
	FailureReason *string
}

// CanTransitionTxn enforces the settlement state machine.
func CanTransitionTxn(from, to string) bool {
	switch from {
	case TxnPending:
		return to == TxnAvailable || to == TxnFailed
	case TxnAvailable:
		return to == TxnPaidOut || to == TxnFailed
	default:
		return false
	}
}

// Delegation redirects tier-1 commission for bookings against one listing.
// It never alters tier-2+ resolution.
type Delegation struct {
	ListingID  uuid.UUID
	DelegateID uuid.UUID
}

// PayoutBatch groups one beneficiary's matured transactions for one
// settlement run. (RunID, BeneficiaryID) is unique.
type PayoutBatch struct {
	BatchID       uuid.UUID
	RunID         string
	BeneficiaryID uuid.UUID
	Amount        float64
	Status        string
	ProviderRef   string
	FailureReason string
	CreatedAt     time.Time
	SettledAt     *time.Time
}

// PayoutPreference gates whether a beneficiary joins a settlement run.
type PayoutPreference struct {
	AccountID uuid.UUID
	MinAmount float64
	Cadence   string
	OptedOut  bool
	PayoutRef string
	UpdatedAt time.Time
}

// Payout cadences.
const (
	CadenceWeekly  = "weekly"
	CadenceMonthly = "monthly"
)

// NormalizeCadence defaults unknown cadences to weekly.
func NormalizeCadence(raw string) string {
	if raw == CadenceMonthly {
		return CadenceMonthly
	}
	return CadenceWeekly
}
