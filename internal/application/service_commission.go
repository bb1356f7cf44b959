package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/domain"
)

// CommissionChainResult reports the transactions materialized for one payment.
type CommissionChainResult struct {
	BookingID    uuid.UUID                      `json:"booking_id"`
	Created      []domain.CommissionTransaction `json:"created"`
	SkippedTiers []int                          `json:"skipped_tiers,omitempty"`
}

// HandlePaymentCompleted walks the payee's referral chain through the
// contiguous run of active tiers and materializes one pending commission
// transaction per tier. Safe under at-least-once delivery: (booking, tier)
// uniqueness makes replays skip instead of duplicate.
func (s *Service) HandlePaymentCompleted(ctx context.Context, actor Actor, input PaymentInput, idempotencyKey string) (CommissionChainResult, error) {
	if actor.SubjectID == uuid.Nil {
		return CommissionChainResult{}, domain.ErrUnauthorized
	}
	if input.BookingID == uuid.Nil || input.PayeeID == uuid.Nil {
		return CommissionChainResult{}, fmt.Errorf("%w: booking and payee are required", domain.ErrInvalidInput)
	}
	if input.BasePayable <= 0 {
		return CommissionChainResult{}, fmt.Errorf("%w: base payable must be positive", domain.ErrInvalidInput)
	}

	if replay, err := s.reserveIdempotency(ctx, idempotencyKey, input); err != nil {
		return CommissionChainResult{}, err
	} else if replay != nil {
		var cached CommissionChainResult
		if err := json.Unmarshal(replay.ResponseBody, &cached); err != nil {
			return CommissionChainResult{}, err
		}
		return cached, nil
	}

	payee, err := s.accounts.GetByID(ctx, input.PayeeID)
	if err != nil {
		return CommissionChainResult{}, err
	}

	configs, err := s.tiers.ListAll(ctx)
	if err != nil {
		return CommissionChainResult{}, err
	}
	rates := domain.ActiveTierRates(configs)

	result := CommissionChainResult{BookingID: input.BookingID}
	now := s.nowFn()

	// The natural chain is walked via write-once referred_by pointers only.
	// A broken or short chain ends the walk early; that is fewer tiers paid,
	// not an error.
	current := payee.ReferredBy
	for tier := 1; current != nil && *current != uuid.Nil; tier++ {
		rate, ok := rates[tier]
		if !ok {
			break
		}

		beneficiary, err := s.accounts.GetByID(ctx, *current)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				break
			}
			return CommissionChainResult{}, err
		}

		beneficiaryID := beneficiary.AccountID
		if tier == 1 {
			if delegate := s.tier1Delegate(ctx, input.ListingID); delegate != nil {
				beneficiaryID = *delegate
			}
		}

		txn := domain.CommissionTransaction{
			TransactionID: uuid.New(),
			BeneficiaryID: beneficiaryID,
			BookingID:     input.BookingID,
			Tier:          tier,
			Rate:          rate,
			Amount:        input.BasePayable * rate,
			Status:        domain.TxnPending,
			CreatedAt:     now,
		}
		created, err := s.commissions.CreateIfAbsent(ctx, txn)
		if err != nil {
			return CommissionChainResult{}, err
		}
		if created {
			result.Created = append(result.Created, txn)
			s.enqueueEvent(ctx, "commission.created", beneficiaryID.String(), map[string]any{
				"transaction_id": txn.TransactionID,
				"beneficiary_id": beneficiaryID,
				"booking_id":     input.BookingID,
				"tier":           tier,
				"rate":           rate,
				"amount":         txn.Amount,
				"occurred_at":    now,
			})
		} else {
			result.SkippedTiers = append(result.SkippedTiers, tier)
		}

		// Delegation never alters the walk itself; tier 2+ always follows the
		// payee's natural chain.
		current = beneficiary.ReferredBy
	}

	s.markConvertedOnFirstPayment(ctx, payee)

	s.completeIdempotency(ctx, idempotencyKey, http.StatusOK, result)
	return result, nil
}

// tier1Delegate resolves the listing-scoped override for the direct referrer.
// Lookup failures degrade to the natural beneficiary.
func (s *Service) tier1Delegate(ctx context.Context, listingID *uuid.UUID) *uuid.UUID {
	if s.delegations == nil || listingID == nil || *listingID == uuid.Nil {
		return nil
	}
	delegate, err := s.delegations.DelegateForListing(ctx, *listingID)
	if err != nil {
		s.appLogger().WarnContext(ctx, "delegation lookup failed",
			"operation", "tier1_delegation",
			"outcome", "warning",
			"listing_id", *listingID,
			"error", err,
		)
		return nil
	}
	if delegate == nil || *delegate == uuid.Nil {
		return nil
	}
	return delegate
}

// markConvertedOnFirstPayment flips the payee's pipeline attempt to converted
// on their first qualifying payment. The transition guard makes replays no-ops.
func (s *Service) markConvertedOnFirstPayment(ctx context.Context, payee domain.Account) {
	if !payee.HasReferrer() {
		return
	}
	attempt, err := s.attempts.LatestForAccount(ctx, payee.AccountID)
	if err != nil {
		return
	}
	if !domain.CanTransitionAttempt(attempt.State, domain.AttemptConverted) {
		return
	}
	now := s.nowFn()
	if err := s.attempts.MarkConverted(ctx, attempt.AttemptID, now); err != nil {
		s.appLogger().WarnContext(ctx, "conversion mark failed",
			"operation", "mark_converted",
			"outcome", "failure",
			"attempt_id", attempt.AttemptID,
			"error", err,
		)
		return
	}
	s.enqueueEvent(ctx, "referral.converted", attempt.ReferrerID.String(), map[string]any{
		"attempt_id":  attempt.AttemptID,
		"referrer_id": attempt.ReferrerID,
		"account_id":  payee.AccountID,
		"occurred_at": now,
	})
}

// ListCommissions returns a beneficiary's ledger rows, newest first.
func (s *Service) ListCommissions(ctx context.Context, actor Actor, beneficiaryID uuid.UUID, limit, offset int) ([]domain.CommissionTransaction, error) {
	if actor.SubjectID == uuid.Nil {
		return nil, domain.ErrUnauthorized
	}
	if actor.SubjectID != beneficiaryID && normalizeRole(actor.Role) != "admin" {
		return nil, domain.ErrForbidden
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.commissions.ListByBeneficiary(ctx, beneficiaryID, limit, offset)
}
