package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/ports"
)

// payoutCallTimeout bounds one provider invocation.
const payoutCallTimeout = 10 * time.Second

// MaturePending advances pending commissions past the clearing interval to
// available. Each row transitions atomically, so an interrupted sweep leaves
// no hybrid state, and a re-run with no time advance changes nothing.
func (s *Service) MaturePending(ctx context.Context, actor Actor) (int, error) {
	if actor.SubjectID == uuid.Nil {
		return 0, domain.ErrUnauthorized
	}
	role := normalizeRole(actor.Role)
	if role != "admin" && role != "scheduler" {
		return 0, domain.ErrForbidden
	}

	now := s.nowFn()
	cutoff := now.Add(-s.cfg.ClearingInterval)
	count, err := s.commissions.MaturePending(ctx, cutoff, now)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.appLogger().InfoContext(ctx, "pending commissions matured",
			"operation", "mature_pending",
			"outcome", "success",
			"matured_count", count,
		)
	}
	return count, nil
}

// RunBatchSettlement groups available commissions per beneficiary, applies
// payout-preference gates, and settles each group through the payout
// provider. The (run, beneficiary) claim row is the idempotency barrier: a
// concurrent or replayed run skips already-claimed groups instead of
// double-paying.
func (s *Service) RunBatchSettlement(ctx context.Context, actor Actor, runID string) (SettlementReport, error) {
	if actor.SubjectID == uuid.Nil {
		return SettlementReport{}, domain.ErrUnauthorized
	}
	role := normalizeRole(actor.Role)
	if role != "admin" && role != "scheduler" {
		return SettlementReport{}, domain.ErrForbidden
	}
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return SettlementReport{}, fmt.Errorf("%w: run id is required", domain.ErrInvalidInput)
	}

	sums, err := s.commissions.SumAvailableByBeneficiary(ctx)
	if err != nil {
		return SettlementReport{}, err
	}

	// Deterministic order keeps concurrent runs contending in the same
	// sequence and makes reports reproducible.
	beneficiaries := make([]uuid.UUID, 0, len(sums))
	for id := range sums {
		beneficiaries = append(beneficiaries, id)
	}
	sort.Slice(beneficiaries, func(i, j int) bool {
		return beneficiaries[i].String() < beneficiaries[j].String()
	})

	report := SettlementReport{RunID: runID}
	now := s.nowFn()

	for _, beneficiaryID := range beneficiaries {
		amount := sums[beneficiaryID]
		pref := s.preferenceFor(ctx, beneficiaryID)

		if pref.OptedOut {
			report.Skipped++
			continue
		}
		minAmount := s.cfg.MinPayoutAmount
		if pref.MinAmount > minAmount {
			minAmount = pref.MinAmount
		}
		if amount < minAmount {
			report.Skipped++
			continue
		}
		// Monthly-cadence beneficiaries join only the first run window of the
		// month; weekly joins every run.
		if pref.Cadence == domain.CadenceMonthly && now.Day() > 7 {
			report.Skipped++
			continue
		}

		report.Eligible++
		outcome := s.settleBeneficiary(ctx, runID, beneficiaryID, pref, now)
		switch outcome.status {
		case domain.BatchSettled:
			report.Settled++
			report.TotalPaid += outcome.amount
		case domain.BatchFailed:
			report.Failed++
			report.FailureNotes = append(report.FailureNotes,
				fmt.Sprintf("%s: %s", beneficiaryID, outcome.reason))
		default:
			// Claimed by another run: success-no-op.
			report.Skipped++
		}
	}

	report.CompletedAt = s.nowFn()
	s.appLogger().InfoContext(ctx, "settlement run completed",
		"operation", "run_batch_settlement",
		"outcome", "success",
		"run_id", runID,
		"eligible", report.Eligible,
		"settled", report.Settled,
		"failed", report.Failed,
		"skipped", report.Skipped,
	)
	return report, nil
}

type settlementOutcome struct {
	status string
	amount float64
	reason string
}

// settleBeneficiary claims and pays one beneficiary's group. The claim row
// insert and the per-row batch stamp happen before the provider call, so an
// interruption leaves rows either unclaimed or claimed-and-resolvable, never
// ambiguously paid.
func (s *Service) settleBeneficiary(ctx context.Context, runID string, beneficiaryID uuid.UUID, pref domain.PayoutPreference, now time.Time) settlementOutcome {
	batch := domain.PayoutBatch{
		BatchID:       uuid.New(),
		RunID:         runID,
		BeneficiaryID: beneficiaryID,
		Status:        domain.BatchClaimed,
		CreatedAt:     now,
	}
	if err := s.batches.CreateClaim(ctx, batch); err != nil {
		if errors.Is(err, domain.ErrBatchClaimed) || errors.Is(err, domain.ErrConflict) {
			return settlementOutcome{status: domain.BatchClaimed}
		}
		return s.failBatch(ctx, batch, nil, fmt.Sprintf("claim batch: %v", err), now)
	}

	txns, err := s.commissions.ClaimAvailableForBatch(ctx, beneficiaryID, batch.BatchID)
	if err != nil {
		return s.failBatch(ctx, batch, nil, fmt.Sprintf("claim transactions: %v", err), now)
	}
	if len(txns) == 0 {
		// Another run's row-level claim won; nothing owed here.
		_ = s.batches.MarkFailed(ctx, batch.BatchID, "no claimable transactions", now)
		return settlementOutcome{status: domain.BatchClaimed}
	}

	amount := 0.0
	for _, txn := range txns {
		amount += txn.Amount
	}

	payoutRef := strings.TrimSpace(pref.PayoutRef)
	if payoutRef == "" {
		return s.failBatch(ctx, batch, txns, "missing payout destination", now)
	}

	ready, reason, err := s.payouts.CanReceivePayouts(ctx, payoutRef)
	if err != nil {
		return s.failBatch(ctx, batch, txns, fmt.Sprintf("payout readiness check: %v", err), now)
	}
	if !ready {
		return s.failBatch(ctx, batch, txns, fmt.Sprintf("%v: %s", domain.ErrPayoutNotReady, reason), now)
	}

	idempotencyKey := fmt.Sprintf("settlement:%s:%s", runID, beneficiaryID)
	result, err := s.payoutWithRetry(ctx, payoutRef, amount, idempotencyKey)
	if err != nil {
		return s.failBatch(ctx, batch, txns, fmt.Sprintf("payout provider: %v", err), now)
	}

	settledAt := s.nowFn()
	if err := s.batches.MarkSettled(ctx, batch.BatchID, result.ProviderRef, settledAt); err != nil {
		s.appLogger().ErrorContext(ctx, "batch settle stamp failed after provider success",
			"operation", "settle_beneficiary",
			"outcome", "failure",
			"batch_id", batch.BatchID,
			"provider_ref", result.ProviderRef,
			"error", err,
		)
	}
	if err := s.commissions.MarkBatchPaidOut(ctx, batch.BatchID, settledAt); err != nil {
		s.appLogger().ErrorContext(ctx, "transaction payout stamp failed after provider success",
			"operation", "settle_beneficiary",
			"outcome", "failure",
			"batch_id", batch.BatchID,
			"error", err,
		)
	}
	s.enqueueEvent(ctx, "payout.batch.settled", beneficiaryID.String(), map[string]any{
		"batch_id":       batch.BatchID,
		"run_id":         runID,
		"beneficiary_id": beneficiaryID,
		"amount":         amount,
		"provider_ref":   result.ProviderRef,
		"occurred_at":    settledAt,
	})
	return settlementOutcome{status: domain.BatchSettled, amount: amount}
}

// failBatch marks the batch and any claimed rows failed, and reports to the
// operator channel via the outbox. Failures are terminal unless manually reset.
func (s *Service) failBatch(ctx context.Context, batch domain.PayoutBatch, txns []domain.CommissionTransaction, reason string, now time.Time) settlementOutcome {
	_ = s.batches.MarkFailed(ctx, batch.BatchID, reason, now)
	if len(txns) > 0 {
		_ = s.commissions.MarkBatchFailed(ctx, batch.BatchID, reason, now)
	}
	s.appLogger().ErrorContext(ctx, "settlement batch failed",
		"operation", "settle_beneficiary",
		"outcome", "failure",
		"batch_id", batch.BatchID,
		"run_id", batch.RunID,
		"beneficiary_id", batch.BeneficiaryID,
		"reason", reason,
	)
	s.enqueueEvent(ctx, "payout.batch.failed", batch.BeneficiaryID.String(), map[string]any{
		"batch_id":       batch.BatchID,
		"run_id":         batch.RunID,
		"beneficiary_id": batch.BeneficiaryID,
		"reason":         reason,
		"occurred_at":    now,
	})
	return settlementOutcome{status: domain.BatchFailed, reason: reason}
}

// payoutWithRetry performs one bounded provider call plus a single backoff
// retry. After that the batch fails rather than lingering ambiguous.
func (s *Service) payoutWithRetry(ctx context.Context, payoutRef string, amount float64, idempotencyKey string) (ports.PayoutResult, error) {
	var lastErr error
	attempts := 1 + s.cfg.PayoutMaxRetries
	backoff := s.cfg.PayoutBackoff
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			s.sleepFn(backoff)
			backoff *= 2
		}
		callCtx, cancel := boundedCtx(ctx, payoutCallTimeout)
		res, callErr := s.payouts.Payout(callCtx, payoutRef, amount, idempotencyKey)
		cancel()
		if callErr == nil {
			return res, nil
		}
		lastErr = callErr
	}
	return ports.PayoutResult{}, lastErr
}

// preferenceFor loads payout gates, defaulting absent rows to weekly with no
// destination configured.
func (s *Service) preferenceFor(ctx context.Context, beneficiaryID uuid.UUID) domain.PayoutPreference {
	pref, err := s.preferences.Get(ctx, beneficiaryID)
	if err != nil {
		return domain.PayoutPreference{AccountID: beneficiaryID, Cadence: domain.CadenceWeekly}
	}
	pref.Cadence = domain.NormalizeCadence(pref.Cadence)
	return pref
}
