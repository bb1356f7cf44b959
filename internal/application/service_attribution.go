package application

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/ports"
)

// referralCandidate is one resolved attribution signal awaiting fraud checks.
type referralCandidate struct {
	referrer domain.Account
	source   string
}

// RegisterAccount creates the account and binds its permanent attribution in
// one transaction. Signals are evaluated in fixed priority (explicit code,
// then signed token, then manual code) with short-circuit on the first valid
// candidate.
// Every signal failure is non-fatal: a signup with three bad signals still
// succeeds, with source none.
func (s *Service) RegisterAccount(ctx context.Context, input SignupInput, idempotencyKey string) (domain.Account, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return domain.Account{}, err
	}

	if replay, err := s.reserveIdempotency(ctx, idempotencyKey, input); err != nil {
		return domain.Account{}, err
	} else if replay != nil {
		var cached domain.Account
		if err := json.Unmarshal(replay.ResponseBody, &cached); err != nil {
			return domain.Account{}, err
		}
		return cached, nil
	}

	candidate := s.resolveCandidate(ctx, input, email)

	now := s.nowFn()
	params := ports.CreateAccountTxParams{
		Email:          email,
		ReferralCode:   domain.GenerateReferralCode(),
		ReferralSource: domain.SourceNone,
		RegisteredAt:   now,
	}

	eventType := "account.created"
	partitionKey := email
	payload := map[string]any{"email": email, "registered_at": now}

	if candidate != nil {
		referrerID := candidate.referrer.AccountID
		params.ReferredBy = &referrerID
		params.ReferralSource = candidate.source
		if attempt, err := s.attempts.LatestClicked(ctx, referrerID); err == nil {
			attemptID := attempt.AttemptID
			params.AttributedAttemptID = &attemptID
		} else if !errors.Is(err, domain.ErrNotFound) {
			s.appLogger().WarnContext(ctx, "attempt lookup failed",
				"operation", "resolve_attribution",
				"outcome", "warning",
				"referrer_id", referrerID,
				"error", err,
			)
		}
		eventType = "referral.attributed"
		partitionKey = referrerID.String()
		payload["referrer_id"] = referrerID
		payload["source"] = candidate.source
	}

	raw, _ := json.Marshal(payload)
	account, err := s.createWithCodeRetry(ctx, params, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    eventType,
		PartitionKey: partitionKey,
		Payload:      raw,
		OccurredAt:   now,
	})
	if err != nil {
		return domain.Account{}, err
	}

	s.completeIdempotency(ctx, idempotencyKey, http.StatusCreated, account)
	return account, nil
}

// resolveCandidate walks the prioritized signals and returns the first
// candidate that survives both fraud checks, or nil for no attribution.
func (s *Service) resolveCandidate(ctx context.Context, input SignupInput, email string) *referralCandidate {
	producers := []func(context.Context) (*referralCandidate, error){
		func(ctx context.Context) (*referralCandidate, error) {
			return s.candidateFromCode(ctx, input.ExplicitCode, domain.SourceExplicitCode)
		},
		func(ctx context.Context) (*referralCandidate, error) {
			return s.candidateFromToken(ctx, input.Token)
		},
		func(ctx context.Context) (*referralCandidate, error) {
			return s.candidateFromCode(ctx, input.ManualCode, domain.SourceManualCode)
		},
	}

	for _, produce := range producers {
		candidate, err := produce(ctx)
		if err != nil {
			// Malformed/expired/unknown signals degrade to "no signal".
			s.appLogger().InfoContext(ctx, "attribution signal rejected",
				"operation", "resolve_attribution",
				"outcome", "fallthrough",
				"reason", err.Error(),
			)
			continue
		}
		if candidate == nil {
			continue
		}
		if err := checkSelfAssociation(candidate.referrer, uuid.Nil, email); err != nil {
			s.logFraudDenial(ctx, "self_association", candidate.referrer.AccountID, email)
			s.blockLatestAttempt(ctx, candidate.referrer.AccountID)
			continue
		}
		if err := s.checkVelocity(ctx, input.IPAddress); err != nil {
			s.logFraudDenial(ctx, "velocity", candidate.referrer.AccountID, input.IPAddress)
			continue
		}
		if s.chainContainsSelf(ctx, candidate.referrer) {
			s.logFraudDenial(ctx, "chain_cycle", candidate.referrer.AccountID, email)
			continue
		}
		return candidate
	}
	return nil
}

// candidateFromCode resolves an explicit or manually typed referral code.
func (s *Service) candidateFromCode(ctx context.Context, rawCode, source string) (*referralCandidate, error) {
	code := domain.NormalizeReferralCode(rawCode)
	if code == "" {
		return nil, nil
	}
	if err := domain.ValidateReferralCode(code); err != nil {
		return nil, err
	}
	referrer, err := s.accounts.GetByReferralCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return &referralCandidate{referrer: referrer, source: source}, nil
}

// candidateFromToken verifies the signed attribution token.
func (s *Service) candidateFromToken(ctx context.Context, raw string) (*referralCandidate, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	claims, err := s.tokens.Verify(raw, s.nowFn())
	if err != nil {
		return nil, err
	}
	referrer, err := s.accounts.GetByID(ctx, claims.ReferrerID)
	if err != nil {
		return nil, err
	}
	return &referralCandidate{referrer: referrer, source: domain.SourceToken}, nil
}

// chainContainsSelf walks the candidate's referred_by pointers, bounded by the
// maximum tier depth, and reports whether the chain loops back onto the
// candidate. With write-once attribution this can only happen via corrupt
// data, but the resolver is the single place cycles could enter the forest.
func (s *Service) chainContainsSelf(ctx context.Context, candidate domain.Account) bool {
	current := candidate
	for depth := 0; depth < domain.MaxTierDepth; depth++ {
		if !current.HasReferrer() {
			return false
		}
		next, err := s.accounts.GetByID(ctx, *current.ReferredBy)
		if err != nil {
			return false
		}
		if next.AccountID == candidate.AccountID {
			return true
		}
		current = next
	}
	return false
}

// blockLatestAttempt records a fraud denial on the pipeline instead of
// leaving the attempt dangling in clicked.
func (s *Service) blockLatestAttempt(ctx context.Context, referrerID uuid.UUID) {
	attempt, err := s.attempts.LatestClicked(ctx, referrerID)
	if err != nil {
		return
	}
	if err := s.attempts.MarkBlocked(ctx, attempt.AttemptID, s.nowFn()); err != nil {
		s.appLogger().WarnContext(ctx, "attempt block failed",
			"operation", "block_attempt",
			"outcome", "failure",
			"attempt_id", attempt.AttemptID,
			"error", err,
		)
	}
}

// createWithCodeRetry retries account creation when the generated referral
// code collides. Email conflicts surface immediately.
func (s *Service) createWithCodeRetry(ctx context.Context, params ports.CreateAccountTxParams, event ports.OutboxEvent) (domain.Account, error) {
	const maxAttempts = 5
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		account, err := s.accounts.CreateWithAttributionTx(ctx, params, event)
		if err == nil {
			return account, nil
		}
		lastErr = err
		if !errors.Is(err, domain.ErrConflict) {
			return domain.Account{}, err
		}
		if _, lookupErr := s.accounts.GetByEmail(ctx, params.Email); lookupErr == nil {
			return domain.Account{}, domain.ErrConflict
		}
		params.ReferralCode = domain.GenerateReferralCode()
	}
	return domain.Account{}, lastErr
}
