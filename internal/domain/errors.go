package domain

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist.
	// Keeping this sentinel in domain allows adapters to map it consistently to 404/NOT_FOUND.
	ErrNotFound = errors.New("resource not found")
	// ErrConflict signals a uniqueness violation (duplicate email, referral code, claim).
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// ErrTokenInvalid covers malformed and tampered attribution tokens.
	// Token failures are signal errors: the resolver falls through, never fails the signup.
	ErrTokenInvalid = errors.New("attribution token invalid")
	ErrTokenExpired = errors.New("attribution token expired")

	// ErrSelfReferral is returned when a candidate referrer is the signup itself
	// or shares the signup's contact identifier.
	ErrSelfReferral = errors.New("self referral")
	// ErrVelocityExceeded denies click intake from an origin above the rate threshold.
	ErrVelocityExceeded = errors.New("click velocity exceeded")

	// ErrTierProhibited blocks activation of a tier whose approval status is prohibited.
	ErrTierProhibited = errors.New("tier activation prohibited")
	ErrInvalidTier    = errors.New("invalid tier number")

	// ErrInvalidTransition guards the forward-only attempt and transaction state machines.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrIdempotencyConflict is returned when an idempotency key is replayed
	// with a different request payload.
	ErrIdempotencyConflict = errors.New("idempotency conflict")

	// ErrPayoutNotReady means the beneficiary has no usable payout destination.
	ErrPayoutNotReady = errors.New("beneficiary cannot receive payouts")
	// ErrBatchClaimed means another settlement run already claimed this
	// (run, beneficiary) pair; callers treat it as success-no-op.
	ErrBatchClaimed = errors.New("settlement batch already claimed")
)
