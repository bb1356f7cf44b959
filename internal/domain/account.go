package domain

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Attribution sources, in resolver priority order.
const (
	SourceToken        = "token"
	SourceExplicitCode = "explicit_code"
	SourceManualCode   = "manual_code"
	SourceNone         = "none"
)

const (
	// ReferralCodeLength is fixed so codes stay typeable and scannable.
	ReferralCodeLength = 7
	// referralCodeAlphabet excludes 0/O, 1/I/L and lowercase to avoid
	// transcription errors on manually entered codes.
	referralCodeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"
)

// Account is the referral-relevant slice of a user account.
// ReferredBy is write-once: it is set inside the creation transaction or never.
type Account struct {
	AccountID      uuid.UUID
	Email          string
	ReferralCode   string
	ReferredBy     *uuid.UUID
	ReferralSource string
	ReferredAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasReferrer reports whether the account carries a permanent attribution.
func (a Account) HasReferrer() bool {
	return a.ReferredBy != nil && *a.ReferredBy != uuid.Nil
}

// GenerateReferralCode draws a fixed-length code from the unambiguous alphabet.
// Uniqueness is enforced by the store; callers retry on conflict.
func GenerateReferralCode() string {
	raw := make([]byte, ReferralCodeLength)
	_, _ = rand.Read(raw)
	var b strings.Builder
	b.Grow(ReferralCodeLength)
	for _, c := range raw {
		b.WriteByte(referralCodeAlphabet[int(c)%len(referralCodeAlphabet)])
	}
	return b.String()
}

// NormalizeReferralCode canonicalizes user-entered codes before lookup.
func NormalizeReferralCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// ValidateReferralCode checks length and alphabet membership.
func ValidateReferralCode(code string) error {
	if len(code) != ReferralCodeLength {
		return fmt.Errorf("%w: referral code must be %d characters", ErrInvalidInput, ReferralCodeLength)
	}
	for _, r := range code {
		if !strings.ContainsRune(referralCodeAlphabet, r) {
			return fmt.Errorf("%w: referral code contains invalid character", ErrInvalidInput)
		}
	}
	return nil
}

// ValidateSource rejects unknown attribution sources before persistence.
func ValidateSource(source string) error {
	switch source {
	case SourceToken, SourceExplicitCode, SourceManualCode, SourceNone:
		return nil
	default:
		return fmt.Errorf("%w: unknown referral source %q", ErrInvalidInput, source)
	}
}
