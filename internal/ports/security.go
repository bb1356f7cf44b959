package ports

import (
	"time"

	"github.com/google/uuid"
)

// ReferralTokenClaims is the verified payload of an attribution token.
type ReferralTokenClaims struct {
	ReferrerID  uuid.UUID
	Destination string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// ReferralTokenCodec signs and verifies attribution tokens that bridge the
// click-to-signup gap without server-side session state. Verify must treat
// malformed input as a definite rejection, never a panic.
type ReferralTokenCodec interface {
	Issue(referrerID uuid.UUID, destination string, now time.Time) (string, error)
	Verify(raw string, now time.Time) (ReferralTokenClaims, error)
}
