package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReferralAttempt states. Forward-only: clicked -> attributed -> converted.
// Blocked is terminal and records a fraud-guard denial instead of leaving the
// attempt dangling in clicked.
const (
	AttemptClicked    = "clicked"
	AttemptAttributed = "attributed"
	AttemptConverted  = "converted"
	AttemptBlocked    = "blocked"
)

// Referral channels.
const (
	ChannelLink   = "link"
	ChannelQR     = "qr"
	ChannelManual = "manual"
)

// ReferralAttempt tracks one click-to-conversion pipeline for a referrer.
// Client metadata is retained for fraud analysis only.
type ReferralAttempt struct {
	AttemptID         uuid.UUID
	ReferrerID        uuid.UUID
	ReferralCode      string
	ReferredAccountID *uuid.UUID
	State             string
	Channel           string
	IPAddress         string
	UserAgent         string
	CreatedAt         time.Time
	AttributedAt      *time.Time
	ConvertedAt       *time.Time
}

var attemptRank = map[string]int{
	AttemptClicked:    0,
	AttemptAttributed: 1,
	AttemptConverted:  2,
}

// CanTransitionAttempt enforces forward-only pipeline progression.
// Blocked is reachable only from clicked and has no outgoing transitions.
func CanTransitionAttempt(from, to string) bool {
	if from == AttemptBlocked {
		return false
	}
	if to == AttemptBlocked {
		return from == AttemptClicked
	}
	fromRank, okFrom := attemptRank[from]
	toRank, okTo := attemptRank[to]
	if !okFrom || !okTo {
		return false
	}
	return toRank == fromRank+1
}

// NormalizeChannel maps unknown channels to link, the dominant intake path.
func NormalizeChannel(raw string) string {
	switch raw {
	case ChannelQR:
		return ChannelQR
	case ChannelManual:
		return ChannelManual
	default:
		return ChannelLink
	}
}
