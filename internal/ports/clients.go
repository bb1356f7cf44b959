package ports

import (
	"context"

	"github.com/google/uuid"
)

// PayoutResult is the provider's answer to a transfer request.
type PayoutResult struct {
	ProviderRef string
}

// PayoutProvider abstracts the external payment processor.
// Implementations must bound each call and surface definite success/failure;
// the application layer owns retry policy.
type PayoutProvider interface {
	Payout(ctx context.Context, beneficiaryRef string, amount float64, idempotencyKey string) (PayoutResult, error)
	CanReceivePayouts(ctx context.Context, beneficiaryRef string) (bool, string, error)
}

// DelegationReader looks up listing-scoped tier-1 overrides owned by the
// listing service. A nil result means no delegation.
type DelegationReader interface {
	DelegateForListing(ctx context.Context, listingID uuid.UUID) (*uuid.UUID, error)
}
