package grpc

import (
	"context"

	"github.com/google/uuid"

	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/ports"
)

// ListingClient resolves listing-scoped commission delegations from the
// listing service. The transport stub stands in until the listing service
// exposes its delegation RPC on this mesh segment.
type ListingClient struct {
	target string
}

func NewListingClient(target string) *ListingClient {
	return &ListingClient{target: target}
}

func (c *ListingClient) DelegateForListing(_ context.Context, listingID uuid.UUID) (*uuid.UUID, error) {
	_ = listingID
	return nil, nil
}

var _ ports.DelegationReader = (*ListingClient)(nil)
