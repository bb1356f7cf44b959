package payout

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/ports"
)

// SandboxProvider accepts every transfer without calling a rail.
// Used in local and staging environments.
type SandboxProvider struct {
	logger *slog.Logger
}

func NewSandboxProvider(logger *slog.Logger) *SandboxProvider {
	return &SandboxProvider{logger: logger}
}

func (p *SandboxProvider) Payout(ctx context.Context, beneficiaryRef string, amount float64, idempotencyKey string) (ports.PayoutResult, error) {
	ref := "sandbox-" + uuid.NewString()
	p.logger.InfoContext(ctx, "sandbox payout accepted",
		"module", "payout.sandbox",
		"layer", "adapter",
		"operation", "payout",
		"outcome", "success",
		"destination", beneficiaryRef,
		"amount", amount,
		"idempotency_key", idempotencyKey,
		"provider_ref", ref,
	)
	return ports.PayoutResult{ProviderRef: ref}, nil
}

func (p *SandboxProvider) CanReceivePayouts(_ context.Context, _ string) (bool, string, error) {
	return true, "", nil
}

var _ ports.PayoutProvider = (*SandboxProvider)(nil)
