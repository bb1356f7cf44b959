package application

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/ports"
)

// Config carries the tunable policy knobs for the commission engine.
type Config struct {
	ServiceName string

	TokenTTL         time.Duration
	ClearingInterval time.Duration
	MinPayoutAmount  float64

	ClickVelocityThreshold int
	ClickVelocityWindow    time.Duration

	IdempotencyTTL   time.Duration
	PayoutMaxRetries int
	PayoutBackoff    time.Duration
}

// Actor is the authenticated caller context propagated by the HTTP adapter.
type Actor struct {
	SubjectID      uuid.UUID
	Role           string
	RequestID      string
	IdempotencyKey string
}

// IssueLinkInput requests a signed attribution token for a referrer.
type IssueLinkInput struct {
	ReferrerID  uuid.UUID
	Destination string
}

// ClickInput records one click-equivalent event on a referral link.
type ClickInput struct {
	ReferralCode string
	Channel      string
	IPAddress    string
	UserAgent    string
}

// SignupInput bundles the account draft with up to three attribution signals,
// in fixed priority order: explicit code, signed token, manual code.
type SignupInput struct {
	Email        string
	ExplicitCode string
	Token        string
	ManualCode   string
	IPAddress    string
	UserAgent    string
}

// PaymentInput is one completed payment notification, delivered at least once.
type PaymentInput struct {
	BookingID   uuid.UUID
	PayeeID     uuid.UUID
	BasePayable float64
	ListingID   *uuid.UUID
	OccurredAt  time.Time
}

// TierChangeInput is an administrative activation or deactivation request.
type TierChangeInput struct {
	Tier  int
	Notes string
}

// SettlementReport summarizes one batch settlement run.
type SettlementReport struct {
	RunID        string    `json:"run_id"`
	Eligible     int       `json:"eligible_beneficiaries"`
	Settled      int       `json:"settled"`
	Failed       int       `json:"failed"`
	Skipped      int       `json:"skipped"`
	TotalPaid    float64   `json:"total_paid"`
	CompletedAt  time.Time `json:"completed_at"`
	FailureNotes []string  `json:"failure_notes,omitempty"`
}

// Service implements the referral attribution and commission use-cases.
type Service struct {
	cfg Config

	accounts    ports.AccountRepository
	attempts    ports.AttemptRepository
	tiers       ports.TierRepository
	commissions ports.CommissionRepository
	batches     ports.BatchRepository
	preferences ports.PreferenceRepository
	outbox      ports.OutboxRepository
	idempotency ports.IdempotencyRepository

	tokens      ports.ReferralTokenCodec
	velocity    ports.VelocityStore
	delegations ports.DelegationReader
	payouts     ports.PayoutProvider

	nowFn   func() time.Time
	sleepFn func(time.Duration)
}

// Dependencies enumerates everything Service needs; ports only, no adapters.
type Dependencies struct {
	Config Config

	Accounts    ports.AccountRepository
	Attempts    ports.AttemptRepository
	Tiers       ports.TierRepository
	Commissions ports.CommissionRepository
	Batches     ports.BatchRepository
	Preferences ports.PreferenceRepository
	Outbox      ports.OutboxRepository
	Idempotency ports.IdempotencyRepository

	Tokens      ports.ReferralTokenCodec
	Velocity    ports.VelocityStore
	Delegations ports.DelegationReader
	Payouts     ports.PayoutProvider
}

// NewService wires dependencies and applies policy defaults.
func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "M42-Referral-Commission-Service"
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 30 * 24 * time.Hour
	}
	if cfg.ClearingInterval <= 0 {
		cfg.ClearingInterval = 7 * 24 * time.Hour
	}
	if cfg.MinPayoutAmount <= 0 {
		cfg.MinPayoutAmount = 25
	}
	if cfg.ClickVelocityThreshold <= 0 {
		cfg.ClickVelocityThreshold = 30
	}
	if cfg.ClickVelocityWindow <= 0 {
		cfg.ClickVelocityWindow = time.Hour
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 7 * 24 * time.Hour
	}
	if cfg.PayoutMaxRetries <= 0 {
		cfg.PayoutMaxRetries = 1
	}
	if cfg.PayoutBackoff <= 0 {
		cfg.PayoutBackoff = 2 * time.Second
	}
	return &Service{
		cfg:         cfg,
		accounts:    deps.Accounts,
		attempts:    deps.Attempts,
		tiers:       deps.Tiers,
		commissions: deps.Commissions,
		batches:     deps.Batches,
		preferences: deps.Preferences,
		outbox:      deps.Outbox,
		idempotency: deps.Idempotency,
		tokens:      deps.Tokens,
		velocity:    deps.Velocity,
		delegations: deps.Delegations,
		payouts:     deps.Payouts,
		nowFn:       func() time.Time { return time.Now().UTC() },
		sleepFn:     time.Sleep,
	}
}

func normalizeRole(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "admin":
		return "admin"
	case "scheduler":
		return "scheduler"
	default:
		return "user"
	}
}
