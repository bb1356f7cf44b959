package postgres

import (
	"errors"

	"gorm.io/gorm"
)

// Repositories bundles every Postgres-backed port implementation over one
// shared connection pool.
type Repositories struct {
	Accounts     *AccountRepository
	Attempts     *AttemptRepository
	Tiers        *TierRepository
	Commissions  *CommissionRepository
	Batches      *BatchRepository
	Preferences  *PreferenceRepository
	Outbox       *OutboxRepository
	Idempotency  *IdempotencyRepository
}

// NewRepositories wires all repositories against the given database handle.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Accounts:    NewAccountRepository(db),
		Attempts:    NewAttemptRepository(db),
		Tiers:       NewTierRepository(db),
		Commissions: NewCommissionRepository(db),
		Batches:     NewBatchRepository(db),
		Preferences: NewPreferenceRepository(db),
		Outbox:      NewOutboxRepository(db),
		Idempotency: NewIdempotencyRepository(db),
	}
}

// isUniqueViolation relies on gorm's TranslateError mapping of Postgres
// unique-constraint errors.
func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
