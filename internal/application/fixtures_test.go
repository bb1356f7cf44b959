package application

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/ports"
)

// testNow is the frozen clock every fixture starts from.
var testNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	service *Service

	accounts    *fakeAccounts
	attempts    *fakeAttempts
	tiers       *fakeTiers
	commissions *fakeCommissions
	batches     *fakeBatches
	preferences *fakePreferences
	outbox      *fakeOutbox
	idempotency *fakeIdempotency
	tokens      *fakeTokens
	velocity    *fakeVelocity
	delegations *fakeDelegations
	payouts     *fakePayouts
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		attempts:    &fakeAttempts{byID: make(map[uuid.UUID]domain.ReferralAttempt)},
		tiers:       &fakeTiers{byTier: make(map[int]domain.TierConfig)},
		commissions: &fakeCommissions{byKey: make(map[bookingTierKey]*domain.CommissionTransaction)},
		batches:     &fakeBatches{byClaim: make(map[string]domain.PayoutBatch), byID: make(map[uuid.UUID]*domain.PayoutBatch)},
		preferences: &fakePreferences{byAccount: make(map[uuid.UUID]domain.PayoutPreference)},
		outbox:      &fakeOutbox{},
		idempotency: &fakeIdempotency{byKey: make(map[string]*ports.IdempotencyRecord)},
		tokens:      newFakeTokens(30 * 24 * time.Hour),
		velocity:    &fakeVelocity{counts: make(map[string]int)},
		delegations: &fakeDelegations{byListing: make(map[uuid.UUID]uuid.UUID)},
		payouts:     &fakePayouts{canReceive: true},
	}
	f.accounts = &fakeAccounts{
		byID:     make(map[uuid.UUID]domain.Account),
		attempts: f.attempts,
	}

	f.service = NewService(Dependencies{
		Config: Config{
			ClickVelocityThreshold: 3,
			ClickVelocityWindow:    time.Hour,
		},
		Accounts:    f.accounts,
		Attempts:    f.attempts,
		Tiers:       f.tiers,
		Commissions: f.commissions,
		Batches:     f.batches,
		Preferences: f.preferences,
		Outbox:      f.outbox,
		Idempotency: f.idempotency,
		Tokens:      f.tokens,
		Velocity:    f.velocity,
		Delegations: f.delegations,
		Payouts:     f.payouts,
	})
	f.service.nowFn = func() time.Time { return testNow }
	f.service.sleepFn = func(time.Duration) {}
	return f
}

func (f *fixture) seedAccount(t *testing.T, email, code string, referredBy *uuid.UUID) domain.Account {
	t.Helper()
	account := domain.Account{
		AccountID:    uuid.New(),
		Email:        email,
		ReferralCode: code,
		ReferredBy:   referredBy,
		CreatedAt:    testNow.Add(-30 * 24 * time.Hour),
	}
	f.accounts.mu.Lock()
	f.accounts.byID[account.AccountID] = account
	f.accounts.mu.Unlock()
	return account
}

func (f *fixture) seedTier(tier int, rate float64, active bool, approval string) {
	f.tiers.mu.Lock()
	f.tiers.byTier[tier] = domain.TierConfig{Tier: tier, Rate: rate, Active: active, Approval: approval}
	f.tiers.mu.Unlock()
}

func (f *fixture) seedDefaultTiers() {
	f.seedTier(1, 0.10, true, domain.TierApproved)
	f.seedTier(2, 0.05, true, domain.TierApproved)
	f.seedTier(3, 0.02, true, domain.TierApproved)
}

func (f *fixture) seedAttempt(t *testing.T, attempt domain.ReferralAttempt) domain.ReferralAttempt {
	t.Helper()
	if attempt.AttemptID == uuid.Nil {
		attempt.AttemptID = uuid.New()
	}
	if attempt.State == "" {
		attempt.State = domain.AttemptClicked
	}
	f.attempts.mu.Lock()
	f.attempts.byID[attempt.AttemptID] = attempt
	f.attempts.mu.Unlock()
	return attempt
}

func (f *fixture) seedCommission(txn domain.CommissionTransaction) domain.CommissionTransaction {
	if txn.TransactionID == uuid.Nil {
		txn.TransactionID = uuid.New()
	}
	if txn.BookingID == uuid.Nil {
		txn.BookingID = uuid.New()
	}
	stored := txn
	f.commissions.mu.Lock()
	f.commissions.byKey[bookingTierKey{txn.BookingID, txn.Tier}] = &stored
	f.commissions.mu.Unlock()
	return txn
}

func (f *fixture) eventsOfType(eventType string) []ports.OutboxEvent {
	f.outbox.mu.Lock()
	defer f.outbox.mu.Unlock()
	var out []ports.OutboxEvent
	for _, e := range f.outbox.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

func adminActor() Actor {
	return Actor{SubjectID: uuid.New(), Role: "admin"}
}

func userActor(id uuid.UUID) Actor {
	return Actor{SubjectID: id, Role: "user"}
}

// fakeAccounts stores accounts in memory and mirrors the transactional
// signup semantics: email and code uniqueness, and the in-transaction flip
// of an attributed attempt.
type fakeAccounts struct {
	mu       sync.Mutex
	byID     map[uuid.UUID]domain.Account
	attempts *fakeAttempts

	conflictNextCreates int
	createErr           error
	txEvents            []ports.OutboxEvent
}

func (f *fakeAccounts) CreateWithAttributionTx(ctx context.Context, params ports.CreateAccountTxParams, event ports.OutboxEvent) (domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return domain.Account{}, f.createErr
	}
	if f.conflictNextCreates > 0 {
		f.conflictNextCreates--
		return domain.Account{}, fmt.Errorf("%w: simulated uniqueness violation", domain.ErrConflict)
	}
	for _, existing := range f.byID {
		if existing.Email == params.Email {
			return domain.Account{}, fmt.Errorf("%w: email taken", domain.ErrConflict)
		}
		if existing.ReferralCode == params.ReferralCode {
			return domain.Account{}, fmt.Errorf("%w: referral code taken", domain.ErrConflict)
		}
	}

	account := domain.Account{
		AccountID:      uuid.New(),
		Email:          params.Email,
		ReferralCode:   params.ReferralCode,
		ReferredBy:     params.ReferredBy,
		ReferralSource: params.ReferralSource,
		CreatedAt:      params.RegisteredAt,
		UpdatedAt:      params.RegisteredAt,
	}
	if params.ReferredBy != nil {
		at := params.RegisteredAt
		account.ReferredAt = &at
	}
	f.byID[account.AccountID] = account
	f.txEvents = append(f.txEvents, event)

	if params.AttributedAttemptID != nil {
		f.attempts.mu.Lock()
		if attempt, ok := f.attempts.byID[*params.AttributedAttemptID]; ok && attempt.State == domain.AttemptClicked {
			accountID := account.AccountID
			at := params.RegisteredAt
			attempt.State = domain.AttemptAttributed
			attempt.ReferredAccountID = &accountID
			attempt.AttributedAt = &at
			f.attempts.byID[attempt.AttemptID] = attempt
		}
		f.attempts.mu.Unlock()
	}
	return account, nil
}

func (f *fakeAccounts) GetByID(ctx context.Context, accountID uuid.UUID) (domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.byID[accountID]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	return account, nil
}

func (f *fakeAccounts) GetByReferralCode(ctx context.Context, code string) (domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, account := range f.byID {
		if account.ReferralCode == code {
			return account, nil
		}
	}
	return domain.Account{}, domain.ErrNotFound
}

func (f *fakeAccounts) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, account := range f.byID {
		if account.Email == email {
			return account, nil
		}
	}
	return domain.Account{}, domain.ErrNotFound
}

type fakeAttempts struct {
	mu   sync.Mutex
	byID map[uuid.UUID]domain.ReferralAttempt
}

func (f *fakeAttempts) Create(ctx context.Context, attempt domain.ReferralAttempt) (domain.ReferralAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if attempt.AttemptID == uuid.Nil {
		attempt.AttemptID = uuid.New()
	}
	f.byID[attempt.AttemptID] = attempt
	return attempt, nil
}

func (f *fakeAttempts) LatestClicked(ctx context.Context, referrerID uuid.UUID) (domain.ReferralAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *domain.ReferralAttempt
	for _, attempt := range f.byID {
		if attempt.ReferrerID != referrerID || attempt.State != domain.AttemptClicked {
			continue
		}
		a := attempt
		if latest == nil || a.CreatedAt.After(latest.CreatedAt) {
			latest = &a
		}
	}
	if latest == nil {
		return domain.ReferralAttempt{}, domain.ErrNotFound
	}
	return *latest, nil
}

func (f *fakeAttempts) LatestForAccount(ctx context.Context, accountID uuid.UUID) (domain.ReferralAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *domain.ReferralAttempt
	for _, attempt := range f.byID {
		if attempt.ReferredAccountID == nil || *attempt.ReferredAccountID != accountID {
			continue
		}
		a := attempt
		if latest == nil || a.CreatedAt.After(latest.CreatedAt) {
			latest = &a
		}
	}
	if latest == nil {
		return domain.ReferralAttempt{}, domain.ErrNotFound
	}
	return *latest, nil
}

func (f *fakeAttempts) MarkConverted(ctx context.Context, attemptID uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	attempt, ok := f.byID[attemptID]
	if !ok || attempt.State != domain.AttemptAttributed {
		return domain.ErrInvalidTransition
	}
	attempt.State = domain.AttemptConverted
	attempt.ConvertedAt = &at
	f.byID[attemptID] = attempt
	return nil
}

func (f *fakeAttempts) MarkBlocked(ctx context.Context, attemptID uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	attempt, ok := f.byID[attemptID]
	if !ok || attempt.State != domain.AttemptClicked {
		return domain.ErrInvalidTransition
	}
	attempt.State = domain.AttemptBlocked
	f.byID[attemptID] = attempt
	return nil
}

func (f *fakeAttempts) get(attemptID uuid.UUID) domain.ReferralAttempt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[attemptID]
}

type fakeTiers struct {
	mu     sync.Mutex
	byTier map[int]domain.TierConfig
}

func (f *fakeTiers) ListAll(ctx context.Context) ([]domain.TierConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.TierConfig, 0, len(f.byTier))
	for _, c := range f.byTier {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeTiers) Get(ctx context.Context, tier int) (domain.TierConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byTier[tier]
	if !ok {
		return domain.TierConfig{}, domain.ErrNotFound
	}
	return c, nil
}

func (f *fakeTiers) SetActive(ctx context.Context, tier int, active bool, approval string, actorID uuid.UUID, notes string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byTier[tier]
	if !ok {
		return domain.ErrNotFound
	}
	c.Active = active
	c.Approval = approval
	c.ActivatedBy = &actorID
	c.ActivatedAt = &at
	if notes != "" {
		c.Notes = notes
	}
	c.UpdatedAt = at
	f.byTier[tier] = c
	return nil
}

type bookingTierKey struct {
	booking uuid.UUID
	tier    int
}

type fakeCommissions struct {
	mu    sync.Mutex
	byKey map[bookingTierKey]*domain.CommissionTransaction
}

func (f *fakeCommissions) CreateIfAbsent(ctx context.Context, txn domain.CommissionTransaction) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := bookingTierKey{txn.BookingID, txn.Tier}
	if _, ok := f.byKey[key]; ok {
		return false, nil
	}
	stored := txn
	f.byKey[key] = &stored
	return true, nil
}

func (f *fakeCommissions) ListByBeneficiary(ctx context.Context, beneficiaryID uuid.UUID, limit, offset int) ([]domain.CommissionTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.CommissionTransaction
	for _, txn := range f.byKey {
		if txn.BeneficiaryID == beneficiaryID {
			out = append(out, *txn)
		}
	}
	return out, nil
}

func (f *fakeCommissions) MaturePending(ctx context.Context, cutoff, at time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, txn := range f.byKey {
		if txn.Status == domain.TxnPending && !txn.CreatedAt.After(cutoff) {
			txn.Status = domain.TxnAvailable
			availableAt := at
			txn.AvailableAt = &availableAt
			count++
		}
	}
	return count, nil
}

func (f *fakeCommissions) SumAvailableByBeneficiary(ctx context.Context) (map[uuid.UUID]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sums := make(map[uuid.UUID]float64)
	for _, txn := range f.byKey {
		if txn.Status == domain.TxnAvailable && txn.BatchID == nil {
			sums[txn.BeneficiaryID] += txn.Amount
		}
	}
	return sums, nil
}

func (f *fakeCommissions) ClaimAvailableForBatch(ctx context.Context, beneficiaryID, batchID uuid.UUID) ([]domain.CommissionTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var claimed []domain.CommissionTransaction
	for _, txn := range f.byKey {
		if txn.BeneficiaryID == beneficiaryID && txn.Status == domain.TxnAvailable && txn.BatchID == nil {
			id := batchID
			txn.BatchID = &id
			claimed = append(claimed, *txn)
		}
	}
	return claimed, nil
}

func (f *fakeCommissions) MarkBatchPaidOut(ctx context.Context, batchID uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, txn := range f.byKey {
		if txn.BatchID != nil && *txn.BatchID == batchID && txn.Status == domain.TxnAvailable {
			txn.Status = domain.TxnPaidOut
			paidAt := at
			txn.PaidOutAt = &paidAt
		}
	}
	return nil
}

func (f *fakeCommissions) MarkBatchFailed(ctx context.Context, batchID uuid.UUID, reason string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, txn := range f.byKey {
		if txn.BatchID != nil && *txn.BatchID == batchID && txn.Status == domain.TxnAvailable {
			txn.Status = domain.TxnFailed
			r := reason
			txn.FailureReason = &r
		}
	}
	return nil
}

func (f *fakeCommissions) byStatus(status string) []domain.CommissionTransaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.CommissionTransaction
	for _, txn := range f.byKey {
		if txn.Status == status {
			out = append(out, *txn)
		}
	}
	return out
}

type fakeBatches struct {
	mu      sync.Mutex
	byClaim map[string]domain.PayoutBatch
	byID    map[uuid.UUID]*domain.PayoutBatch
}

func claimKey(runID string, beneficiaryID uuid.UUID) string {
	return runID + "|" + beneficiaryID.String()
}

func (f *fakeBatches) CreateClaim(ctx context.Context, batch domain.PayoutBatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := claimKey(batch.RunID, batch.BeneficiaryID)
	if _, ok := f.byClaim[key]; ok {
		return domain.ErrBatchClaimed
	}
	f.byClaim[key] = batch
	stored := batch
	f.byID[batch.BatchID] = &stored
	return nil
}

func (f *fakeBatches) MarkSettled(ctx context.Context, batchID uuid.UUID, providerRef string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	batch, ok := f.byID[batchID]
	if !ok || batch.Status != domain.BatchClaimed {
		return domain.ErrInvalidTransition
	}
	batch.Status = domain.BatchSettled
	batch.ProviderRef = providerRef
	settledAt := at
	batch.SettledAt = &settledAt
	return nil
}

func (f *fakeBatches) MarkFailed(ctx context.Context, batchID uuid.UUID, reason string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	batch, ok := f.byID[batchID]
	if !ok || batch.Status != domain.BatchClaimed {
		return domain.ErrInvalidTransition
	}
	batch.Status = domain.BatchFailed
	batch.FailureReason = reason
	return nil
}

func (f *fakeBatches) GetByRunAndBeneficiary(ctx context.Context, runID string, beneficiaryID uuid.UUID) (domain.PayoutBatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	batch, ok := f.byClaim[claimKey(runID, beneficiaryID)]
	if !ok {
		return domain.PayoutBatch{}, domain.ErrNotFound
	}
	if current, ok := f.byID[batch.BatchID]; ok {
		return *current, nil
	}
	return batch, nil
}

type fakePreferences struct {
	mu        sync.Mutex
	byAccount map[uuid.UUID]domain.PayoutPreference
}

func (f *fakePreferences) Get(ctx context.Context, accountID uuid.UUID) (domain.PayoutPreference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pref, ok := f.byAccount[accountID]
	if !ok {
		return domain.PayoutPreference{}, domain.ErrNotFound
	}
	return pref, nil
}

func (f *fakePreferences) Upsert(ctx context.Context, pref domain.PayoutPreference) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byAccount[pref.AccountID] = pref
	return nil
}

func (f *fakePreferences) set(pref domain.PayoutPreference) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byAccount[pref.AccountID] = pref
}

type fakeOutbox struct {
	mu         sync.Mutex
	events     []ports.OutboxEvent
	enqueueErr error
}

func (f *fakeOutbox) Enqueue(ctx context.Context, event ports.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.enqueueErr != nil {
		return f.enqueueErr
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOutbox) ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]ports.OutboxRecord, error) {
	return nil, nil
}

func (f *fakeOutbox) MarkPublished(ctx context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error {
	return nil
}

func (f *fakeOutbox) MarkFailed(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	return nil
}

func (f *fakeOutbox) MarkDeadLettered(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	return nil
}

type fakeIdempotency struct {
	mu    sync.Mutex
	byKey map[string]*ports.IdempotencyRecord
}

func (f *fakeIdempotency) Get(ctx context.Context, key string) (*ports.IdempotencyRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.byKey[key]
	if !ok {
		return nil, nil
	}
	copied := *rec
	return &copied, nil
}

func (f *fakeIdempotency) Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byKey[key]; ok {
		return domain.ErrConflict
	}
	f.byKey[key] = &ports.IdempotencyRecord{
		Key:         key,
		RequestHash: requestHash,
		Status:      "IN_PROGRESS",
		ExpiresAt:   expiresAt,
	}
	return nil
}

func (f *fakeIdempotency) Complete(ctx context.Context, key string, responseCode int, responseBody []byte, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.byKey[key]
	if !ok {
		return domain.ErrNotFound
	}
	rec.Status = "COMPLETED"
	rec.ResponseCode = responseCode
	rec.ResponseBody = responseBody
	rec.UpdatedAt = at
	return nil
}

type fakeTokens struct {
	mu     sync.Mutex
	ttl    time.Duration
	seq    int
	issued map[string]ports.ReferralTokenClaims
}

func newFakeTokens(ttl time.Duration) *fakeTokens {
	return &fakeTokens{ttl: ttl, issued: make(map[string]ports.ReferralTokenClaims)}
}

func (f *fakeTokens) Issue(referrerID uuid.UUID, destination string, now time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	token := fmt.Sprintf("attrib-token-%d", f.seq)
	f.issued[token] = ports.ReferralTokenClaims{
		ReferrerID:  referrerID,
		Destination: destination,
		IssuedAt:    now,
		ExpiresAt:   now.Add(f.ttl),
	}
	return token, nil
}

func (f *fakeTokens) Verify(raw string, now time.Time) (ports.ReferralTokenClaims, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	claims, ok := f.issued[raw]
	if !ok {
		return ports.ReferralTokenClaims{}, domain.ErrTokenInvalid
	}
	if now.After(claims.ExpiresAt) {
		return ports.ReferralTokenClaims{}, domain.ErrTokenExpired
	}
	return claims, nil
}

// expire backdates a token so the next verification rejects it.
func (f *fakeTokens) expire(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	claims := f.issued[token]
	claims.ExpiresAt = claims.IssuedAt.Add(-time.Hour)
	f.issued[token] = claims
}

type fakeVelocity struct {
	mu        sync.Mutex
	counts    map[string]int
	recordErr error
}

func (f *fakeVelocity) Record(ctx context.Context, originKey string, window time.Duration) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return 0, f.recordErr
	}
	f.counts[originKey]++
	return f.counts[originKey], nil
}

type fakeDelegations struct {
	mu        sync.Mutex
	byListing map[uuid.UUID]uuid.UUID
	lookupErr error
}

func (f *fakeDelegations) DelegateForListing(ctx context.Context, listingID uuid.UUID) (*uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	delegate, ok := f.byListing[listingID]
	if !ok {
		return nil, nil
	}
	return &delegate, nil
}

type payoutCall struct {
	ref            string
	amount         float64
	idempotencyKey string
}

type fakePayouts struct {
	mu         sync.Mutex
	calls      []payoutCall
	canReceive bool
	refuseMsg  string
	checkErr   error
	payoutErr  error
	failNext   int
	seq        int
}

func (f *fakePayouts) Payout(ctx context.Context, beneficiaryRef string, amount float64, idempotencyKey string) (ports.PayoutResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, payoutCall{ref: beneficiaryRef, amount: amount, idempotencyKey: idempotencyKey})
	if f.failNext > 0 {
		f.failNext--
		return ports.PayoutResult{}, fmt.Errorf("provider unavailable")
	}
	if f.payoutErr != nil {
		return ports.PayoutResult{}, f.payoutErr
	}
	f.seq++
	return ports.PayoutResult{ProviderRef: fmt.Sprintf("transfer-%d", f.seq)}, nil
}

func (f *fakePayouts) CanReceivePayouts(ctx context.Context, beneficiaryRef string) (bool, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.checkErr != nil {
		return false, "", f.checkErr
	}
	return f.canReceive, f.refuseMsg, nil
}

func (f *fakePayouts) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
