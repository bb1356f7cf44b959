package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/ports"
)

func (s *Service) appLogger() *slog.Logger {
	return slog.Default().With(
		"service", s.cfg.ServiceName,
		"module", "application",
		"layer", "application",
	)
}

// normalizeEmail canonicalizes and validates email format before persistence/comparison.
func normalizeEmail(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		return "", fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(trimmed); err != nil {
		return "", fmt.Errorf("%w: invalid email", domain.ErrInvalidInput)
	}
	return trimmed, nil
}

// hashRequest computes deterministic request fingerprint for idempotency conflict detection.
func hashRequest(req any) string {
	raw, _ := json.Marshal(req)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// enqueueEvent records a domain event in the outbox; delivery failures here
// are logged, not surfaced, because the event is advisory to the caller.
func (s *Service) enqueueEvent(ctx context.Context, eventType, partitionKey string, payload map[string]any) {
	raw, _ := json.Marshal(payload)
	if err := s.outbox.Enqueue(ctx, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    eventType,
		PartitionKey: partitionKey,
		Payload:      raw,
		OccurredAt:   s.nowFn(),
	}); err != nil {
		s.appLogger().WarnContext(ctx, "outbox enqueue failed",
			"operation", "enqueue_event",
			"outcome", "failure",
			"event_type", eventType,
			"error", err,
		)
	}
}

// reserveIdempotency replays or reserves the mutation key. A nil record with
// nil error means the caller should proceed; a non-nil record is the replay body.
func (s *Service) reserveIdempotency(ctx context.Context, key string, req any) (*ports.IdempotencyRecord, error) {
	if strings.TrimSpace(key) == "" {
		return nil, nil
	}
	requestHash := hashRequest(req)
	existing, err := s.idempotency.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.RequestHash != requestHash {
			return nil, domain.ErrIdempotencyConflict
		}
		if existing.Status == "COMPLETED" {
			return existing, nil
		}
		// A pending reservation with the same hash means a concurrent or
		// crashed attempt; let the caller proceed and overwrite on complete.
		return nil, nil
	}
	if err := s.idempotency.Reserve(ctx, key, requestHash, s.nowFn().Add(s.cfg.IdempotencyTTL)); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, domain.ErrIdempotencyConflict
		}
		return nil, err
	}
	return nil, nil
}

func (s *Service) completeIdempotency(ctx context.Context, key string, code int, body any) {
	if strings.TrimSpace(key) == "" {
		return
	}
	raw, _ := json.Marshal(body)
	_ = s.idempotency.Complete(ctx, key, code, raw, s.nowFn())
}

// boundedCtx derives a child context with the given timeout for provider calls.
func boundedCtx(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}
