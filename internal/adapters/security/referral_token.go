package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/ports"
)

// ReferralTokenCodec signs attribution tokens with HS256 over a compact
// claims payload. The HMAC keeps attribution tamper-evident across the
// click-to-signup gap; signature comparison inside the library is
// constant-time.
type ReferralTokenCodec struct {
	secret []byte
	ttl    time.Duration
}

// NewReferralTokenCodec builds a codec from the shared signing secret.
func NewReferralTokenCodec(secret string, ttl time.Duration) (*ReferralTokenCodec, error) {
	if secret == "" {
		return nil, errors.New("referral token secret is required")
	}
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &ReferralTokenCodec{secret: []byte(secret), ttl: ttl}, nil
}

type referralTokenClaims struct {
	ReferrerID  string `json:"ref"`
	Destination string `json:"dest,omitempty"`
	jwt.RegisteredClaims
}

// Issue signs {referrer, destination, issued_at, expires_at} into an opaque
// string safe for client-held storage.
func (c *ReferralTokenCodec) Issue(referrerID uuid.UUID, destination string, now time.Time) (string, error) {
	if referrerID == uuid.Nil {
		return "", fmt.Errorf("%w: referrer is required", domain.ErrInvalidInput)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, referralTokenClaims{
		ReferrerID:  referrerID.String(),
		Destination: destination,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	})
	return token.SignedString(c.secret)
}

// Verify recomputes the MAC and rejects tampered, expired, or malformed
// input with domain sentinels. It never panics and never returns a partially
// trusted claim set.
func (c *ReferralTokenCodec) Verify(raw string, now time.Time) (ports.ReferralTokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &referralTokenClaims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ports.ReferralTokenClaims{}, domain.ErrTokenExpired
		}
		return ports.ReferralTokenClaims{}, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}

	claims, ok := parsed.Claims.(*referralTokenClaims)
	if !ok || !parsed.Valid {
		return ports.ReferralTokenClaims{}, domain.ErrTokenInvalid
	}
	referrerID, err := uuid.Parse(claims.ReferrerID)
	if err != nil || referrerID == uuid.Nil {
		return ports.ReferralTokenClaims{}, fmt.Errorf("%w: bad referrer id", domain.ErrTokenInvalid)
	}

	out := ports.ReferralTokenClaims{
		ReferrerID:  referrerID,
		Destination: claims.Destination,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
