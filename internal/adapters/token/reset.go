package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is stamped on every reset token.
const Issuer = "teammood"

const audiencePasswordReset = "password_reset"

// Token errors.
var (
	ErrInvalidToken = errors.New("reset link is invalid")
	ErrExpiredToken = errors.New("reset link has expired")
)

// ResetClaims is what a verified reset token asserts.
type ResetClaims struct {
	AccountID   string
	Fingerprint string
	ExpiresAt   time.Time
}

type resetClaims struct {
	jwt.RegisteredClaims
	Fingerprint string `json:"pwf"`
}

// ResetSigner issues and verifies HS256 password-reset tokens.
type ResetSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewResetSigner creates a signer. now may be nil.
// PRE: len(secret) >= 32, ttl > 0
// POST: returns a ready signer
func NewResetSigner(secret string, ttl time.Duration, now func() time.Time) *ResetSigner {
	if now == nil {
		now = time.Now
	}
	return &ResetSigner{secret: []byte(secret), ttl: ttl, now: now}
}

// Issue signs a token for accountID bound to the current password fingerprint.
// PRE: accountID non-empty
// POST: returns a compact JWS valid for the signer's TTL
func (s *ResetSigner) Issue(accountID, fingerprint string) (string, error) {
	if accountID == "" {
		return "", errors.New("account id is required")
	}
	now := s.now()
	claims := resetClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   accountID,
			Audience:  jwt.ClaimStrings{audiencePasswordReset},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Fingerprint: fingerprint,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign reset token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, issuer, audience and expiry.
// PRE: none
// POST: returns the claims, ErrExpiredToken, or ErrInvalidToken
func (s *ResetSigner) Verify(raw string) (ResetClaims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ResetClaims{}, ErrInvalidToken
	}
	var parsed resetClaims
	_, err := jwt.ParseWithClaims(raw, &parsed, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(audiencePasswordReset),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ResetClaims{}, ErrExpiredToken
		}
		return ResetClaims{}, ErrInvalidToken
	}
	if parsed.Subject == "" {
		return ResetClaims{}, ErrInvalidToken
	}
	return ResetClaims{
		AccountID:   parsed.Subject,
		Fingerprint: parsed.Fingerprint,
		ExpiresAt:   parsed.ExpiresAt.Time,
	}, nil
}
