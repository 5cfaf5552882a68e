package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinHMACSecretLength is the shortest accepted signing secret
const MinHMACSecretLength = 32

// HMACVerifier verifies HS256 tokens signed with a shared secret
type HMACVerifier struct {
	secret   []byte
	issuer   string
	audience string
	leeway   time.Duration
}

// HMACOption configures an HMACVerifier
type HMACOption func(*HMACVerifier)

// WithIssuer requires the "iss" claim to match
func WithIssuer(issuer string) HMACOption {
	return func(v *HMACVerifier) { v.issuer = issuer }
}

// WithAudience requires the "aud" claim to contain audience
func WithAudience(audience string) HMACOption {
	return func(v *HMACVerifier) { v.audience = audience }
}

// WithLeeway tolerates clock skew on time based claims
func WithLeeway(d time.Duration) HMACOption {
	return func(v *HMACVerifier) { v.leeway = d }
}

// NewHMACVerifier creates a verifier for secret
func NewHMACVerifier(secret []byte, opts ...HMACOption) (*HMACVerifier, error) {
	if len(secret) < MinHMACSecretLength {
		return nil, fmt.Errorf("hmac secret must be at least %d bytes", MinHMACSecretLength)
	}
	v := &HMACVerifier{secret: secret, leeway: 30 * time.Second}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Verify checks the signature, expiry and configured issuer/audience
func (v *HMACVerifier) Verify(_ context.Context, rawToken string) (*Identity, error) {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(v.audience))
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(rawToken, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, parserOpts...)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	return identityFromClaims(claims)
}

// Issue signs a token for subject. tenantID may be empty.
func (v *HMACVerifier) Issue(subject, tenantID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if tenantID != "" {
		claims[TenantClaim] = tenantID
	}
	if v.issuer != "" {
		claims["iss"] = v.issuer
	}
	if v.audience != "" {
		claims["aud"] = v.audience
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
