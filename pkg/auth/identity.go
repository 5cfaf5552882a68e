package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/platinummonkey/tenantcore/pkg/contextkeys"
)

// TenantClaim names the claim carrying the caller's current tenant
const TenantClaim = "tid"

// ErrInvalidToken is returned for any token that fails verification
var ErrInvalidToken = errors.New("invalid token")

// Identity is an authenticated caller
type Identity struct {
	UserID   string                 `json:"user_id"`
	TenantID string                 `json:"tenant_id,omitempty"`
	Claims   map[string]interface{} `json:"-"`
}

// Verifier validates a raw bearer token
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (*Identity, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// WithIdentity stores identity in ctx
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	ctx = contextkeys.WithIdentity(ctx, identity)
	return contextkeys.WithUserID(ctx, identity.UserID)
}

// IdentityFromContext returns the identity stored by WithIdentity
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(contextkeys.IdentityKey).(*Identity)
	return identity, ok && identity != nil
}

// identityFromClaims requires a subject; the tenant claim is optional.
func identityFromClaims(claims map[string]interface{}) (*Identity, error) {
	sub, _ := claims["sub"].(string)
	if strings.TrimSpace(sub) == "" {
		return nil, errors.Join(ErrInvalidToken, errors.New("token has no subject"))
	}
	tid, _ := claims[TenantClaim].(string)
	return &Identity{UserID: sub, TenantID: tid, Claims: claims}, nil
}
