// Package contextkeys owns every request-scoped context key so that the
// middleware that sets a value and the code that reads it share one typed key.
package contextkeys

import "context"

// Key prevents collisions with keys from other packages.
type Key string

const (
	// IdentityKey holds *auth.Identity, set by middleware.Authenticate.
	IdentityKey Key = "identity"
	// TenantKey holds the tenant id string the gate granted access to.
	TenantKey Key = "tenant"
	// RequestIDKey holds the inbound or generated request id.
	RequestIDKey Key = "request_id"
	// UserIDKey holds the authenticated subject, for log enrichment.
	UserIDKey Key = "user_id"
	// LoggerKey holds the request-scoped *observability.Logger.
	LoggerKey Key = "logger"
)

// The setters take any so this package stays free of imports from the
// packages that own the value types.

func WithIdentity(ctx context.Context, identity any) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, TenantKey, tenantID)
}

func WithLogger(ctx context.Context, logger any) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetRequestID returns "" when no id was assigned.
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, RequestIDKey)
}

// GetUserID returns "" for anonymous requests.
func GetUserID(ctx context.Context) string {
	return stringValue(ctx, UserIDKey)
}

func stringValue(ctx context.Context, key Key) string {
	v, _ := ctx.Value(key).(string)
	return v
}
