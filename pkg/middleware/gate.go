package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/tenantcore/pkg/auth"
	"github.com/platinummonkey/tenantcore/pkg/authz"
	"github.com/platinummonkey/tenantcore/pkg/contextkeys"
	"github.com/platinummonkey/tenantcore/pkg/httputil"
	"github.com/platinummonkey/tenantcore/pkg/observability"
	"github.com/platinummonkey/tenantcore/pkg/permissions"
)

// TenantVar is the route variable holding the tenant id
const TenantVar = "tenant_id"

type gate struct {
	decider  authz.Decider
	logger   *observability.Logger
	metrics  *observability.Metrics
	declared string
	required []string
	timeout  time.Duration
}

// GateOption configures TenantedAuthorize
type GateOption func(*gate)

// WithDecisionTimeout bounds each decision. A decider that has not answered
// in time is treated as unavailable and the request is denied. Defaults to
// authz.DefaultTimeout; non-positive values are ignored.
func WithDecisionTimeout(d time.Duration) GateOption {
	return func(g *gate) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// TenantedAuthorize guards a handler with the comma separated permission list
// in declared. An empty list only requires access to the tenant. Names are
// validated per request by the decider, so a typo surfaces as a 500 on first use.
func TenantedAuthorize(decider authz.Decider, logger *observability.Logger, metrics *observability.Metrics, declared string, opts ...GateOption) func(http.Handler) http.Handler {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	g := &gate{
		decider:  decider,
		logger:   logger,
		metrics:  metrics,
		declared: declared,
		required: permissions.SplitDeclared(declared),
		timeout:  authz.DefaultTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g.wrap
}

// TenantFromContext returns the tenant id the gate authorized the request for
func TenantFromContext(ctx context.Context) (string, bool) {
	tenant, ok := ctx.Value(contextkeys.TenantKey).(string)
	return tenant, ok && tenant != ""
}

func (g *gate) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			g.metrics.RecordGateResponse(http.StatusUnauthorized)
			httputil.WriteChallenge(w, "authentication required")
			return
		}

		tenantID := resolveTenant(r, identity)
		log := g.requestLogger(r).WithField("tenant_id", tenantID)
		if tenantID == "" {
			log.Info("no tenant in request")
			g.deny(w, http.StatusNotFound, "tenant not found")
			return
		}

		decision, err := g.decide(r.Context(), authz.Request{
			UserID:              identity.UserID,
			TenantID:            tenantID,
			RequiredPermissions: g.required,
		})
		if err != nil {
			log.WithError(err).WithField("deny_cause", "infrastructure").Error("authorization decision unavailable")
			g.deny(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if decision.Allowed {
			next.ServeHTTP(w, r.WithContext(contextkeys.WithTenant(r.Context(), tenantID)))
			return
		}

		log = log.WithFields(map[string]interface{}{
			"failure_reason": decision.FailureReason.String(),
			"permissions":    g.declared,
		})
		switch decision.FailureReason {
		case authz.PermissionParseFailure:
			log.WithField("deny_cause", "configuration").Critical("permission declaration failed to parse: " + decision.FailureMessage)
			g.metrics.RecordGateResponse(http.StatusInternalServerError)
			httputil.WriteInternalError(w)
		case authz.TenantNotFound:
			log.WithField("deny_cause", "policy").Info("tenant not found")
			g.deny(w, http.StatusNotFound, "tenant not found")
		default:
			log.WithField("deny_cause", "policy").Info("access denied")
			g.deny(w, http.StatusUnauthorized, "unauthorized")
		}
	})
}

// decide asks the decider under the gate's deadline. The deadline is derived
// from the request so a client disconnect also cancels the decision.
func (g *gate) decide(ctx context.Context, req authz.Request) (authz.Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.decider.Authorize(ctx, req)
}

func (g *gate) deny(w http.ResponseWriter, status int, message string) {
	g.metrics.RecordGateResponse(status)
	httputil.WriteError(w, status, message)
}

func (g *gate) requestLogger(r *http.Request) *observability.Logger {
	log := g.logger
	if requestID := contextkeys.GetRequestID(r.Context()); requestID != "" {
		log = log.WithField("request_id", requestID)
	}
	if userID := contextkeys.GetUserID(r.Context()); userID != "" {
		log = log.WithField("user_id", userID)
	}
	return observability.WithTraceContext(r.Context(), log)
}

// resolveTenant prefers the route over the token's tenant claim
func resolveTenant(r *http.Request, identity *auth.Identity) string {
	if tenant := mux.Vars(r)[TenantVar]; tenant != "" {
		return tenant
	}
	return identity.TenantID
}
