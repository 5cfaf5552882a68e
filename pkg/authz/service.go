package authz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/platinummonkey/tenantcore/pkg/observability"
	"github.com/platinummonkey/tenantcore/pkg/permissions"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

// Checker is the subset of the RBAC store a decision needs. *rbac.Store and
// *orgs.Manager both implement it.
type Checker interface {
	OrganizationExists(ctx context.Context, orgID uuid.UUID) (bool, error)
	UserHasAccess(ctx context.Context, userID, orgID uuid.UUID) (bool, error)
	UserHasAnyPermission(ctx context.Context, userID, orgID uuid.UUID, codes []permissions.Code) (bool, error)
}

// CacheConfig sizes the tenant-existence cache
type CacheConfig struct {
	Size int
	TTL  time.Duration
}

// DefaultCacheConfig returns the cache settings used when none are given
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{Size: 10000, TTL: 5 * time.Minute}
}

// Service decides requests against a Checker
type Service struct {
	checker Checker
	tenants *lru.LRU[uuid.UUID, struct{}]
	group   singleflight.Group
	logger  *observability.Logger
	metrics *observability.Metrics
	tracer  trace.Tracer
	counter metric.Int64Counter
}

// NewService creates a Service. Only existing tenants are cached: organizations
// are never hard-deleted, and a miss must not hide a tenant created a moment ago.
func NewService(checker Checker, cache CacheConfig, logger *observability.Logger, metrics *observability.Metrics) (*Service, error) {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	if cache.Size <= 0 {
		cache = DefaultCacheConfig()
	}

	counter, err := otel.Meter("github.com/platinummonkey/tenantcore/authz").Int64Counter(
		"authz.decisions",
		metric.WithDescription("Authorization decisions by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create decision counter: %w", err)
	}

	return &Service{
		checker: checker,
		tenants: lru.NewLRU[uuid.UUID, struct{}](cache.Size, nil, cache.TTL),
		logger:  logger,
		metrics: metrics,
		tracer:  observability.Tracer("authz"),
		counter: counter,
	}, nil
}

// Authorize evaluates req. Checks run in a fixed order: the permission list
// is parsed, the tenant is resolved, then the user's access and finally, when
// permissions were required, whether any of them is held.
func (s *Service) Authorize(ctx context.Context, req Request) (Decision, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "authz.Authorize", trace.WithAttributes(
		attribute.String("tenant_id", req.TenantID),
		attribute.Int("required_permissions", len(req.RequiredPermissions)),
	))
	defer span.End()

	decision, err := s.decide(ctx, req)

	outcome := decision.Outcome()
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, "authorization failed")
	}
	span.SetAttributes(attribute.String("outcome", outcome))
	s.counter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	s.metrics.RecordAuthzDecision(outcome, time.Since(start))

	return decision, err
}

func (s *Service) decide(ctx context.Context, req Request) (Decision, error) {
	required, err := permissions.ParseList(req.RequiredPermissions)
	if err != nil {
		return Deny(PermissionParseFailure, err.Error()), nil
	}

	tenantID, err := uuid.Parse(req.TenantID)
	if err != nil {
		return Deny(TenantNotFound, "tenant id is not valid"), nil
	}
	exists, err := s.tenantExists(ctx, tenantID)
	if err != nil {
		return Decision{}, err
	}
	if !exists {
		return Deny(TenantNotFound, "tenant does not exist"), nil
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return Deny(Unspecified, "user id is not valid"), nil
	}

	hasAccess, err := s.checker.UserHasAccess(ctx, userID, tenantID)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to check access: %w", err)
	}
	if !hasAccess {
		return Deny(Unspecified, "user has no access to tenant"), nil
	}

	if len(required) == 0 {
		return Allow(), nil
	}

	permitted, err := s.checker.UserHasAnyPermission(ctx, userID, tenantID, required)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to check permissions: %w", err)
	}
	if !permitted {
		return Deny(Unspecified, "user lacks the required permissions"), nil
	}
	return Allow(), nil
}

// tenantExists consults the cache, collapsing concurrent misses for one tenant into one query
func (s *Service) tenantExists(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	if _, ok := s.tenants.Get(tenantID); ok {
		return true, nil
	}

	v, err, _ := s.group.Do(tenantID.String(), func() (interface{}, error) {
		exists, err := s.checker.OrganizationExists(ctx, tenantID)
		if err != nil {
			return false, err
		}
		if exists {
			s.tenants.Add(tenantID, struct{}{})
		}
		return exists, nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to resolve tenant: %w", err)
	}

	exists, ok := v.(bool)
	if !ok {
		return false, errors.New("unexpected tenant lookup result")
	}
	return exists, nil
}
