package authz

import (
	"context"
	"fmt"

	"github.com/platinummonkey/tenantcore/pkg/async"
	"github.com/platinummonkey/tenantcore/pkg/authz/authzv1"
	"github.com/platinummonkey/tenantcore/pkg/observability"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified gRPC service name
var ServiceName = authzv1.PermissionAuthorize_ServiceDesc.ServiceName

// server hides backend faults behind a status code
type server struct {
	authzv1.UnimplementedPermissionAuthorizeServer

	decider Decider
	logger  *observability.Logger
}

func (s *server) Authorize(ctx context.Context, in *authzv1.PermissionAuthorizeRequest) (*authzv1.AuthorizeDecision, error) {
	req := requestFromWire(in)
	decision, err := s.decider.Authorize(ctx, req)
	if err != nil {
		s.logger.WithError(err).WithField("tenant_id", req.TenantID).Error("authorization backend failed")
		return nil, status.Error(codes.Unavailable, "authorization backend unavailable")
	}
	return decisionToWire(decision), nil
}

// RegisterServer exposes decider on s
func RegisterServer(s grpc.ServiceRegistrar, decider Decider, logger *observability.Logger) {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	authzv1.RegisterPermissionAuthorizeServer(s, &server{decider: decider, logger: logger})
}

// NewServer builds a gRPC server that turns handler panics into Internal errors
func NewServer(logger *observability.Logger, opts ...grpc.ServerOption) *grpc.Server {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	opts = append(opts, grpc.ChainUnaryInterceptor(recoveryInterceptor(logger)))
	return grpc.NewServer(opts...)
}

func recoveryInterceptor(logger *observability.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		var resp interface{}
		err := async.Recover(info.FullMethod, func() error {
			var err error
			resp, err = handler(ctx, req)
			return err
		})
		if err != nil && status.Code(err) == codes.Unknown {
			logger.WithError(err).WithField("method", info.FullMethod).Error("unary handler failed")
			return nil, status.Error(codes.Internal, fmt.Sprintf("%s failed", info.FullMethod))
		}
		return resp, err
	}
}

// RegisterHealth adds the standard gRPC health service, reporting the
// authorization service as serving.
func RegisterHealth(s grpc.ServiceRegistrar) *health.Server {
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return hs
}
