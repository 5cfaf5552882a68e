package authz

import (
	"context"
	"fmt"
	"time"

	"github.com/platinummonkey/tenantcore/pkg/authz/authzv1"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// DefaultTimeout bounds a remote decision when none is configured
const DefaultTimeout = 2 * time.Second

// Client asks a remote Service for decisions over gRPC
type Client struct {
	conn    *grpc.ClientConn
	rpc     authzv1.PermissionAuthorizeClient
	timeout time.Duration
}

type clientOptions struct {
	timeout     time.Duration
	tokenSource oauth2.TokenSource
	dialOptions []grpc.DialOption
}

// ClientOption configures a Client
type ClientOption func(*clientOptions)

// WithTimeout bounds every Authorize call
func WithTimeout(d time.Duration) ClientOption {
	return func(o *clientOptions) { o.timeout = d }
}

// WithTokenSource attaches a bearer token from ts to every call
func WithTokenSource(ts oauth2.TokenSource) ClientOption {
	return func(o *clientOptions) { o.tokenSource = ts }
}

// WithDialOptions passes extra options to grpc.NewClient. The default
// transport is insecure; supply credentials here for TLS.
func WithDialOptions(opts ...grpc.DialOption) ClientOption {
	return func(o *clientOptions) { o.dialOptions = append(o.dialOptions, opts...) }
}

// ClientCredentialsTokenSource fetches and refreshes tokens with the OAuth2
// client-credentials grant.
func ClientCredentialsTokenSource(ctx context.Context, tokenURL, clientID, clientSecret string, scopes ...string) oauth2.TokenSource {
	cfg := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		Scopes:       scopes,
	}
	return cfg.TokenSource(ctx)
}

// NewClient creates a Client for target. The connection is established lazily.
func NewClient(target string, opts ...ClientOption) (*Client, error) {
	o := &clientOptions{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(o)
	}

	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if o.tokenSource != nil {
		dialOpts = append(dialOpts, grpc.WithChainUnaryInterceptor(bearerInterceptor(o.tokenSource)))
	}
	dialOpts = append(dialOpts, o.dialOptions...)

	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create authorization client: %w", err)
	}
	return &Client{conn: conn, rpc: authzv1.NewPermissionAuthorizeClient(conn), timeout: o.timeout}, nil
}

// Authorize asks the remote service. Any transport failure or timeout is
// returned as an error, never as an allow.
func (c *Client) Authorize(ctx context.Context, req Request) (Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.rpc.Authorize(ctx, requestToWire(req))
	if err != nil {
		return Decision{}, fmt.Errorf("authorization call failed: %w", err)
	}
	return decisionFromWire(out), nil
}

// Close releases the connection
func (c *Client) Close() error {
	return c.conn.Close()
}

func bearerInterceptor(ts oauth2.TokenSource) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		token, err := ts.Token()
		if err != nil {
			return fmt.Errorf("failed to obtain access token: %w", err)
		}
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", token.Type()+" "+token.AccessToken)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}
