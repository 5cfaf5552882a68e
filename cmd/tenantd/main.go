package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/platinummonkey/tenantcore/pkg/auth"
	"github.com/platinummonkey/tenantcore/pkg/authz"
	"github.com/platinummonkey/tenantcore/pkg/config"
	"github.com/platinummonkey/tenantcore/pkg/httputil"
	"github.com/platinummonkey/tenantcore/pkg/middleware"
	"github.com/platinummonkey/tenantcore/pkg/observability"
	"github.com/platinummonkey/tenantcore/pkg/orgs"
	"github.com/platinummonkey/tenantcore/pkg/provisioning"
	"github.com/platinummonkey/tenantcore/pkg/rbac"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

var (
	configFile  = flag.String("config", "", "YAML config file (overrides "+config.ConfigFileEnv+")")
	migrateOnly = flag.Bool("migrate-only", false, "Apply database migrations and exit")
	version     = "dev"
)

func main() {
	flag.Parse()
	if *configFile != "" {
		if err := os.Setenv(config.ConfigFileEnv, *configFile); err != nil {
			log.Fatalf("Failed to set config file: %v", err)
		}
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := observability.NewLogger(cfg.LogLevel(), os.Stdout).WithField("service", "tenantd")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("tenantd exited with error")
		os.Exit(1)
	}
	logger.Info("tenantd stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *observability.Logger) error {
	providers, err := observability.InitOTel(ctx, cfg.OTel(), logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = observability.ShutdownOTel(shutdownCtx, providers, logger)
	}()

	db, err := openDatabase(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := rbac.RunMigrations(ctx, db, logger); err != nil {
		return err
	}
	if *migrateOnly {
		logger.Info("migrations applied")
		return nil
	}

	rdb := openRedis(ctx, cfg.Storage.RedisURL, logger)
	if rdb != nil {
		defer rdb.Close()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	store := rbac.NewStore(db, logger, metrics)
	manager, err := newManager(cfg, store, rdb, logger, metrics)
	if err != nil {
		return err
	}

	service, err := authz.NewService(manager, authz.CacheConfig{
		Size: cfg.Authz.TenantCacheSize,
		TTL:  cfg.Authz.TenantCacheTTL,
	}, logger, metrics)
	if err != nil {
		return err
	}
	decider, closeDecider, err := newDecider(ctx, cfg.Authz, service)
	if err != nil {
		return err
	}
	defer closeDecider()

	verifier, err := newVerifier(ctx, cfg.Identity)
	if err != nil {
		return err
	}

	var sink provisioning.Sink
	if rdb != nil {
		sink = provisioning.NewRedisSink(rdb)
	}
	reconciler := provisioning.NewReconciler(store, sink, logger.WithField("component", "reconciler"), metrics,
		provisioning.WithThreshold(cfg.Tenancy.ReconcilerThreshold),
		provisioning.WithSchedule(cfg.Tenancy.ReconcilerSchedule),
	)
	if err := reconciler.Start(ctx); err != nil {
		return err
	}
	defer reconciler.Stop()

	grpcServer := authz.NewServer(logger)
	authz.RegisterServer(grpcServer, service, logger)
	grpcHealth := authz.RegisterHealth(grpcServer)

	apiServer := &http.Server{
		Addr:         cfg.Server.HTTPAddr,
		Handler:      otelhttp.NewHandler(newRouter(decider, verifier, cfg.Authz.Timeout, logger, metrics), "tenantcore"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	healthRouter := mux.NewRouter()
	health := observability.NewHealthChecker(version).
		AddCheck("postgres", true, observability.DatabaseCheck(db)).
		AddCheck("schema", true, rbac.SchemaCheck(db))
	if rdb != nil {
		health.AddCheck("redis", false, observability.RedisCheck(rdb))
	}
	observability.RegisterHealthRoutes(healthRouter, health)
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthRouter, registry)
	}
	healthServer := &http.Server{Addr: ":" + cfg.Server.HealthPort, Handler: healthRouter}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("HTTP API listening on %s", apiServer.Addr)
		return serveHTTP(apiServer)
	})
	g.Go(func() error {
		logger.Infof("health and metrics listening on %s", healthServer.Addr)
		return serveHTTP(healthServer)
	})
	g.Go(func() error {
		return serveGRPC(grpcServer, cfg.Server.GRPCAddr, logger)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		grpcHealth.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		grpcServer.GracefulStop()
		return errors.Join(apiServer.Shutdown(shutdownCtx), healthServer.Shutdown(shutdownCtx))
	})
	return g.Wait()
}

func openDatabase(ctx context.Context, cfg config.StorageConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.PostgresMaxConns)
	db.SetMaxIdleConns(cfg.PostgresMaxConns / 2)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// openRedis returns nil when no URL is configured. An unreachable server is
// only logged: provisioning streams retry on every write.
func openRedis(ctx context.Context, url string, logger *observability.Logger) *redis.Client {
	if url == "" {
		logger.Warn("no Redis configured, provisioning requests and stuck reports stay in logs")
		return nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		logger.WithError(err).Warn("invalid Redis URL, continuing without Redis")
		return nil
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.WithError(err).Warn("Redis not reachable at startup")
	}
	return client
}

func newManager(cfg *config.Config, store *rbac.Store, rdb *redis.Client, logger *observability.Logger, metrics *observability.Metrics) (*orgs.Manager, error) {
	defaultRoleID, err := cfg.DefaultRoleID()
	if err != nil {
		return nil, err
	}
	invites, err := orgs.NewInviteCodec([]byte(cfg.Tenancy.InviteSecret))
	if err != nil {
		return nil, err
	}

	opts := []orgs.Option{orgs.WithProvisionTimeout(cfg.Tenancy.ProvisionTimeout)}
	if rdb != nil {
		opts = append(opts, orgs.WithProvisioner(provisioning.NewRedisPublisher(rdb)))
	}
	return orgs.NewManager(store, defaultRoleID, invites, logger.WithField("component", "orgs"), metrics, opts...), nil
}

// newDecider picks the decision channel for the HTTP gate: the remote service
// when configured, otherwise the local one. Either way the gate bounds each
// call with the same timeout.
func newDecider(ctx context.Context, cfg config.AuthzConfig, local *authz.Service) (authz.Decider, func(), error) {
	if cfg.RemoteAddr == "" {
		return local, func() {}, nil
	}

	opts := []authz.ClientOption{authz.WithTimeout(cfg.Timeout)}
	if cfg.TokenURL != "" {
		opts = append(opts, authz.WithTokenSource(
			authz.ClientCredentialsTokenSource(ctx, cfg.TokenURL, cfg.ClientID, cfg.ClientSecret),
		))
	}
	client, err := authz.NewClient(cfg.RemoteAddr, opts...)
	if err != nil {
		return nil, nil, err
	}
	return client, func() { _ = client.Close() }, nil
}

func newVerifier(ctx context.Context, cfg config.IdentityConfig) (auth.Verifier, error) {
	if cfg.JWTSecret != "" {
		var opts []auth.HMACOption
		if cfg.JWTIssuer != "" {
			opts = append(opts, auth.WithIssuer(cfg.JWTIssuer))
		}
		return auth.NewHMACVerifier([]byte(cfg.JWTSecret), opts...)
	}
	return auth.NewOIDCVerifier(ctx, cfg.OIDCIssuer, cfg.OIDCClientID)
}

func newRouter(decider authz.Decider, verifier auth.Verifier, decisionTimeout time.Duration, logger *observability.Logger, metrics *observability.Metrics) *mux.Router {
	router := mux.NewRouter()
	router.Use(
		httputil.RecoveryMiddleware,
		httputil.RequestIDMiddleware(logger),
		observability.HTTPMetricsMiddleware(metrics),
	)

	tenants := router.PathPrefix("/api/v1/tenants/{" + middleware.TenantVar + "}").Subrouter()
	tenants.Use(middleware.Authenticate(verifier, logger))
	tenants.Handle("/access", middleware.TenantedAuthorize(decider, logger, metrics, "", middleware.WithDecisionTimeout(decisionTimeout))(http.HandlerFunc(accessHandler))).
		Methods(http.MethodGet)
	return router
}

// accessHandler answers once the gate has let the caller through
func accessHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())
	tenant, _ := middleware.TenantFromContext(r.Context())
	_ = httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"user_id":   identity.UserID,
		"tenant_id": tenant,
	})
}

func serveHTTP(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s: %w", srv.Addr, err)
	}
	return nil
}

func serveGRPC(srv *grpc.Server, addr string, logger *observability.Logger) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	logger.Infof("authorization gRPC listening on %s", addr)
	if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}
