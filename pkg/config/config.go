package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/platinummonkey/tenantcore/pkg/observability"
	"github.com/platinummonkey/tenantcore/pkg/orgs"
	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the optional YAML file
const ConfigFileEnv = "TENANTCORE_CONFIG_FILE"

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       StorageConfig       `yaml:"storage"`
	Tenancy       TenancyConfig       `yaml:"tenancy"`
	Authz         AuthzConfig         `yaml:"authz"`
	Identity      IdentityConfig      `yaml:"identity"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds listener configuration
type ServerConfig struct {
	HTTPAddr        string        `yaml:"http_addr"`
	GRPCAddr        string        `yaml:"grpc_addr"`
	HealthPort      string        `yaml:"health_port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StorageConfig holds Postgres and Redis settings
type StorageConfig struct {
	PostgresURL      string `yaml:"postgres_url"`
	PostgresMaxConns int    `yaml:"postgres_max_conns"`
	RedisURL         string `yaml:"redis_url"`
}

// TenancyConfig holds organization lifecycle settings
type TenancyConfig struct {
	DefaultRoleID       string        `yaml:"default_role_id"`
	InviteSecret        string        `yaml:"invite_secret"`
	ReconcilerSchedule  string        `yaml:"reconciler_schedule"`
	ReconcilerThreshold time.Duration `yaml:"reconciler_threshold"`
	ProvisionTimeout    time.Duration `yaml:"provision_timeout"`
}

// AuthzConfig holds decision channel settings
type AuthzConfig struct {
	Timeout         time.Duration `yaml:"timeout"`
	RemoteAddr      string        `yaml:"remote_addr"`
	TokenURL        string        `yaml:"token_url"`
	ClientID        string        `yaml:"client_id"`
	ClientSecret    string        `yaml:"client_secret"`
	TenantCacheSize int           `yaml:"tenant_cache_size"`
	TenantCacheTTL  time.Duration `yaml:"tenant_cache_ttl"`
}

// IdentityConfig selects how bearer tokens are verified
type IdentityConfig struct {
	JWTSecret    string `yaml:"jwt_secret"`
	JWTIssuer    string `yaml:"jwt_issuer"`
	OIDCIssuer   string `yaml:"oidc_issuer"`
	OIDCClientID string `yaml:"oidc_client_id"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel           string  `yaml:"log_level"`
	MetricsEnabled     bool    `yaml:"metrics_enabled"`
	OTelEnabled        bool    `yaml:"otel_enabled"`
	OTelEndpoint       string  `yaml:"otel_endpoint"`
	OTelServiceName    string  `yaml:"otel_service_name"`
	OTelServiceVersion string  `yaml:"otel_service_version"`
	OTelInsecure       bool    `yaml:"otel_insecure"`
	OTelSampleRatio    float64 `yaml:"otel_sample_ratio"`
}

// Defaults returns the built-in configuration
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:        ":8080",
			GRPCAddr:        ":9000",
			HealthPort:      "9090",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			PostgresMaxConns: 20,
		},
		Tenancy: TenancyConfig{
			DefaultRoleID:       "0f3ad1a2-7e5c-4d2b-9c61-3b8e2f4a9d10",
			ReconcilerSchedule:  "@every 10m",
			ReconcilerThreshold: 24 * time.Hour,
			ProvisionTimeout:    30 * time.Second,
		},
		Authz: AuthzConfig{
			Timeout:         2 * time.Second,
			TenantCacheSize: 10000,
			TenantCacheTTL:  5 * time.Minute,
		},
		Observability: ObservabilityConfig{
			LogLevel:           "info",
			MetricsEnabled:     true,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "tenantcore",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
			OTelSampleRatio:    1,
		},
	}
}

// LoadConfig builds the configuration from defaults, the optional YAML file
// and the environment, then validates it.
func LoadConfig() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides each field whose variable is set
func (c *Config) applyEnv() {
	s := &c.Server
	s.HTTPAddr = getEnv("TENANTCORE_HTTP_ADDR", s.HTTPAddr)
	s.GRPCAddr = getEnv("TENANTCORE_GRPC_ADDR", s.GRPCAddr)
	s.HealthPort = getEnv("TENANTCORE_HEALTH_PORT", s.HealthPort)
	s.ReadTimeout = getEnvDuration("TENANTCORE_READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = getEnvDuration("TENANTCORE_WRITE_TIMEOUT", s.WriteTimeout)
	s.ShutdownTimeout = getEnvDuration("TENANTCORE_SHUTDOWN_TIMEOUT", s.ShutdownTimeout)

	st := &c.Storage
	st.PostgresURL = getEnv("TENANTCORE_POSTGRES_URL", st.PostgresURL)
	st.PostgresMaxConns = getEnvInt("TENANTCORE_POSTGRES_MAX_CONNS", st.PostgresMaxConns)
	st.RedisURL = getEnv("TENANTCORE_REDIS_URL", st.RedisURL)

	t := &c.Tenancy
	t.DefaultRoleID = getEnv("TENANTCORE_DEFAULT_ROLE_ID", t.DefaultRoleID)
	t.InviteSecret = getEnv("TENANTCORE_INVITE_SECRET", t.InviteSecret)
	t.ReconcilerSchedule = getEnv("TENANTCORE_RECONCILER_SCHEDULE", t.ReconcilerSchedule)
	t.ReconcilerThreshold = getEnvDuration("TENANTCORE_RECONCILER_THRESHOLD", t.ReconcilerThreshold)
	t.ProvisionTimeout = getEnvDuration("TENANTCORE_PROVISION_TIMEOUT", t.ProvisionTimeout)

	a := &c.Authz
	a.Timeout = getEnvDuration("TENANTCORE_AUTHZ_TIMEOUT", a.Timeout)
	a.RemoteAddr = getEnv("TENANTCORE_AUTHZ_REMOTE_ADDR", a.RemoteAddr)
	a.TokenURL = getEnv("TENANTCORE_AUTHZ_TOKEN_URL", a.TokenURL)
	a.ClientID = getEnv("TENANTCORE_AUTHZ_CLIENT_ID", a.ClientID)
	a.ClientSecret = getEnv("TENANTCORE_AUTHZ_CLIENT_SECRET", a.ClientSecret)
	a.TenantCacheSize = getEnvInt("TENANTCORE_TENANT_CACHE_SIZE", a.TenantCacheSize)
	a.TenantCacheTTL = getEnvDuration("TENANTCORE_TENANT_CACHE_TTL", a.TenantCacheTTL)

	i := &c.Identity
	i.JWTSecret = getEnv("TENANTCORE_JWT_SECRET", i.JWTSecret)
	i.JWTIssuer = getEnv("TENANTCORE_JWT_ISSUER", i.JWTIssuer)
	i.OIDCIssuer = getEnv("TENANTCORE_OIDC_ISSUER", i.OIDCIssuer)
	i.OIDCClientID = getEnv("TENANTCORE_OIDC_CLIENT_ID", i.OIDCClientID)

	o := &c.Observability
	o.LogLevel = getEnv("TENANTCORE_LOG_LEVEL", o.LogLevel)
	o.MetricsEnabled = getEnvBool("TENANTCORE_METRICS_ENABLED", o.MetricsEnabled)
	o.OTelEnabled = getEnvBool("TENANTCORE_OTEL_ENABLED", o.OTelEnabled)
	o.OTelEndpoint = getEnv("TENANTCORE_OTEL_ENDPOINT", o.OTelEndpoint)
	o.OTelServiceName = getEnv("TENANTCORE_OTEL_SERVICE_NAME", o.OTelServiceName)
	o.OTelServiceVersion = getEnv("TENANTCORE_OTEL_SERVICE_VERSION", o.OTelServiceVersion)
	o.OTelInsecure = getEnvBool("TENANTCORE_OTEL_INSECURE", o.OTelInsecure)
	o.OTelSampleRatio = getEnvFloat("TENANTCORE_OTEL_SAMPLE_RATIO", o.OTelSampleRatio)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" || c.Server.GRPCAddr == "" {
		return fmt.Errorf("http and grpc addresses are required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}

	if c.Storage.PostgresURL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	if _, err := c.DefaultRoleID(); err != nil {
		return err
	}
	if len(c.Tenancy.InviteSecret) < orgs.MinInviteSecretLength {
		return fmt.Errorf("invite secret must be at least %d bytes", orgs.MinInviteSecretLength)
	}
	if c.Tenancy.ReconcilerSchedule == "" {
		return fmt.Errorf("reconciler schedule is required")
	}

	timeouts := map[string]time.Duration{
		"reconciler threshold":  c.Tenancy.ReconcilerThreshold,
		"provision timeout":     c.Tenancy.ProvisionTimeout,
		"authorization timeout": c.Authz.Timeout,
		"tenant cache ttl":      c.Authz.TenantCacheTTL,
		"shutdown timeout":      c.Server.ShutdownTimeout,
	}
	for name, d := range timeouts {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if c.Authz.TenantCacheSize <= 0 {
		return fmt.Errorf("tenant cache size must be positive")
	}
	if c.Authz.TokenURL != "" && (c.Authz.ClientID == "" || c.Authz.ClientSecret == "") {
		return fmt.Errorf("client id and secret are required with an authorization token URL")
	}

	if c.Identity.JWTSecret == "" && c.Identity.OIDCIssuer == "" {
		return fmt.Errorf("either a JWT secret or an OIDC issuer is required")
	}
	if c.Identity.OIDCIssuer != "" && c.Identity.OIDCClientID == "" {
		return fmt.Errorf("OIDC client id is required when an OIDC issuer is set")
	}

	if c.Observability.OTelEnabled && c.Observability.OTelEndpoint == "" {
		return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
	}
	if c.Observability.OTelSampleRatio < 0 || c.Observability.OTelSampleRatio > 1 {
		return fmt.Errorf("OpenTelemetry sample ratio must be between 0 and 1")
	}
	return nil
}

// DefaultRoleID parses the configured default role
func (c *Config) DefaultRoleID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.Tenancy.DefaultRoleID)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("default role id %q is not a valid uuid", c.Tenancy.DefaultRoleID)
	}
	return id, nil
}

// LogLevel returns the parsed log level
func (c *Config) LogLevel() observability.LogLevel {
	return observability.ParseLogLevel(c.Observability.LogLevel)
}

// OTel converts the observability settings for observability.InitOTel
func (c *Config) OTel() observability.OTelConfig {
	o := c.Observability
	return observability.OTelConfig{
		Enabled:        o.OTelEnabled,
		Endpoint:       o.OTelEndpoint,
		ServiceName:    o.OTelServiceName,
		ServiceVersion: o.OTelServiceVersion,
		Insecure:       o.OTelInsecure,
		SampleRatio:    o.OTelSampleRatio,
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns a float environment variable or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
