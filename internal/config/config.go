// Package config loads service configuration from OPSGATE_* environment
// variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"

	"github.com/jonwraymond/opsgate/auth"
	"github.com/jonwraymond/opsgate/observe"
	"github.com/jonwraymond/opsgate/secret"
)

// Validation errors.
var (
	ErrMissingSecret    = errors.New("config: OPSGATE_JWT_SECRET is required")
	ErrInvalidAddr      = errors.New("config: invalid listen address")
	ErrInvalidDuration  = errors.New("config: duration must not be negative")
	ErrMissingDBPath    = errors.New("config: OPSGATE_DB_PATH is required")
	ErrMissingBackupSrc = errors.New("config: one of OPSGATE_BACKUP_DIR or OPSGATE_BACKUP_GCS_BUCKET is required")
	ErrInvalidLimit     = errors.New("config: limit must be positive")
)

// Config is the full service configuration.
type Config struct {
	Addr string `env:"OPSGATE_ADDR,default=:8080"`

	ServiceName string `env:"OPSGATE_SERVICE_NAME,default=opsgate"`
	LogLevel    string `env:"OPSGATE_LOG_LEVEL,default=info"`
	LogFormat   string `env:"OPSGATE_LOG_FORMAT,default=json"`

	// JWTSecret may be a literal, ${VAR}, secretref:env:NAME or
	// secretref:file:/path. Resolve it with SigningKey.
	JWTSecret string        `env:"OPSGATE_JWT_SECRET"`
	JWTIssuer string        `env:"OPSGATE_JWT_ISSUER"`
	JWTLeeway time.Duration `env:"OPSGATE_JWT_LEEWAY,default=0s"`

	DBPath string `env:"OPSGATE_DB_PATH,default=opsgate.db"`

	BackupDir          string `env:"OPSGATE_BACKUP_DIR,default=backups"`
	BackupGCSBucket    string `env:"OPSGATE_BACKUP_GCS_BUCKET"`
	GCSCredentialsFile string `env:"OPSGATE_GCS_CREDENTIALS_FILE"`
	MaxDownloads       int    `env:"OPSGATE_MAX_DOWNLOADS,default=4"`

	RedisAddr    string        `env:"OPSGATE_REDIS_ADDR"`
	DashboardTTL time.Duration `env:"OPSGATE_DASHBOARD_TTL,default=30s"`

	TracingExporter string  `env:"OPSGATE_TRACING_EXPORTER,default=none"`
	TracingSample   float64 `env:"OPSGATE_TRACING_SAMPLE,default=1"`
	MetricsExporter string  `env:"OPSGATE_METRICS_EXPORTER,default=none"`

	ShutdownTimeout time.Duration `env:"OPSGATE_SHUTDOWN_TIMEOUT,default=15s"`
}

// Load decodes the environment and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := envdecode.StrictDecode(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field values. It does not resolve the signing key.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return ErrMissingSecret
	}
	if _, port, ok := strings.Cut(c.Addr, ":"); !ok || port == "" {
		return fmt.Errorf("%w: %q", ErrInvalidAddr, c.Addr)
	}
	if c.DBPath == "" {
		return ErrMissingDBPath
	}
	if c.BackupDir == "" && c.BackupGCSBucket == "" {
		return ErrMissingBackupSrc
	}
	if c.MaxDownloads <= 0 {
		return fmt.Errorf("%w: OPSGATE_MAX_DOWNLOADS=%d", ErrInvalidLimit, c.MaxDownloads)
	}
	for name, d := range map[string]time.Duration{
		"OPSGATE_JWT_LEEWAY":       c.JWTLeeway,
		"OPSGATE_DASHBOARD_TTL":    c.DashboardTTL,
		"OPSGATE_SHUTDOWN_TIMEOUT": c.ShutdownTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("%w: %s=%s", ErrInvalidDuration, name, d)
		}
	}
	oc := c.Observe()
	return oc.Validate()
}

// Observe returns the telemetry configuration.
func (c *Config) Observe() observe.Config {
	return observe.Config{
		ServiceName: c.ServiceName,
		Version:     Version,
		Tracing: observe.TracingConfig{
			Enabled:   enabled(c.TracingExporter),
			Exporter:  c.TracingExporter,
			SamplePct: c.TracingSample,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  enabled(c.MetricsExporter),
			Exporter: c.MetricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   c.LogLevel,
			Format:  c.LogFormat,
		},
	}
}

// PrometheusEnabled reports whether GET /metrics should be served.
func (c *Config) PrometheusEnabled() bool {
	return c.MetricsExporter == "prometheus"
}

// KeyFile returns the file backing the signing key when JWTSecret is a
// secretref:file reference.
func (c *Config) KeyFile() (string, bool) {
	return secret.FileRef(c.JWTSecret)
}

// SigningKey returns a loader that resolves JWTSecret through the built-in
// secret providers. Each call re-reads the source, so the loader can back
// an auth.RotatingKey.
func (c *Config) SigningKey() (auth.KeyLoader, error) {
	resolver, err := secret.NewDefaultRegistry().NewResolver(true, nil)
	if err != nil {
		return nil, err
	}
	value := c.JWTSecret
	return func(ctx context.Context) ([]byte, error) {
		s, err := resolver.ResolveValue(ctx, value)
		if err != nil {
			return nil, fmt.Errorf("config: resolve signing key: %w", err)
		}
		return []byte(s), nil
	}, nil
}

func enabled(exporter string) bool {
	return !slices.Contains([]string{"", "none"}, exporter)
}

// Version is stamped at build time with -ldflags "-X ...config.Version=...".
var Version = "dev"
