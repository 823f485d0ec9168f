// Package config loads the environment-sourced configuration consumed by
// the authorization layer. Configuration is read once at startup and
// treated as immutable.
package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/clinsys/authgate/secret"
)

// Environment names.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// defaultSetupSecret is the development fallback for the setup secret.
// Production refuses to start with it (see Validate).
const defaultSetupSecret = "change-me-in-production"

// Config holds the application configuration.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string

	// SetupSecret guards token generation and the dev reset.
	SetupSecret string

	// ListenAddr is the HTTP listen address.
	ListenAddr string

	// BaseURL prefixes the registration URL returned to callers.
	BaseURL string

	// EmulatorHost points the identity-provider client at a local
	// emulator instead of production credentials. Dev mode only.
	EmulatorHost string

	// JWTSigningKey verifies provider-issued JWTs when set.
	JWTSigningKey string

	// JWTIssuer is the expected iss claim. Empty skips the check.
	JWTIssuer string

	// JWTAudience is the expected aud claim. Empty skips the check.
	JWTAudience string

	// SetupCacheTTL bounds reuse of a positive admin-existence result.
	SetupCacheTTL time.Duration

	// BootstrapRate limits bootstrap endpoint calls per client per second.
	BootstrapRate float64

	// BootstrapBurst is the bootstrap rate limiter burst size.
	BootstrapBurst int

	// LogLevel is debug|info|warn|error.
	LogLevel string

	// MetricsExporter is otlp|prometheus|stdout|none.
	MetricsExporter string

	// TracingExporter is otlp|stdout|none.
	TracingExporter string

	// TraceSamplePct is the trace sampling ratio, 0.0-1.0.
	TraceSamplePct float64
}

// DevMode reports whether the dev-mode overrides are active.
func (c *Config) DevMode() bool {
	return c.Env == EnvDevelopment
}

// Load reads the configuration from the environment. The setup secret may
// be a plain value, an env expansion, or a secretref resolved through the
// secret package.
func Load(ctx context.Context) (*Config, error) {
	cfg := &Config{
		Env:             getEnvString("AUTHGATE_ENV", EnvProduction),
		ListenAddr:      getEnvString("LISTEN_ADDR", ":8080"),
		BaseURL:         getEnvString("BASE_URL", ""),
		EmulatorHost:    getEnvString("AUTH_EMULATOR_HOST", ""),
		JWTSigningKey:   getEnvString("JWT_SIGNING_KEY", ""),
		JWTIssuer:       getEnvString("JWT_ISSUER", ""),
		JWTAudience:     getEnvString("JWT_AUDIENCE", ""),
		SetupCacheTTL:   getEnvDuration("SETUP_CACHE_TTL", time.Minute),
		BootstrapRate:   getEnvFloat("BOOTSTRAP_RATE", 1),
		BootstrapBurst:  getEnvInt("BOOTSTRAP_BURST", 5),
		LogLevel:        getEnvString("LOG_LEVEL", "info"),
		MetricsExporter: getEnvString("METRICS_EXPORTER", "prometheus"),
		TracingExporter: getEnvString("TRACING_EXPORTER", "none"),
		TraceSamplePct:  getEnvFloat("TRACE_SAMPLE_PCT", 0.1),
	}

	rawSecret := getEnvString("ADMIN_SETUP_SECRET", defaultSetupSecret)
	resolved, err := secret.NewResolver().ResolveValue(ctx, rawSecret)
	if err != nil {
		return nil, fmt.Errorf("resolve ADMIN_SETUP_SECRET: %w", err)
	}
	cfg.SetupSecret = resolved

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values that must not reach
// production.
func (c *Config) Validate() error {
	switch c.Env {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("unknown environment %q", c.Env)
	}

	if c.Env == EnvProduction {
		if c.SetupSecret == defaultSetupSecret {
			return fmt.Errorf("ADMIN_SETUP_SECRET must be changed from the default in production")
		}
		if c.EmulatorHost != "" {
			return fmt.Errorf("AUTH_EMULATOR_HOST must not be set in production")
		}
	}

	if c.TraceSamplePct < 0 || c.TraceSamplePct > 1 {
		return fmt.Errorf("TRACE_SAMPLE_PCT must be between 0.0 and 1.0, got %f", c.TraceSamplePct)
	}
	if c.BootstrapRate <= 0 {
		return fmt.Errorf("BOOTSTRAP_RATE must be positive")
	}
	if c.BootstrapBurst <= 0 {
		return fmt.Errorf("BOOTSTRAP_BURST must be positive")
	}

	return nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
