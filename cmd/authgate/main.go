// Command authgate runs the authorization layer as an HTTP service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clinsys/authgate/auth"
	"github.com/clinsys/authgate/bootstrap"
	"github.com/clinsys/authgate/cache"
	"github.com/clinsys/authgate/config"
	"github.com/clinsys/authgate/directory"
	"github.com/clinsys/authgate/health"
	"github.com/clinsys/authgate/httpapi"
	"github.com/clinsys/authgate/observe"
	"github.com/clinsys/authgate/resilience"
)

const version = "0.1.0"

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "authgate:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	obs, err := observe.NewObserver(ctx, observe.Config{
		ServiceName: "authgate",
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:   cfg.TracingExporter != "none",
			Exporter:  cfg.TracingExporter,
			SamplePct: cfg.TraceSamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  cfg.MetricsExporter != "none",
			Exporter: cfg.MetricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   cfg.LogLevel,
		},
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = obs.Shutdown(shutdownCtx)
	}()

	logger := obs.Logger()

	metrics, err := observe.NewMetrics(obs.Meter())
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	// The in-memory provider backs development and emulator runs. A real
	// deployment substitutes the managed identity provider client here.
	dir := directory.NewMemory()
	if cfg.EmulatorHost != "" {
		logger.Info(ctx, "using identity provider emulator",
			observe.Field{Key: "host", Value: cfg.EmulatorHost})
	}

	var verifier auth.TokenVerifier
	if cfg.JWTSigningKey != "" {
		verifier = auth.NewJWTVerifier(auth.JWTVerifierConfig{
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
		}, auth.NewStaticKeyProvider([]byte(cfg.JWTSigningKey)))
	} else {
		verifier = directory.Verifier(dir)
	}
	gate := auth.NewGate(verifier)

	store := bootstrap.NewMemoryTokenStore()
	flow := bootstrap.NewFlow(bootstrap.FlowConfig{
		SetupSecret:   cfg.SetupSecret,
		DevMode:       cfg.DevMode(),
		SetupCacheTTL: cfg.SetupCacheTTL,
		Logger:        logger,
		Cache:         cache.NewMemory(),
	}, store, dir)

	checks := health.NewAggregator()
	checks.Register(health.NewTokenStoreChecker(store))
	checks.Register(health.NewDirectoryChecker(dir))

	var metricsHandler http.Handler
	if cfg.MetricsExporter == "prometheus" {
		metricsHandler = promhttp.Handler()
	}

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Gate:      gate,
		Flow:      flow,
		Directory: dir,
		Observer:  obs,
		Metrics:   metrics,
		Health:    checks,
		BootstrapLimiter: resilience.NewKeyedRateLimiter(resilience.RateLimiterConfig{
			Rate:  cfg.BootstrapRate,
			Burst: cfg.BootstrapBurst,
		}, 0),
		MetricsHandler: metricsHandler,
	})

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "server listening",
			observe.Field{Key: "addr", Value: cfg.ListenAddr},
			observe.Field{Key: "env", Value: cfg.Env})
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
		logger.Info(context.Background(), "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}

	return nil
}
