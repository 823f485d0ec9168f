package httpapi

import (
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/clinsys/authgate/auth"
	"github.com/clinsys/authgate/bootstrap"
	"github.com/clinsys/authgate/directory"
	"github.com/clinsys/authgate/health"
	"github.com/clinsys/authgate/observe"
	"github.com/clinsys/authgate/resilience"
)

// RouterConfig carries the wired components of the HTTP surface.
type RouterConfig struct {
	// Gate authenticates and authorizes role-gated routes. Required.
	Gate *auth.Gate

	// Flow serves the admin bootstrap endpoints. Required.
	Flow *bootstrap.Flow

	// Directory backs the role and user endpoints. Required.
	Directory directory.Provider

	// Observer instruments requests. Nil disables instrumentation.
	Observer observe.Observer

	// Metrics records domain measurements. Nil disables them.
	Metrics observe.Metrics

	// Health aggregates readiness checks. Nil disables /readyz.
	Health *health.Aggregator

	// BootstrapLimiter rate limits the bootstrap endpoints per client.
	// Nil disables limiting.
	BootstrapLimiter *resilience.KeyedRateLimiter

	// MetricsHandler serves /metrics when set (promhttp).
	MetricsHandler http.Handler
}

// NewRouter assembles the full route tree.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Metrics == nil {
		cfg.Metrics = observe.NopMetrics()
	}

	setup := NewSetupHandlers(cfg.Flow, cfg.Metrics)
	roles := NewRoleHandlers(cfg.Directory)

	var logger observe.Logger
	if cfg.Observer != nil {
		logger = cfg.Observer.Logger()
	}
	users := NewUserHandlers(cfg.Directory, logger)

	r := chi.NewRouter()
	if cfg.Observer != nil {
		r.Use(observe.Middleware(cfg.Observer, cfg.Metrics))
	}

	r.Route("/admin-setup", func(r chi.Router) {
		if cfg.BootstrapLimiter != nil {
			r.Use(rateLimit(cfg.BootstrapLimiter))
		}
		r.Post("/generate-token", setup.GenerateToken)
		r.Post("/validate-token", setup.ValidateToken)
		r.Post("/register", setup.Register)
		r.Get("/status", setup.Status)
		r.Post("/reset-dev", setup.ResetDev)
	})

	r.Route("/roles", func(r chi.Router) {
		// Self-service routes need authentication only.
		r.Group(func(r chi.Router) {
			r.Use(cfg.Gate.RequireAuth)
			r.Get("/my-role", roles.MyRole)
			r.Get("/valid-roles", roles.ValidRoles)
		})

		// Management routes are admin-only.
		r.Group(func(r chi.Router) {
			r.Use(cfg.Gate.RequireRoles(auth.AdminOnly))
			r.Post("/set", roles.Set)
			r.Get("/get/{uid}", roles.Get)
			r.Delete("/remove/{uid}", roles.Remove)
			r.Post("/create-user", roles.CreateUser)
			r.Get("/list/{role}", roles.List)
			r.Delete("/delete-user/{uid}", roles.DeleteUser)
		})
	})

	r.Route("/user", func(r chi.Router) {
		r.Use(cfg.Gate.RequireAuth)
		r.Get("/profile", users.Profile)
		r.Post("/complete-registration", users.CompleteRegistration)
	})

	r.Method(http.MethodGet, "/healthz", health.LivenessHandler())
	if cfg.Health != nil {
		r.Method(http.MethodGet, "/readyz", health.ReadinessHandler(cfg.Health))
	}
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	return r
}

// rateLimit rejects requests whose client bucket is exhausted. The client
// key is the first X-Forwarded-For hop when present, else the remote host.
func rateLimit(limiter *resilience.KeyedRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(clientKey(r)) {
				writeJSON(w, http.StatusTooManyRequests, envelope{
					Success: false,
					Error:   "too many requests, slow down",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, found := strings.Cut(fwd, ","); found || first != "" {
			return strings.TrimSpace(first)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
