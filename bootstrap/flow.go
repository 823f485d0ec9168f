package bootstrap

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/clinsys/authgate/auth"
	"github.com/clinsys/authgate/cache"
	"github.com/clinsys/authgate/directory"
	"github.com/clinsys/authgate/observe"
)

const (
	defaultRegistrationPath = "/admin-setup/register"
	defaultDisplayName      = "System Administrator"

	// setupCompleteKey caches the positive admin-existence result. Only
	// positive results are cached: setup completion is effectively
	// permanent, while a stale "no admin" answer would reopen bootstrap.
	setupCompleteKey = "bootstrap:setup_complete"
)

// FlowConfig configures the admin bootstrap flow.
type FlowConfig struct {
	// SetupSecret is the configured setup secret callers must present to
	// generate or reset tokens. Required.
	SetupSecret string

	// DevMode relaxes the admin-existence guards and enables ResetDev.
	DevMode bool

	// RegistrationPath is the path used in the registration URL template.
	// Default: "/admin-setup/register"
	RegistrationPath string

	// SetupCacheTTL bounds how long a positive admin-existence result is
	// reused before the directory is consulted again.
	// Default: 1 minute
	SetupCacheTTL time.Duration

	// Logger receives flow events. Nil disables logging.
	Logger observe.Logger

	// Cache memoizes the completed-setup check. Nil disables memoization.
	Cache cache.Cache
}

// Flow orchestrates the admin bootstrap operations. Every operation first
// asks the directory whether an admin already exists; concurrent lookups
// are collapsed through a singleflight group.
type Flow struct {
	config FlowConfig
	store  TokenStore
	dir    directory.Provider
	group  singleflight.Group
	now    func() time.Time
}

// NewFlow creates a bootstrap flow.
func NewFlow(config FlowConfig, store TokenStore, dir directory.Provider) *Flow {
	if config.RegistrationPath == "" {
		config.RegistrationPath = defaultRegistrationPath
	}
	if config.SetupCacheTTL <= 0 {
		config.SetupCacheTTL = time.Minute
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	return &Flow{
		config: config,
		store:  store,
		dir:    dir,
		now:    time.Now,
	}
}

// GeneratedToken is the response of GenerateToken. Token is the raw secret,
// disclosed exactly once.
type GeneratedToken struct {
	Token           string `json:"token"`
	ExpiresAt       int64  `json:"expires_at"`
	RegistrationURL string `json:"registration_url"`
}

// TokenValidity is the response of ValidateToken.
type TokenValidity struct {
	Valid     bool  `json:"valid"`
	ExpiresAt int64 `json:"expires_at"`
}

// RegisterRequest carries the inputs of RegisterAdmin.
type RegisterRequest struct {
	Token       string `json:"token"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// AdminAccount is the response of a successful RegisterAdmin.
type AdminAccount struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	DisplayName string `json:"display_name"`
}

// SetupStatus is the response of Status.
type SetupStatus struct {
	SetupComplete   bool   `json:"setup_complete"`
	AdminCount      int    `json:"admin_count"`
	ValidTokens     *int   `json:"valid_tokens,omitempty"`
	DevelopmentMode bool   `json:"development_mode"`
	Message         string `json:"message"`
}

// GenerateToken issues a one-time admin registration token. It fails with
// Forbidden when an admin already exists and the dev-mode multi-admin
// override is not active, and with Unauthorized when the presented secret
// does not match the configured setup secret.
func (f *Flow) GenerateToken(ctx context.Context, secretKey string, allowMultiple bool) (*GeneratedToken, error) {
	admins, err := f.adminCount(ctx)
	if err != nil {
		return nil, f.providerError("list admins", err)
	}
	if admins > 0 && !(f.config.DevMode && allowMultiple) {
		return nil, auth.Forbidden("admin user already exists, registration is disabled")
	}

	if !ConstantTimeCompare(secretKey, f.config.SetupSecret) {
		return nil, auth.Unauthorized("invalid secret key")
	}

	secret, tok, err := f.store.Issue(ctx)
	if err != nil {
		return nil, f.providerError("issue token", err)
	}

	if swept, err := f.store.Sweep(ctx, f.now()); err == nil && swept > 0 {
		f.config.Logger.Info(ctx, "swept expired bootstrap tokens",
			observe.Field{Key: "count", Value: swept})
	}

	f.config.Logger.Info(ctx, "generated admin registration token",
		observe.Field{Key: "expires_at", Value: tok.ExpiresAt.Unix()})

	return &GeneratedToken{
		Token:           secret,
		ExpiresAt:       tok.ExpiresAt.Unix(),
		RegistrationURL: fmt.Sprintf("%s?token=%s", f.config.RegistrationPath, secret),
	}, nil
}

// ValidateToken classifies a token without consuming it.
func (f *Flow) ValidateToken(ctx context.Context, secret string) (*TokenValidity, error) {
	if secret == "" {
		return nil, auth.ValidationError("token is required")
	}

	if err := f.guardSetupOpen(ctx); err != nil {
		return nil, err
	}

	tok, err := f.store.Peek(ctx, secret)
	if err != nil {
		return nil, err
	}

	return &TokenValidity{Valid: true, ExpiresAt: tok.ExpiresAt.Unix()}, nil
}

// RegisterAdmin consumes a token and provisions the admin account. Token
// state failures (invalid, used, expired) are reported distinctly from a
// provisioning failure, which additionally burns the token.
func (f *Flow) RegisterAdmin(ctx context.Context, req RegisterRequest) (*AdminAccount, error) {
	if req.Token == "" || req.Email == "" || req.Password == "" {
		return nil, auth.ValidationError("token, email, and password are required")
	}
	displayName := req.DisplayName
	if displayName == "" {
		displayName = defaultDisplayName
	}

	if err := f.guardSetupOpen(ctx); err != nil {
		return nil, err
	}

	uid, err := f.store.Consume(ctx, req.Token, func(ctx context.Context) (string, error) {
		return directory.CreateUserWithRole(ctx, f.dir, req.Email, req.Password, displayName, auth.RoleAdmin)
	})
	if err != nil {
		if ae := auth.AsError(err); ae.Kind == auth.KindProvisionFailed && ae.Err != nil {
			f.config.Logger.Error(ctx, "admin provisioning failed",
				observe.Field{Key: "error", Value: ae.Err.Error()})
		}
		return nil, err
	}

	f.markSetupComplete(ctx, 1)
	f.config.Logger.Info(ctx, "created admin user with bootstrap token",
		observe.Field{Key: "uid", Value: uid})

	return &AdminAccount{
		UID:         uid,
		Email:       req.Email,
		Role:        string(auth.RoleAdmin),
		DisplayName: displayName,
	}, nil
}

// Status reports whether setup is complete and, when it is not, the count
// of currently valid tokens after an opportunistic sweep.
func (f *Flow) Status(ctx context.Context) (*SetupStatus, error) {
	admins, err := f.adminCount(ctx)
	if err != nil {
		return nil, f.providerError("list admins", err)
	}

	if admins > 0 {
		return &SetupStatus{
			SetupComplete:   true,
			AdminCount:      admins,
			DevelopmentMode: f.config.DevMode,
			Message:         f.statusMessage("Admin setup is complete"),
		}, nil
	}

	now := f.now()
	if _, err := f.store.Sweep(ctx, now); err != nil {
		return nil, f.providerError("sweep tokens", err)
	}
	valid, err := f.store.CountValid(ctx, now)
	if err != nil {
		return nil, f.providerError("count tokens", err)
	}

	return &SetupStatus{
		SetupComplete:   false,
		AdminCount:      0,
		ValidTokens:     &valid,
		DevelopmentMode: f.config.DevMode,
		Message:         f.statusMessage("Admin setup is required"),
	}, nil
}

// ResetDev clears the token store. Only callable in dev mode with the
// correct setup secret; directory user records are never touched.
func (f *Flow) ResetDev(ctx context.Context, secretKey string) error {
	if !f.config.DevMode {
		return auth.Forbidden("reset is only available in development mode")
	}
	if !ConstantTimeCompare(secretKey, f.config.SetupSecret) {
		return auth.Unauthorized("invalid secret key")
	}

	if err := f.store.Clear(ctx); err != nil {
		return f.providerError("clear tokens", err)
	}

	f.config.Logger.Info(ctx, "development bootstrap tokens cleared")
	return nil
}

// guardSetupOpen fails with Forbidden when an admin exists and the flow is
// not in dev mode.
func (f *Flow) guardSetupOpen(ctx context.Context) error {
	admins, err := f.adminCount(ctx)
	if err != nil {
		return f.providerError("list admins", err)
	}
	if admins > 0 && !f.config.DevMode {
		return auth.Forbidden("admin user already exists, registration is disabled")
	}
	return nil
}

// adminCount returns how many directory users hold the admin role.
// Concurrent callers share one directory scan; a positive result is cached
// so steady-state requests skip the O(total users) listing.
func (f *Flow) adminCount(ctx context.Context) (int, error) {
	if f.config.Cache != nil {
		if raw, ok := f.config.Cache.Get(ctx, setupCompleteKey); ok {
			if n, err := strconv.Atoi(string(raw)); err == nil && n > 0 {
				return n, nil
			}
		}
	}

	v, err, _ := f.group.Do("admin-count", func() (any, error) {
		admins, err := f.dir.ListUsersByRole(ctx, auth.RoleAdmin)
		if err != nil {
			return 0, err
		}
		return len(admins), nil
	})
	if err != nil {
		return 0, err
	}

	count := v.(int)
	if count > 0 {
		f.markSetupComplete(ctx, count)
	}
	return count, nil
}

func (f *Flow) markSetupComplete(ctx context.Context, count int) {
	if f.config.Cache == nil {
		return
	}
	_ = f.config.Cache.Set(ctx, setupCompleteKey, []byte(strconv.Itoa(count)), f.config.SetupCacheTTL)
}

func (f *Flow) statusMessage(base string) string {
	if f.config.DevMode {
		return base + " (Development Mode)"
	}
	return base
}

// providerError logs the internal cause and returns a classified error
// with a short, stable detail. Provider internals are never surfaced to
// untrusted callers.
func (f *Flow) providerError(op string, err error) error {
	f.config.Logger.Error(context.Background(), "bootstrap operation failed",
		observe.Field{Key: "op", Value: op},
		observe.Field{Key: "error", Value: err.Error()})
	if ae, ok := err.(*auth.Error); ok {
		return ae
	}
	return &auth.Error{Kind: auth.KindProvisionFailed, Detail: "identity provider unavailable", Err: err}
}
