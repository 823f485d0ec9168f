// Package secret provides a small, dependency-light secret resolution layer
// for sensitive configuration values such as the admin setup secret.
//
// It supports:
//   - Strict environment expansion (see ExpandEnvStrict)
//   - Pluggable secret providers (see Provider + Resolver)
//
// References use the prefix "secretref:":
//   - Environment: secretref:env:ADMIN_SETUP_SECRET
//   - File:        secretref:file:/run/secrets/admin_setup_secret
package secret

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

const refPrefix = "secretref:"

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnvStrict expands environment variables in s.
//
// Semantics:
//   - `$VAR` and `${VAR}` are expanded via os.ExpandEnv.
//   - If `${VAR}` is present but VAR is missing from the environment, it errors.
//   - `$$` emits a literal `$` (escape hatch).
func ExpandEnvStrict(s string) (string, error) {
	const dollarSentinel = "\x00AUTHGATE_SECRET_DOLLAR\x00"
	s = strings.ReplaceAll(s, "$$", dollarSentinel)

	missing := make(map[string]struct{})
	for _, match := range envVarPattern.FindAllStringSubmatch(s, -1) {
		key := match[1]
		if _, ok := os.LookupEnv(key); !ok {
			missing[key] = struct{}{}
		}
	}
	if len(missing) > 0 {
		keys := make([]string, 0, len(missing))
		for k := range missing {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return "", fmt.Errorf("missing required environment variables: %s", strings.Join(keys, ", "))
	}

	s = os.ExpandEnv(s)
	s = strings.ReplaceAll(s, dollarSentinel, "$")
	return s, nil
}

// Provider resolves secrets by reference string.
//
// Implementations must be safe for concurrent use and must not log secret
// values.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
}

// EnvProvider resolves references against the process environment.
type EnvProvider struct{}

// Name returns "env".
func (EnvProvider) Name() string { return "env" }

// Resolve returns the value of the named environment variable.
func (EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	value, ok := os.LookupEnv(ref)
	if !ok {
		return "", fmt.Errorf("environment variable %q is not set", ref)
	}
	return value, nil
}

// FileProvider resolves references as file paths, trimming trailing
// whitespace. Suitable for container secret mounts.
type FileProvider struct{}

// Name returns "file".
func (FileProvider) Name() string { return "file" }

// Resolve reads the secret from the referenced file.
func (FileProvider) Resolve(_ context.Context, ref string) (string, error) {
	data, err := os.ReadFile(ref)
	if err != nil {
		return "", fmt.Errorf("read secret file: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// Resolver resolves secret references using registered providers. Values
// without the "secretref:" prefix are returned after strict environment
// expansion.
type Resolver struct {
	providers map[string]Provider
}

// NewResolver creates a resolver with the given providers. When none are
// supplied, the env and file providers are registered.
func NewResolver(providers ...Provider) *Resolver {
	r := &Resolver{providers: make(map[string]Provider)}
	if len(providers) == 0 {
		providers = []Provider{EnvProvider{}, FileProvider{}}
	}
	for _, p := range providers {
		if p == nil {
			continue
		}
		r.providers[p.Name()] = p
	}
	return r
}

// ResolveValue resolves a configuration value that may be a secret
// reference or a plain value containing environment expansions.
func (r *Resolver) ResolveValue(ctx context.Context, value string) (string, error) {
	if !strings.HasPrefix(value, refPrefix) {
		return ExpandEnvStrict(value)
	}

	rest := strings.TrimPrefix(value, refPrefix)
	name, ref, ok := strings.Cut(rest, ":")
	if !ok || name == "" || ref == "" {
		return "", fmt.Errorf("malformed secret reference %q", value)
	}

	provider, ok := r.providers[name]
	if !ok {
		return "", fmt.Errorf("no secret provider registered for %q", name)
	}

	return provider.Resolve(ctx, ref)
}
