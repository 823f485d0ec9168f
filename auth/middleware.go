package auth

import (
	"encoding/json"
	"net/http"
)

// AuthorizationHeader is the request header carrying the identity token.
const AuthorizationHeader = "Authorization"

// RequireAuth is HTTP middleware that authenticates the request and binds
// the resulting claims to the request context. Unauthenticated requests are
// rejected with 401 and a JSON error body.
//
// Usage:
//
//	mux.Handle("/api", gate.RequireAuth(apiHandler))
func (g *Gate) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := g.Authenticate(r.Context(), r.Header.Get(AuthorizationHeader))
		if err != nil {
			writeAuthError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// RequireRoles is HTTP middleware that authenticates the request and then
// checks the claims against the policy. The pipeline order is fixed:
// authenticate, then authorize.
func (g *Gate) RequireRoles(policy Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return g.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if err := g.Authorize(claims, policy); err != nil {
				writeAuthError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

func writeAuthError(w http.ResponseWriter, err error) {
	ae := AsError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ae.Kind.HTTPStatus())
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   ae.Error(),
	})
}
