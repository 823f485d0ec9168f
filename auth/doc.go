// Package auth provides authentication and authorization primitives for the
// clinical platform backend.
//
// It verifies identity tokens through a pluggable TokenVerifier, attaches
// typed Claims to the request context, and gates access with role-based
// checks over the fixed role set (admin, doctor, patient). The package is
// protocol-agnostic; HTTP middleware adapters are provided for convenience.
package auth
