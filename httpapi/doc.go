// Package httpapi exposes the authorization layer over HTTP: admin
// bootstrap, role management, and user profile endpoints, plus the
// operational endpoints (health, metrics).
//
// All responses share one JSON envelope:
//
//	{"success": true,  "message": "...", "data": {...}}
//	{"success": false, "error": "..."}
//
// Role-gated routes run through the auth.Gate middleware; the bootstrap
// routes are additionally rate limited per client.
package httpapi
