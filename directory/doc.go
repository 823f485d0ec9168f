// Package directory defines the identity-provider capability the
// authorization layer consumes: token verification, user lookup and
// provisioning, and custom role assignment.
//
// The platform does not own user records; it talks to an external provider
// through the Provider interface. A memory implementation backs tests and
// local development against the provider emulator.
package directory
