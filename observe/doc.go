// Package observe provides observability primitives for the authorization
// layer: a structured JSON logger, OpenTelemetry metrics and tracing, and
// HTTP middleware instrumentation.
//
// It is a pure instrumentation library: no business logic, no I/O beyond
// exporter setup. Consumers wire the observer into the bootstrap flow and
// the HTTP surface.
package observe
