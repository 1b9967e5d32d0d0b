// Package observability wires OpenTelemetry into the runtime.
//
// Setup installs OTLP/HTTP trace and metric exporters on the global
// providers and returns them for Shutdown. Metrics holds the instruments the
// container, the tracker and the domain record into; a nil *Metrics is valid
// and records nothing. StartSpan opens spans on the package tracer, which
// the domain uses around unit scans.
package observability
