// Package metric provides Prometheus-based metrics collection for service
// monitoring and observability.
//
// The package offers a centralized metrics registry managing both core
// framework metrics (feature lifecycle, event bus traffic, health status)
// and feature-specific metrics registered at runtime. The registry wraps a
// dedicated Prometheus registry rather than the global default so that tests
// and multiple service instances never collide.
//
// Core metrics are registered automatically by NewRegistry, together with Go
// runtime and process collectors. Features add their own collectors through
// Register, keyed by feature and metric name so duplicates are rejected with
// a descriptive error rather than a Prometheus panic.
//
// The web server exposes the registry through Handler on its /metrics route.
package metric
