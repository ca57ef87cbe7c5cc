// Package health provides health monitoring for features and the service as
// a whole, with thread-safe status tracking and aggregation.
//
// The package supports three health states:
//   - Healthy: feature operating normally
//   - Degraded: feature operating with reduced functionality
//   - Unhealthy: feature not functioning properly
//
// Status is an individual feature's health snapshot. Monitor tracks statuses
// for many features concurrently. Aggregate combines sub-statuses using
// worst-case rules: any unhealthy feature marks the service unhealthy, any
// degraded feature (with none unhealthy) marks it degraded.
//
// Error messages exposed through FromFeatureState are sanitized to strip
// URLs, file paths, IP addresses, ports, and credentials before they reach
// health endpoints or the event bus.
package health
