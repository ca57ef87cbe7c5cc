// Package feature provides app-scoped feature registration and lifecycle
// management. A feature is a named long-lived object with explicit startup
// and shutdown hooks, owned by a single application instance.
//
// Features are registered before the application starts, started in
// registration order, and stopped in reverse registration order. Startup is
// fail-fast; shutdown is best-effort.
package feature

import "context"

// Feature defines the lifecycle contract for app-scoped components.
// Startup and Shutdown are invoked by the registry during application start
// and stop. Both receive a context for cancellation and deadlines; neither
// may be called more than once per application run.
type Feature interface {
	// Name returns the feature's registered name
	Name() string

	// Startup initializes the feature. Blocking work (connections, file
	// handles) belongs here rather than in the constructor.
	Startup(ctx context.Context) error

	// Shutdown releases the feature's resources. Called at most once,
	// and only after a successful or attempted Startup.
	Shutdown(ctx context.Context) error
}

// State represents the current lifecycle state of a registered feature
type State int

const (
	// StateUnstarted indicates the feature was registered but not started
	StateUnstarted State = iota
	// StateStarting indicates the feature's startup hook is running
	StateStarting
	// StateStarted indicates the feature is running
	StateStarted
	// StateStopping indicates the feature's shutdown hook is running
	StateStopping
	// StateStopped indicates the feature was stopped
	StateStopped
	// StateFailed indicates the feature failed during a lifecycle operation
	StateFailed
)

// String returns a string representation of the feature state
func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateStarting:
		return "starting"
	case StateStarted:
		return "started"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
