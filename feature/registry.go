package feature

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BrewBlox/brewblox-service/errors"
)

// managed tracks a registered feature and its lifecycle state
type managed struct {
	feature Feature
	state   State
	lastErr error
}

// Registry is the application-scoped catalog of features.
// Registration order is preserved: StartAll starts features in the order
// they were added, StopAll stops them in reverse order.
//
// Registration is expected to happen during application bootstrap, but the
// registry is safe for concurrent use throughout.
type Registry struct {
	features  map[string]*managed
	order     []string
	logger    *slog.Logger
	onStartup func(name string, elapsed time.Duration)
	mu        sync.RWMutex
}

// NewRegistry creates a new empty feature registry
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		features: make(map[string]*managed),
		logger:   logger,
	}
}

// OnStartup registers an observer invoked with the elapsed wall time of
// every feature startup attempt, successful or not. Passing nil clears the
// observer.
func (r *Registry) OnStartup(observer func(name string, elapsed time.Duration)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onStartup = observer
}

func (r *Registry) observeStartup(name string, elapsed time.Duration) {
	r.mu.RLock()
	observer := r.onStartup
	r.mu.RUnlock()

	if observer != nil {
		observer(name, elapsed)
	}
}

// Add registers a feature under the given name. Startup is deferred until
// StartAll; Add itself has no side effect beyond registration.
//
// Re-registering a name fails with ErrDuplicateFeature. The registry never
// silently overwrites: replacing a live feature would orphan its resources.
func (r *Registry) Add(name string, f Feature) error {
	if name == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "Add", "feature name validation")
	}
	if f == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "Add", "feature validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.features[name]; exists {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %q", errors.ErrDuplicateFeature, name),
			"Registry", "Add", "duplicate feature check")
	}

	r.features[name] = &managed{feature: f, state: StateUnstarted}
	r.order = append(r.order, name)
	return nil
}

// Get returns the feature registered under name.
// Pure lookup: no side effects, fails with ErrFeatureNotFound if absent.
func (r *Registry) Get(name string) (Feature, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mf, exists := r.features[name]
	if !exists {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %q", errors.ErrFeatureNotFound, name),
			"Registry", "Get", "feature lookup")
	}
	return mf.feature, nil
}

// State returns the lifecycle state of the named feature
func (r *Registry) State(name string) (State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mf, exists := r.features[name]
	if !exists {
		return StateUnstarted, errors.WrapInvalid(
			fmt.Errorf("%w: %q", errors.ErrFeatureNotFound, name),
			"Registry", "State", "feature lookup")
	}
	return mf.state, nil
}

// Names returns the registered feature names in registration order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Len returns the number of registered features
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Info describes a registered feature's current lifecycle state
type Info struct {
	Name    string
	State   State
	LastErr error
}

// Snapshot returns the state of every registered feature in registration order
func (r *Registry) Snapshot() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.order))
	for _, name := range r.order {
		mf := r.features[name]
		infos = append(infos, Info{Name: name, State: mf.state, LastErr: mf.lastErr})
	}
	return infos
}

// StartAll invokes Startup on every registered feature in registration order.
//
// Startup is fail-fast: the first failure marks the feature failed, aborts
// the remaining startups, and is returned as a StartupError. Features
// registered after the failing one are never started. Starting an already
// started feature is an error.
func (r *Registry) StartAll(ctx context.Context) error {
	for _, name := range r.Names() {
		if err := r.startOne(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) startOne(ctx context.Context, name string) error {
	r.mu.Lock()
	mf, exists := r.features[name]
	if !exists {
		r.mu.Unlock()
		return errors.WrapInvalid(
			fmt.Errorf("%w: %q", errors.ErrFeatureNotFound, name),
			"Registry", "StartAll", "feature lookup")
	}
	if mf.state != StateUnstarted {
		r.mu.Unlock()
		return errors.WrapInvalid(
			fmt.Errorf("%w: %q is %s", errors.ErrAlreadyStarted, name, mf.state),
			"Registry", "StartAll", "state check")
	}
	mf.state = StateStarting
	f := mf.feature
	r.mu.Unlock()

	r.logger.Debug("Starting feature", "feature", name)
	began := time.Now()
	err := f.Startup(ctx)
	r.observeStartup(name, time.Since(began))
	if err != nil {
		r.mu.Lock()
		mf.state = StateFailed
		mf.lastErr = err
		r.mu.Unlock()
		r.logger.Error("Feature startup failed", "feature", name, "error", err)
		return &errors.StartupError{Feature: name, Err: err}
	}

	r.mu.Lock()
	mf.state = StateStarted
	r.mu.Unlock()
	r.logger.Debug("Feature started", "feature", name)
	return nil
}

// StopAll invokes Shutdown on every registered feature in reverse
// registration order.
//
// Shutdown is best-effort: individual failures are logged and collected,
// never aborting the remaining shutdowns, so every feature gets a shutdown
// attempt. Unstarted features are skipped; each feature's shutdown is
// invoked at most once.
func (r *Registry) StopAll(ctx context.Context) error {
	names := r.Names()

	var errs []error
	for i := len(names) - 1; i >= 0; i-- {
		if err := r.stopOne(ctx, names[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

func (r *Registry) stopOne(ctx context.Context, name string) error {
	r.mu.Lock()
	mf, exists := r.features[name]
	if !exists {
		r.mu.Unlock()
		return nil
	}
	switch mf.state {
	case StateUnstarted, StateStopping, StateStopped:
		// Stopping a feature that never started (or is already stopping)
		// is a no-op.
		r.mu.Unlock()
		return nil
	}
	mf.state = StateStopping
	f := mf.feature
	r.mu.Unlock()

	r.logger.Debug("Stopping feature", "feature", name)
	err := f.Shutdown(ctx)

	r.mu.Lock()
	mf.state = StateStopped
	mf.lastErr = err
	r.mu.Unlock()

	if err != nil {
		r.logger.Error("Feature shutdown failed", "feature", name, "error", err)
		return &errors.ShutdownError{Feature: name, Err: err}
	}
	r.logger.Debug("Feature stopped", "feature", name)
	return nil
}
