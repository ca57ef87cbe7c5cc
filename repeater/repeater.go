// Package repeater provides a feature that runs a prepare-once, run-forever
// loop on a managed background task.
//
// A Repeater wraps an implementation with a Prepare hook, called once before
// the loop starts, and a Run hook, called repeatedly until shutdown. Run
// errors do not stop the loop: they are logged on the first occurrence and
// then suppressed until the loop recovers, so a flapping dependency does not
// flood the log.
package repeater

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync/atomic"

	"github.com/BrewBlox/brewblox-service/errors"
	"github.com/BrewBlox/brewblox-service/scheduler"
)

// ErrCancelled stops the repeat loop without logging an error.
// Return it from Prepare or Run when the loop should end cleanly.
var ErrCancelled = stderrors.New("repeater cancelled")

// Impl is the behavior run by a Repeater
type Impl interface {
	// Prepare is called once before the loop starts.
	// An error aborts the loop before the first Run.
	Prepare(ctx context.Context) error

	// Run is called repeatedly until shutdown. Implementations are expected
	// to block or sleep as appropriate; a tight non-blocking Run busy-loops.
	Run(ctx context.Context) error
}

// Repeater is a feature that runs an Impl as a supervised loop
type Repeater struct {
	name   string
	impl   Impl
	runner *scheduler.TaskRunner
	logger *slog.Logger

	active atomic.Bool
	task   *scheduler.Task
}

// New creates a repeater feature running impl under the given task runner
func New(name string, impl Impl, runner *scheduler.TaskRunner, logger *slog.Logger) *Repeater {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repeater{
		name:   name,
		impl:   impl,
		runner: runner,
		logger: logger,
	}
}

// Name returns the feature name
func (r *Repeater) Name() string {
	return r.name
}

// Active reports whether the repeat loop is currently running
func (r *Repeater) Active() bool {
	return r.active.Load()
}

// Startup launches the repeat loop as a managed task
func (r *Repeater) Startup(_ context.Context) error {
	task, err := r.runner.Create(r.name, r.loop)
	if err != nil {
		return errors.Wrap(err, "Repeater", "Startup", "create task")
	}
	r.task = task
	return nil
}

// Shutdown cancels the loop and waits for it to finish
func (r *Repeater) Shutdown(ctx context.Context) error {
	if r.task == nil {
		return nil
	}
	r.task.Cancel()

	select {
	case <-r.task.Done():
		return nil
	case <-ctx.Done():
		return errors.WrapTransient(ctx.Err(), "Repeater", "Shutdown", "wait for loop")
	}
}

func (r *Repeater) loop(ctx context.Context) error {
	if err := r.impl.Prepare(ctx); err != nil {
		if stderrors.Is(err, ErrCancelled) || stderrors.Is(err, context.Canceled) {
			r.logger.Debug("Repeater cancelled during prepare", "repeater", r.name)
			return nil
		}
		r.logger.Error("Repeater prepare failed", "repeater", r.name, "error", err)
		return errors.Wrap(err, "Repeater", "loop", "prepare")
	}

	r.active.Store(true)
	defer r.active.Store(false)
	r.logger.Debug("Repeater started", "repeater", r.name)

	lastOk := true
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		err := r.impl.Run(ctx)
		switch {
		case err == nil:
			if !lastOk {
				r.logger.Info("Repeater recovered", "repeater", r.name)
				lastOk = true
			}
		case stderrors.Is(err, ErrCancelled) || stderrors.Is(err, context.Canceled):
			r.logger.Debug("Repeater cancelled", "repeater", r.name)
			return nil
		default:
			// Log the first failure, then stay quiet until recovery
			if lastOk {
				r.logger.Error("Repeater run failed", "repeater", r.name, "error", err)
				lastOk = false
			}
		}
	}
}
