// Package scheduler provides managed background task execution.
//
// The TaskRunner is a feature that owns the lifecycle of background
// goroutines. Tasks created through it are tracked, cancelled as a group at
// shutdown, and waited on with a bounded timeout so a stuck task cannot hang
// service shutdown indefinitely.
package scheduler

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BrewBlox/brewblox-service/errors"
)

// Task represents a managed background task
type Task struct {
	name   string
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

// Name returns the task name
func (t *Task) Name() string {
	return t.name
}

// Cancel requests cancellation of the task. It does not wait for the task
// to finish; use Done for that.
func (t *Task) Cancel() {
	t.cancel()
}

// Done returns a channel that is closed when the task has finished
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Err returns the error the task finished with, or nil.
// Only valid after Done is closed.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Task) finish(err error) {
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()
	close(t.done)
}

// TaskRunner creates and supervises background tasks.
// It implements the feature lifecycle: tasks can only be created while the
// runner is started, and Shutdown cancels every remaining task.
type TaskRunner struct {
	name        string
	logger      *slog.Logger
	stopTimeout time.Duration

	mu      sync.Mutex
	started bool
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	tasks   map[*Task]struct{}
}

// Option configures a TaskRunner
type Option func(*TaskRunner)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(r *TaskRunner) {
		r.logger = logger
	}
}

// WithStopTimeout bounds how long Shutdown waits for tasks to finish
func WithStopTimeout(timeout time.Duration) Option {
	return func(r *TaskRunner) {
		r.stopTimeout = timeout
	}
}

// NewTaskRunner creates a new task runner
func NewTaskRunner(opts ...Option) *TaskRunner {
	r := &TaskRunner{
		name:        "scheduler",
		logger:      slog.Default(),
		stopTimeout: 5 * time.Second,
		tasks:       make(map[*Task]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name returns the feature name
func (r *TaskRunner) Name() string {
	return r.name
}

// Startup prepares the runner to accept tasks
func (r *TaskRunner) Startup(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "TaskRunner", "Startup", "state check")
	}

	// Tasks outlive the startup call, so they hang off an internal context
	// cancelled at shutdown rather than the startup context.
	r.baseCtx, r.cancel = context.WithCancel(context.Background())
	r.started = true
	return nil
}

// Create starts fn in a new goroutine and returns a handle to it.
// The function receives a context cancelled either by Task.Cancel or by
// runner shutdown.
func (r *TaskRunner) Create(name string, fn func(ctx context.Context) error) (*Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return nil, errors.WrapInvalid(errors.ErrNotStarted, "TaskRunner", "Create", "state check")
	}

	ctx, cancel := context.WithCancel(r.baseCtx)
	task := &Task{
		name:   name,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	r.tasks[task] = struct{}{}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()
		defer func() {
			if rec := recover(); rec != nil {
				task.finish(fmt.Errorf("task %s panicked: %v", name, rec))
				r.logger.Error("Task panicked", "task", name, "panic", rec)
			}
			r.mu.Lock()
			delete(r.tasks, task)
			r.mu.Unlock()
		}()

		r.logger.Debug("Task started", "task", name)
		err := fn(ctx)
		task.finish(err)

		if err != nil && !stderrors.Is(err, context.Canceled) {
			r.logger.Error("Task finished with error", "task", name, "error", err)
		} else {
			r.logger.Debug("Task finished", "task", name)
		}
	}()

	return task, nil
}

// Count returns the number of currently running tasks
func (r *TaskRunner) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// Shutdown cancels all tasks and waits up to the stop timeout for them to
// finish. Tasks still running after the timeout are abandoned.
func (r *TaskRunner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return nil
	}
	r.started = false
	r.cancel()
	remaining := len(r.tasks)
	r.mu.Unlock()

	if remaining > 0 {
		r.logger.Debug("Cancelling tasks", "count", remaining)
	}

	finished := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(finished)
	}()

	timeout := time.NewTimer(r.stopTimeout)
	defer timeout.Stop()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return errors.WrapTransient(ctx.Err(), "TaskRunner", "Shutdown", "wait for tasks")
	case <-timeout.C:
		return errors.WrapTransient(
			fmt.Errorf("%d tasks still running after %s", r.Count(), r.stopTimeout),
			"TaskRunner", "Shutdown", "wait for tasks")
	}
}
