// Package errors provides standardized error handling for brewblox-service:
// sentinel errors for registry and broker conditions, typed lifecycle errors,
// error classification for retry decisions, and wrap helpers that keep error
// context uniform across the framework.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorClass drives how a caller reacts to a failure
type ErrorClass int

const (
	// ErrorTransient marks temporary failures worth retrying
	ErrorTransient ErrorClass = iota
	// ErrorInvalid marks failures caused by bad input or misuse
	ErrorInvalid
	// ErrorFatal marks unrecoverable failures that must stop processing
	ErrorFatal
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions
var (
	// Feature registry errors
	ErrDuplicateFeature = errors.New("feature already registered")
	ErrFeatureNotFound  = errors.New("feature not found")
	ErrAlreadyStarted   = errors.New("feature already started")
	ErrNotStarted       = errors.New("feature not started")

	// Broker connection errors
	ErrNotConnected   = errors.New("not connected to broker")
	ErrConnectionLost = errors.New("broker connection lost")

	// Topic errors
	ErrInvalidTopic = errors.New("invalid topic")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingConfig = errors.New("missing required configuration")
)

// StartupError wraps a feature's startup failure. Startup is fail-fast:
// a StartupError aborts the remaining startups and is fatal to the process.
type StartupError struct {
	Feature string
	Err     error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("feature %q startup failed: %v", e.Feature, e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }

// ShutdownError wraps a feature's shutdown failure. Shutdown is best-effort:
// a ShutdownError is logged and collected, but never aborts remaining shutdowns.
type ShutdownError struct {
	Feature string
	Err     error
}

func (e *ShutdownError) Error() string {
	return fmt.Sprintf("feature %q shutdown failed: %v", e.Feature, e.Err)
}

func (e *ShutdownError) Unwrap() error { return e.Err }

// PublishError is surfaced synchronously to Publish callers when no
// connection is available or the broker rejects the send. This layer never
// retries publishes; the caller decides whether to retry or drop.
type PublishError struct {
	Topic string
	Err   error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish to %q failed: %v", e.Topic, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// ClassifiedError tags a wrapped error with its class
type ClassifiedError struct {
	Class ErrorClass
	Err   error
}

func (ce *ClassifiedError) Error() string { return ce.Err.Error() }

func (ce *ClassifiedError) Unwrap() error { return ce.Err }

// classOf extracts an explicit classification, if the chain carries one
func classOf(err error) (ErrorClass, bool) {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class, true
	}
	return 0, false
}

// transientPatterns are message fragments that suggest a retryable failure
// from errors outside this module's control
var transientPatterns = []string{"timeout", "connection", "temporary", "unavailable"}

// IsTransient reports whether an error is temporary and worth retrying
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if class, ok := classOf(err); ok {
		return class == ErrorTransient
	}
	if errors.Is(err, ErrNotConnected) ||
		errors.Is(err, ErrConnectionLost) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	message := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(message, pattern) {
			return true
		}
	}
	return false
}

// IsFatal reports whether an error must stop processing
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if class, ok := classOf(err); ok {
		return class == ErrorFatal
	}

	var se *StartupError
	if errors.As(err, &se) {
		return true
	}
	return errors.Is(err, ErrInvalidConfig) || errors.Is(err, ErrMissingConfig)
}

// IsInvalid reports whether an error is caused by bad input
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}
	if class, ok := classOf(err); ok {
		return class == ErrorInvalid
	}
	return errors.Is(err, ErrInvalidTopic) ||
		errors.Is(err, ErrDuplicateFeature) ||
		errors.Is(err, ErrFeatureNotFound)
}

// Classify returns the error class for an error.
// Unknown errors default to transient so callers lean toward retrying.
func Classify(err error) ErrorClass {
	if IsFatal(err) {
		return ErrorFatal
	}
	if IsInvalid(err) {
		return ErrorInvalid
	}
	return ErrorTransient
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapTransient wraps an error as transient with context
func WrapTransient(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{Class: ErrorTransient, Err: Wrap(err, component, method, action)}
}

// WrapFatal wraps an error as fatal with context
func WrapFatal(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{Class: ErrorFatal, Err: Wrap(err, component, method, action)}
}

// WrapInvalid wraps an error as invalid with context
func WrapInvalid(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{Class: ErrorInvalid, Err: Wrap(err, component, method, action)}
}
