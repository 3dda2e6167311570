// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package lazyseq

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrInvalidProducer is returned by New for a nil producer or one that
	// fails its own validation.
	ErrInvalidProducer = errors.New("invalid producer")

	// ErrAlreadyRunning is returned when Resume is called while a step is in
	// progress.
	ErrAlreadyRunning = errors.New("generator is already running")

	// ErrProducerFailed wraps an error returned by a producer step.
	ErrProducerFailed = errors.New("producer failed")

	// ErrResourceRelease is matched by any ReleaseError.
	ErrResourceRelease = errors.New("resource release failed")

	// ErrDuplicateResource is returned when a resource name is acquired twice.
	ErrDuplicateResource = errors.New("resource already held")

	// ErrUnknownResource is returned when releasing a name that is not held.
	ErrUnknownResource = errors.New("resource not held")

	// ErrReleasePanicked marks a release function that panicked. The panic
	// is reported as a release failure and the remaining resources are
	// still released.
	ErrReleasePanicked = errors.New("release panicked")

	// ErrScopeClosed is returned when acquiring on a scope that has already
	// released everything. The resource is released immediately.
	ErrScopeClosed = errors.New("scope is closed")
)

// ReleaseError collects the failures of one release pass.
//
// errors.Is(err, ErrResourceRelease) holds for every ReleaseError, and each
// individual failure is reachable through errors.Is / errors.As as well.
type ReleaseError struct {
	// Failures holds one error per resource that failed to release, in
	// release order.
	Failures []error
}

// Error implements the error interface.
func (e *ReleaseError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf("%s: %s", ErrResourceRelease, strings.Join(msgs, "; "))
}

// Unwrap exposes ErrResourceRelease and every failure.
func (e *ReleaseError) Unwrap() []error {
	return append([]error{ErrResourceRelease}, e.Failures...)
}

// -----------------------------------------------------------------------------
// Enums
// -----------------------------------------------------------------------------

// State is the lifecycle state of a Generator.
type State int32

const (
	// StateCreated indicates no producer code has run yet.
	StateCreated State = iota

	// StateRunning indicates a producer step is in progress.
	StateRunning

	// StateSuspended indicates the producer yielded a value and is paused.
	StateSuspended

	// StateExhausted indicates the producer finished, failed or panicked.
	StateExhausted

	// StateCancelled indicates the generator was cancelled.
	StateCancelled
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateSuspended:
		return "suspended"
	case StateExhausted:
		return "exhausted"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsTerminal returns true if this is a terminal state.
func (s State) IsTerminal() bool {
	return s == StateExhausted || s == StateCancelled
}

// -----------------------------------------------------------------------------
// Producer contract
// -----------------------------------------------------------------------------

// Producer is the body of a lazy sequence, written as an explicit state
// struct. Each call to Next continues from where the previous call stopped.
//
// Next returns (v, true, nil) to yield v, (zero, false, nil) when there are
// no more values, or a non-nil error to fail. It is never called again after
// returning false or an error.
type Producer[T any] interface {
	Next(s *Scope) (T, bool, error)
}

// Starter is implemented by producers that need setup (opening a file,
// acquiring an upstream) on the first Resume rather than at construction.
type Starter interface {
	Start(s *Scope) error
}

// Validator is implemented by producers that can reject their own
// parameters. New calls Validate before returning the generator.
type Validator interface {
	Validate() error
}

// canceller is anything a scope can shut down by cancelling it.
type canceller interface {
	Cancel() error
}

// upstreamOwner is implemented by combinators. New registers the upstream as
// a scope resource so that every exit path of the downstream cancels it.
type upstreamOwner interface {
	upstream() canceller
}

// -----------------------------------------------------------------------------
// Options
// -----------------------------------------------------------------------------

type options struct {
	logger *slog.Logger
	name   string
}

// Option configures a Generator.
type Option func(*options)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithName sets a human-readable name used in logs.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}
