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
	"iter"
	"log/slog"
	"reflect"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator drives a Producer one suspension point at a time.
//
// Thread Safety: See the package documentation. Resume and Cancel detect
// overlapping calls through an atomic state but do not block.
type Generator[T any] struct {
	id       string
	name     string
	producer Producer[T]
	scope    *Scope
	logger   *slog.Logger

	state    atomic.Int32 // State
	started  bool
	produced int
	err      error
}

// New creates a generator in StateCreated.
//
// Description:
//
//	No producer code runs except Validate, if the producer implements
//	Validator. Setup (Starter.Start) and the first step happen on the
//	first Resume.
//
// Inputs:
//   - p: The producer. Must not be nil, including a nil pointer stored in
//     the interface.
//   - opts: Optional configuration.
//
// Outputs:
//   - *Generator[T]: The generator.
//   - error: ErrInvalidProducer (wrapped) if p is nil or fails validation.
func New[T any](p Producer[T], opts ...Option) (*Generator[T], error) {
	if isNilProducer(p) {
		return nil, fmt.Errorf("%w: nil producer", ErrInvalidProducer)
	}
	if v, ok := p.(Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidProducer, err)
		}
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	id := uuid.NewString()
	attrs := []any{slog.String("component", "lazyseq"), slog.String("generator_id", id)}
	if o.name != "" {
		attrs = append(attrs, slog.String("generator", o.name))
	}

	g := &Generator[T]{
		id:       id,
		name:     o.name,
		producer: p,
		scope:    newScope(),
		logger:   o.logger.With(attrs...),
	}
	g.state.Store(int32(StateCreated))

	if owner, ok := p.(upstreamOwner); ok {
		up := owner.upstream()
		if err := g.scope.Acquire("upstream", up.Cancel); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidProducer, err)
		}
	}

	generatorsCreated.Inc()
	g.logger.Debug("generator created")
	return g, nil
}

// isNilProducer reports whether p is nil or holds a nil pointer, func, map,
// slice or channel. Calling a method on such a producer would panic.
func isNilProducer(p any) bool {
	if p == nil {
		return true
	}
	switch v := reflect.ValueOf(p); v.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Slice, reflect.Chan:
		return v.IsNil()
	default:
		return false
	}
}

// ID returns the generator's unique ID.
func (g *Generator[T]) ID() string { return g.id }

// Name returns the name set with WithName, or "".
func (g *Generator[T]) Name() string { return g.name }

// State returns the current lifecycle state.
func (g *Generator[T]) State() State {
	return State(g.state.Load())
}

// Produced returns how many values have been yielded so far.
func (g *Generator[T]) Produced() int { return g.produced }

// Err returns the error that ended the generator, if any.
func (g *Generator[T]) Err() error { return g.err }

// Resume runs the producer to its next suspension point.
//
// Description:
//
//	From Created or Suspended the generator becomes Running and the
//	producer takes one step:
//
//	  - a value: Suspended, returns (v, true, nil)
//	  - no more values: resources released, Exhausted, returns
//	    (zero, false, err) where err is any release failure
//	  - an error: resources released, Exhausted, returns an error matching
//	    ErrProducerFailed (joined with any release failure)
//	  - a panic: resources released, Exhausted, the panic propagates
//
//	If the step cancelled the generator, its outcome is discarded and
//	(zero, false, nil) is returned. A terminal generator returns
//	(zero, false, nil) without side effects. A Resume during a step returns
//	ErrAlreadyRunning and changes nothing.
//
// Outputs:
//   - T: The yielded value, or the zero value.
//   - bool: True if a value was yielded.
//   - error: Non-nil on failure, as described above.
func (g *Generator[T]) Resume() (T, bool, error) {
	var zero T

	cur := g.State()
	switch cur {
	case StateExhausted, StateCancelled:
		return zero, false, nil
	case StateRunning:
		return zero, false, ErrAlreadyRunning
	}
	if !g.state.CompareAndSwap(int32(cur), int32(StateRunning)) {
		if g.State() == StateRunning {
			return zero, false, ErrAlreadyRunning
		}
		return zero, false, nil
	}
	return g.step()
}

// step runs one producer step. The caller has moved the state to Running.
func (g *Generator[T]) step() (T, bool, error) {
	panicking := true
	defer func() {
		if !panicking {
			return
		}
		g.logger.Error("producer panicked")
		if _, err := g.finish(outcomePanicked); err != nil {
			g.logger.Warn("resource release failed after panic", slog.String("error", err.Error()))
		}
	}()

	v, ok, err := g.advance()
	panicking = false
	return g.settle(v, ok, err)
}

// advance runs Start on the first step, then Next.
func (g *Generator[T]) advance() (T, bool, error) {
	if !g.started {
		g.started = true
		if s, ok := g.producer.(Starter); ok {
			if err := s.Start(g.scope); err != nil {
				var zero T
				return zero, false, err
			}
			if g.State() == StateCancelled {
				var zero T
				return zero, false, nil
			}
		}
	}
	return g.producer.Next(g.scope)
}

// settle applies the outcome of a step to the state machine.
func (g *Generator[T]) settle(v T, ok bool, err error) (T, bool, error) {
	var zero T

	if g.State() == StateCancelled {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, g.fail(err)
	}
	if !ok {
		_, releaseErr := g.finish(outcomeExhausted)
		if releaseErr != nil {
			g.err = releaseErr
		}
		return zero, false, releaseErr
	}

	g.state.CompareAndSwap(int32(StateRunning), int32(StateSuspended))
	g.produced++
	valuesYielded.Inc()
	return v, true, nil
}

// fail ends the generator after a producer error.
func (g *Generator[T]) fail(cause error) error {
	err := fmt.Errorf("%w: %w", ErrProducerFailed, cause)
	if _, releaseErr := g.finish(outcomeFailed); releaseErr != nil {
		err = errors.Join(err, releaseErr)
	}
	g.err = err
	g.logger.Debug("producer failed", slog.String("error", cause.Error()))
	return err
}

// finish moves a Running generator to Exhausted and releases its scope. It
// reports false if the generator had already left Running.
func (g *Generator[T]) finish(outcome string) (bool, error) {
	if !g.state.CompareAndSwap(int32(StateRunning), int32(StateExhausted)) {
		return false, nil
	}
	err := g.scope.close()
	generatorsFinished.WithLabelValues(outcome).Inc()
	g.logger.Debug("generator finished",
		slog.String("outcome", outcome),
		slog.Int("produced", g.produced),
	)
	return true, err
}

// Cancel stops the generator and releases its resources.
//
// Description:
//
//	From Created, Suspended or Running the generator becomes Cancelled.
//	Held resources are released before Cancel returns and the scope's
//	Context is cancelled. Calling Cancel from inside the producer's own step
//	is allowed; the step's outcome is then discarded by Resume.
//
// Outputs:
//   - error: nil, or a *ReleaseError (matching ErrResourceRelease) if any
//     release function failed. The state is Cancelled either way. Cancel on
//     a terminal generator is a no-op returning nil.
func (g *Generator[T]) Cancel() error {
	for {
		cur := g.State()
		if cur.IsTerminal() {
			return nil
		}
		if g.state.CompareAndSwap(int32(cur), int32(StateCancelled)) {
			break
		}
	}

	g.scope.cancelled.Store(true)
	err := g.scope.close()
	generatorsFinished.WithLabelValues(outcomeCancelled).Inc()

	if err != nil {
		g.err = err
		g.logger.Warn("generator cancelled with release failures", slog.String("error", err.Error()))
		return err
	}
	g.logger.Debug("generator cancelled", slog.Int("produced", g.produced))
	return nil
}

// All adapts the generator to a range-over-func sequence.
//
// Description:
//
//	Each iteration resumes the generator once. The sequence ends when the
//	generator is exhausted or cancelled, or when Resume fails; the failure
//	is then available from Err. Breaking out of the loop leaves the
//	generator Suspended, so it can be resumed later or cancelled.
func (g *Generator[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			v, ok, err := g.Resume()
			if err != nil {
				g.err = err
				return
			}
			if !ok || !yield(v) {
				return
			}
		}
	}
}

// Collect resumes the generator until it ends and returns every value.
// On failure the values yielded before the failure are returned with it.
func (g *Generator[T]) Collect() ([]T, error) {
	var out []T
	for {
		v, ok, err := g.Resume()
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}
