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

import "errors"

// Each combinator owns its upstream generator: New registers it as the
// "upstream" scope resource, so exhausting or cancelling the downstream
// cancels the upstream. Cancel on an already finished upstream is a no-op.

var errNilUpstream = errors.New("upstream generator is nil")

// -----------------------------------------------------------------------------
// Map
// -----------------------------------------------------------------------------

type mapProducer[T, U any] struct {
	src *Generator[T]
	fn  func(T) U
}

// Map yields fn(v) for every value v of src.
func Map[T, U any](src *Generator[T], fn func(T) U) Producer[U] {
	return &mapProducer[T, U]{src: src, fn: fn}
}

func (p *mapProducer[T, U]) upstream() canceller { return p.src }

func (p *mapProducer[T, U]) Validate() error {
	if p.src == nil {
		return errNilUpstream
	}
	if p.fn == nil {
		return errors.New("map function is nil")
	}
	return nil
}

func (p *mapProducer[T, U]) Next(*Scope) (U, bool, error) {
	v, ok, err := p.src.Resume()
	if err != nil || !ok {
		var zero U
		return zero, false, err
	}
	return p.fn(v), true, nil
}

// -----------------------------------------------------------------------------
// Filter
// -----------------------------------------------------------------------------

type filterProducer[T any] struct {
	src  *Generator[T]
	pred func(T) bool
}

// Filter yields the values of src for which pred is true. Each Resume pulls
// from src only until the next match.
func Filter[T any](src *Generator[T], pred func(T) bool) Producer[T] {
	return &filterProducer[T]{src: src, pred: pred}
}

func (p *filterProducer[T]) upstream() canceller { return p.src }

func (p *filterProducer[T]) Validate() error {
	if p.src == nil {
		return errNilUpstream
	}
	if p.pred == nil {
		return errors.New("filter predicate is nil")
	}
	return nil
}

func (p *filterProducer[T]) Next(*Scope) (T, bool, error) {
	for {
		v, ok, err := p.src.Resume()
		if err != nil || !ok {
			var zero T
			return zero, false, err
		}
		if p.pred(v) {
			return v, true, nil
		}
	}
}

// -----------------------------------------------------------------------------
// Take
// -----------------------------------------------------------------------------

type takeProducer[T any] struct {
	src   *Generator[T]
	limit int
	taken int
}

// Take yields at most n values of src. src is never resumed after the n-th
// value and is cancelled when the Take generator ends.
func Take[T any](src *Generator[T], n int) Producer[T] {
	return &takeProducer[T]{src: src, limit: n}
}

func (p *takeProducer[T]) upstream() canceller { return p.src }

func (p *takeProducer[T]) Validate() error {
	if p.src == nil {
		return errNilUpstream
	}
	if p.limit < 0 {
		return errors.New("take limit is negative")
	}
	return nil
}

func (p *takeProducer[T]) Next(*Scope) (T, bool, error) {
	var zero T
	if p.taken >= p.limit {
		return zero, false, nil
	}
	v, ok, err := p.src.Resume()
	if err != nil || !ok {
		return zero, false, err
	}
	p.taken++
	return v, true, nil
}
