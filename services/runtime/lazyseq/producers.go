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
	"bufio"
	"errors"
	"fmt"
	"io"
	"slices"
)

// =============================================================================
// Countdown
// =============================================================================

type countdown struct {
	start   int
	current int
}

// Countdown yields n, n-1, ..., 1. Countdown(0) yields nothing.
func Countdown(n int) Producer[int] {
	return &countdown{start: n, current: n}
}

func (c *countdown) Validate() error {
	if c.start < 0 {
		return fmt.Errorf("countdown start %d is negative", c.start)
	}
	return nil
}

func (c *countdown) Next(*Scope) (int, bool, error) {
	if c.current <= 0 {
		return 0, false, nil
	}
	v := c.current
	c.current--
	return v, true, nil
}

// =============================================================================
// Range
// =============================================================================

type rangeProducer struct {
	next, stop, step int
}

// Range yields start, start+step, ... while the value is before stop
// (below stop for a positive step, above it for a negative one).
func Range(start, stop, step int) Producer[int] {
	return &rangeProducer{next: start, stop: stop, step: step}
}

func (r *rangeProducer) Validate() error {
	if r.step == 0 {
		return errors.New("range step must not be zero")
	}
	return nil
}

func (r *rangeProducer) Next(*Scope) (int, bool, error) {
	if (r.step > 0 && r.next >= r.stop) || (r.step < 0 && r.next <= r.stop) {
		return 0, false, nil
	}
	v := r.next
	r.next += r.step
	return v, true, nil
}

// =============================================================================
// FromSlice
// =============================================================================

type sliceProducer[T any] struct {
	items []T
	pos   int
}

// FromSlice yields the elements of items in order. The slice is copied, so
// later changes to items do not affect the sequence.
func FromSlice[T any](items []T) Producer[T] {
	return &sliceProducer[T]{items: slices.Clone(items)}
}

func (p *sliceProducer[T]) Next(*Scope) (T, bool, error) {
	if p.pos >= len(p.items) {
		var zero T
		return zero, false, nil
	}
	v := p.items[p.pos]
	p.pos++
	return v, true, nil
}

// =============================================================================
// Iterate
// =============================================================================

type iterateProducer[T any] struct {
	cur T
	fn  func(T) T
	fed bool
}

// Iterate yields seed, fn(seed), fn(fn(seed)), ... without end. Combine it
// with Take, or Cancel the generator, to stop.
func Iterate[T any](seed T, fn func(T) T) Producer[T] {
	return &iterateProducer[T]{cur: seed, fn: fn}
}

func (p *iterateProducer[T]) Validate() error {
	if p.fn == nil {
		return errors.New("iterate function is nil")
	}
	return nil
}

func (p *iterateProducer[T]) Next(*Scope) (T, bool, error) {
	if p.fed {
		p.cur = p.fn(p.cur)
	}
	p.fed = true
	return p.cur, true, nil
}

// =============================================================================
// Func
// =============================================================================

// StepFunc produces the value for step i (0-based). It has the same return
// contract as Producer.Next.
type StepFunc[T any] func(i int, s *Scope) (T, bool, error)

type funcProducer[T any] struct {
	fn StepFunc[T]
	i  int
}

// Func adapts a step-indexed function to a Producer.
func Func[T any](fn StepFunc[T]) Producer[T] {
	return &funcProducer[T]{fn: fn}
}

func (p *funcProducer[T]) Validate() error {
	if p.fn == nil {
		return errors.New("step function is nil")
	}
	return nil
}

func (p *funcProducer[T]) Next(s *Scope) (T, bool, error) {
	i := p.i
	p.i++
	return p.fn(i, s)
}

// =============================================================================
// Lines
// =============================================================================

// LinesResource is the scope resource name under which Lines holds its
// reader.
const LinesResource = "lines"

// maxLineSize bounds a single line read by Lines.
const maxLineSize = 1 << 20

type linesProducer struct {
	open    func() (io.ReadCloser, error)
	scanner *bufio.Scanner
}

// Lines yields the lines of a reader, without their line endings.
//
// Description:
//
//	open is called on the first Resume, not by New, and the reader is held
//	as the scope resource LinesResource. It is closed when the generator
//	ends for any reason, including Cancel or an enclosing Take reaching its
//	limit, so only the lines actually consumed are ever read.
//
// Inputs:
//   - open: Opens the reader, for example func() (io.ReadCloser, error) {
//     return os.Open(path) }. Must not be nil.
func Lines(open func() (io.ReadCloser, error)) Producer[string] {
	return &linesProducer{open: open}
}

func (p *linesProducer) Validate() error {
	if p.open == nil {
		return errors.New("lines open function is nil")
	}
	return nil
}

func (p *linesProducer) Start(s *Scope) error {
	rc, err := p.open()
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	if err := s.Acquire(LinesResource, rc.Close); err != nil {
		return err
	}
	p.scanner = bufio.NewScanner(rc)
	p.scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return nil
}

func (p *linesProducer) Next(*Scope) (string, bool, error) {
	if p.scanner.Scan() {
		return p.scanner.Text(), true, nil
	}
	if err := p.scanner.Err(); err != nil {
		return "", false, fmt.Errorf("read: %w", err)
	}
	return "", false, nil
}
