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
	"context"
	"fmt"
	"slices"
	"sync/atomic"
)

type resource struct {
	name    string
	release func() error
}

// Scope tracks the resources held by one generator.
//
// Description:
//
//	Resources are released in reverse acquisition order when the generator
//	reaches a terminal state, whichever way it gets there. A producer may
//	also release a resource early with Release. After the final release the
//	scope is closed: its Context is done and further Acquire calls release
//	their resource immediately.
//
// Thread Safety: NOT safe for concurrent use. Owned by its generator.
type Scope struct {
	ctx       context.Context
	cancelCtx context.CancelFunc
	held      []resource
	closed    bool
	cancelled atomic.Bool
}

func newScope() *Scope {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scope{ctx: ctx, cancelCtx: cancel}
}

// Acquire registers a resource under name.
//
// Inputs:
//   - name: Unique name within the scope.
//   - release: Called once when the resource is released. May be nil.
//
// Outputs:
//   - error: ErrDuplicateResource if name is held. ErrScopeClosed if the
//     scope has already been released, in which case release has been
//     called before returning.
func (s *Scope) Acquire(name string, release func() error) error {
	if release == nil {
		release = func() error { return nil }
	}
	if s.closed {
		if err := runRelease(resource{name: name, release: release}); err != nil {
			return fmt.Errorf("acquire %q: %w (release: %v)", name, ErrScopeClosed, err)
		}
		return fmt.Errorf("acquire %q: %w", name, ErrScopeClosed)
	}
	if s.indexOf(name) >= 0 {
		return fmt.Errorf("acquire %q: %w", name, ErrDuplicateResource)
	}
	s.held = append(s.held, resource{name: name, release: release})
	return nil
}

// Release releases the named resource now instead of at scope end.
//
// Outputs:
//   - error: ErrUnknownResource if name is not held, or a *ReleaseError if
//     the release function fails. The resource is dropped either way.
func (s *Scope) Release(name string) error {
	i := s.indexOf(name)
	if i < 0 {
		return fmt.Errorf("release %q: %w", name, ErrUnknownResource)
	}
	r := s.held[i]
	s.held = slices.Delete(s.held, i, i+1)
	if err := runRelease(r); err != nil {
		recordReleaseFailures(1)
		return &ReleaseError{Failures: []error{fmt.Errorf("release %q: %w", r.name, err)}}
	}
	return nil
}

// Context returns a context that is done once the scope is closed. Producers
// doing blocking work should pass it down.
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Cancelled reports whether the owning generator was cancelled.
func (s *Scope) Cancelled() bool {
	return s.cancelled.Load()
}

// Held returns the names of the held resources in acquisition order.
func (s *Scope) Held() []string {
	names := make([]string, len(s.held))
	for i, r := range s.held {
		names[i] = r.name
	}
	return names
}

func (s *Scope) indexOf(name string) int {
	return slices.IndexFunc(s.held, func(r resource) bool { return r.name == name })
}

// runRelease calls the release function of r. A panic is returned as an
// error wrapping ErrReleasePanicked.
func runRelease(r resource) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrReleasePanicked, rec)
		}
	}()
	return r.release()
}

// close releases every held resource, last acquired first, and closes the
// scope. Every release function runs even if an earlier one fails or panics.
func (s *Scope) close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	defer s.cancelCtx()

	var failures []error
	for len(s.held) > 0 {
		r := s.held[len(s.held)-1]
		s.held = s.held[:len(s.held)-1]
		if err := runRelease(r); err != nil {
			failures = append(failures, fmt.Errorf("release %q: %w", r.name, err))
		}
	}
	if len(failures) == 0 {
		return nil
	}
	recordReleaseFailures(len(failures))
	return &ReleaseError{Failures: failures}
}
