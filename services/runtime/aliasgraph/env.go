// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package aliasgraph

import (
	"fmt"
	"slices"
)

// Env is a table of named handles. Names are labels, not boxes: binding
// one name to another's node makes both names refer to the same storage.
//
// Thread Safety: NOT safe for concurrent use.
type Env struct {
	bindings map[string]*Node
}

// NewEnv creates an empty Env.
func NewEnv() *Env {
	return &Env{bindings: make(map[string]*Node)}
}

// Bind points name at n, replacing any previous binding.
func (e *Env) Bind(name string, n *Node) error {
	if n == nil {
		return fmt.Errorf("Bind(%q): %w", name, ErrNilNode)
	}
	e.bindings[name] = n
	return nil
}

// Alias points dst at the node currently bound to src. Afterwards a
// mutation through either name is visible through the other.
func (e *Env) Alias(dst, src string) error {
	n, ok := e.bindings[src]
	if !ok {
		return fmt.Errorf("Alias(%q, %q): %w", dst, src, ErrUnboundName)
	}
	e.bindings[dst] = n
	return nil
}

// Lookup returns the node bound to name.
func (e *Env) Lookup(name string) (*Node, error) {
	n, ok := e.bindings[name]
	if !ok {
		return nil, fmt.Errorf("Lookup(%q): %w", name, ErrUnboundName)
	}
	return n, nil
}

// Unbind removes name. The node itself lives on while other handles hold it.
func (e *Env) Unbind(name string) {
	delete(e.bindings, name)
}

// Names returns the bound names in sorted order.
func (e *Env) Names() []string {
	names := make([]string, 0, len(e.bindings))
	for name := range e.bindings {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Fresh binds name to a node built by factory on this call and returns it.
//
// Description:
//
//	Use Fresh for per-call defaults. Binding a single pre-built container as
//	a default shares it between all callers, so one caller's appends leak
//	into the next; building it inside the call gives each caller its own.
func (e *Env) Fresh(name string, factory func() *Node) (*Node, error) {
	n := factory()
	if err := e.Bind(name, n); err != nil {
		return nil, err
	}
	return n, nil
}
