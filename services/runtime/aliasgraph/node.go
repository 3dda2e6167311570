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
	"math"
	"slices"
	"sync/atomic"
)

// -----------------------------------------------------------------------------
// Kind
// -----------------------------------------------------------------------------

// Kind identifies the variant of a Node. The set is closed: every switch over
// Kind in this package is exhaustive, and adding a Kind requires extending
// duplication, equality and rendering together.
type Kind int

const (
	// KindScalar is an immutable leaf value.
	KindScalar Kind = iota

	// KindSequence is an ordered list of child nodes.
	KindSequence

	// KindMapping is an insertion-ordered map from string keys to child nodes.
	KindMapping
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return "unknown"
	}
}

// IsComposite returns true for container kinds.
func (k Kind) IsComposite() bool {
	return k == KindSequence || k == KindMapping
}

// -----------------------------------------------------------------------------
// Node
// -----------------------------------------------------------------------------

// nextNodeID hands out process-unique node IDs.
var nextNodeID atomic.Uint64

// Node is a unit of data in an alias graph.
//
// A *Node is a handle. Two handles denote the same storage iff the pointers
// are equal; see IdentityEqual.
//
// Scalar nodes never change after construction. Sequence and Mapping nodes
// are mutable through the methods below, and the mutation is observed by
// every handle that aliases the node.
type Node struct {
	kind Kind
	id   uint64

	// scalar payload: nil, bool, int64, float64 or string
	value any

	// sequence children
	items []*Node

	// mapping children; keys preserves insertion order
	keys    []string
	entries map[string]*Node
}

func newNode(kind Kind) *Node {
	n := &Node{kind: kind, id: nextNodeID.Add(1)}
	if kind == KindMapping {
		n.entries = make(map[string]*Node)
	}
	return n
}

// Null returns a new scalar node holding nil.
func Null() *Node { return newScalar(nil) }

// Bool returns a new scalar node holding b.
func Bool(b bool) *Node { return newScalar(b) }

// Int returns a new scalar node holding i.
func Int(i int64) *Node { return newScalar(i) }

// Float returns a new scalar node holding f.
func Float(f float64) *Node { return newScalar(f) }

// String returns a new scalar node holding s.
func String(s string) *Node { return newScalar(s) }

func newScalar(v any) *Node {
	n := newNode(KindScalar)
	n.value = v
	return n
}

// Scalar wraps a Go value in a scalar node.
//
// Description:
//
//	Integer widths are widened to int64 and float32 to float64 so that
//	structural equality compares payloads of a single canonical type.
//
// Inputs:
//   - v: nil, bool, any Go integer type, float32, float64 or string.
//
// Outputs:
//   - *Node: The new scalar node.
//   - error: ErrUnsupportedScalar for any other type, or for an unsigned
//     value above math.MaxInt64.
func Scalar(v any) (*Node, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(x), nil
	case int:
		return Int(int64(x)), nil
	case int8:
		return Int(int64(x)), nil
	case int16:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint8:
		return Int(int64(x)), nil
	case uint16:
		return Int(int64(x)), nil
	case uint32:
		return Int(int64(x)), nil
	case uint:
		return fromUnsigned(uint64(x))
	case uint64:
		return fromUnsigned(x)
	case uintptr:
		return fromUnsigned(uint64(x))
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case string:
		return String(x), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedScalar, v)
	}
}

func fromUnsigned(u uint64) (*Node, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("%w: %d overflows int64", ErrUnsupportedScalar, u)
	}
	return Int(int64(u)), nil
}

// MustScalar is like Scalar but panics on unsupported types. Intended for
// literals in tests and examples.
func MustScalar(v any) *Node {
	n, err := Scalar(v)
	if err != nil {
		panic(err)
	}
	return n
}

// NewSequence returns a new sequence holding the given children in order.
// The children are aliased, not copied.
func NewSequence(children ...*Node) *Node {
	n := newNode(KindSequence)
	n.items = append(make([]*Node, 0, len(children)), children...)
	return n
}

// NewMapping returns a new empty mapping.
func NewMapping() *Node {
	return newNode(KindMapping)
}

// MappingOf builds a mapping from alternating key/child arguments.
//
// Example:
//
//	m, err := MappingOf("a", NewSequence(Int(1), Int(2)), "b", Int(3))
func MappingOf(pairs ...any) (*Node, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("MappingOf: odd number of arguments (%d)", len(pairs))
	}
	m := NewMapping()
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("MappingOf: key %d is %T, want string", i/2, pairs[i])
		}
		child, ok := pairs[i+1].(*Node)
		if !ok || child == nil {
			return nil, fmt.Errorf("MappingOf: value for %q: %w", key, ErrNilNode)
		}
		m.put(key, child)
	}
	return m, nil
}

// Kind returns the variant of the node.
func (n *Node) Kind() Kind { return n.kind }

// ID returns the process-unique ID of the node. IDs are for display and
// tracing; equality never consults them.
func (n *Node) ID() uint64 { return n.id }

// Value returns the scalar payload, or nil for composites.
func (n *Node) Value() any {
	if n.kind != KindScalar {
		return nil
	}
	return n.value
}

// Len returns the number of children of a composite, or 0 for a scalar.
func (n *Node) Len() int {
	switch n.kind {
	case KindScalar:
		return 0
	case KindSequence:
		return len(n.items)
	case KindMapping:
		return len(n.keys)
	default:
		panic(unknownKind(n.kind))
	}
}

// Children returns the direct children of a composite in order. For a
// mapping the order follows Keys(). The returned slice is a snapshot; the
// handles in it alias the live children.
func (n *Node) Children() []*Node {
	switch n.kind {
	case KindScalar:
		return nil
	case KindSequence:
		return slices.Clone(n.items)
	case KindMapping:
		out := make([]*Node, len(n.keys))
		for i, k := range n.keys {
			out[i] = n.entries[k]
		}
		return out
	default:
		panic(unknownKind(n.kind))
	}
}

// -----------------------------------------------------------------------------
// Sequence operations
// -----------------------------------------------------------------------------

// Items returns a snapshot of the sequence's child handles. Mutating the
// sequence afterwards does not change the returned slice, which makes it safe
// to iterate while removing elements.
func (n *Node) Items() ([]*Node, error) {
	if n.kind != KindSequence {
		return nil, n.mismatch("Items", KindSequence)
	}
	return slices.Clone(n.items), nil
}

// Append adds children to the end of the sequence.
func (n *Node) Append(children ...*Node) error {
	if n.kind != KindSequence {
		return n.mismatch("Append", KindSequence)
	}
	for _, c := range children {
		if c == nil {
			return fmt.Errorf("Append: %w", ErrNilNode)
		}
	}
	n.items = append(n.items, children...)
	return nil
}

// At returns the child at index i.
func (n *Node) At(i int) (*Node, error) {
	if n.kind != KindSequence {
		return nil, n.mismatch("At", KindSequence)
	}
	if i < 0 || i >= len(n.items) {
		return nil, fmt.Errorf("At(%d) on length %d: %w", i, len(n.items), ErrIndexOutOfRange)
	}
	return n.items[i], nil
}

// SetAt replaces the child at index i.
func (n *Node) SetAt(i int, child *Node) error {
	if n.kind != KindSequence {
		return n.mismatch("SetAt", KindSequence)
	}
	if child == nil {
		return fmt.Errorf("SetAt: %w", ErrNilNode)
	}
	if i < 0 || i >= len(n.items) {
		return fmt.Errorf("SetAt(%d) on length %d: %w", i, len(n.items), ErrIndexOutOfRange)
	}
	n.items[i] = child
	return nil
}

// RemoveAt deletes the child at index i and returns it.
func (n *Node) RemoveAt(i int) (*Node, error) {
	if n.kind != KindSequence {
		return nil, n.mismatch("RemoveAt", KindSequence)
	}
	if i < 0 || i >= len(n.items) {
		return nil, fmt.Errorf("RemoveAt(%d) on length %d: %w", i, len(n.items), ErrIndexOutOfRange)
	}
	removed := n.items[i]
	n.items = slices.Delete(n.items, i, i+1)
	return removed, nil
}

// -----------------------------------------------------------------------------
// Mapping operations
// -----------------------------------------------------------------------------

// Keys returns the mapping's keys in insertion order.
func (n *Node) Keys() ([]string, error) {
	if n.kind != KindMapping {
		return nil, n.mismatch("Keys", KindMapping)
	}
	return slices.Clone(n.keys), nil
}

// Get returns the child stored under key.
func (n *Node) Get(key string) (*Node, error) {
	if n.kind != KindMapping {
		return nil, n.mismatch("Get", KindMapping)
	}
	child, ok := n.entries[key]
	if !ok {
		return nil, fmt.Errorf("Get(%q): %w", key, ErrKeyNotFound)
	}
	return child, nil
}

// Put stores child under key. An existing key keeps its position.
func (n *Node) Put(key string, child *Node) error {
	if n.kind != KindMapping {
		return n.mismatch("Put", KindMapping)
	}
	if child == nil {
		return fmt.Errorf("Put(%q): %w", key, ErrNilNode)
	}
	n.put(key, child)
	return nil
}

func (n *Node) put(key string, child *Node) {
	if _, exists := n.entries[key]; !exists {
		n.keys = append(n.keys, key)
	}
	n.entries[key] = child
}

// Delete removes key from the mapping. It reports whether the key existed.
func (n *Node) Delete(key string) (bool, error) {
	if n.kind != KindMapping {
		return false, n.mismatch("Delete", KindMapping)
	}
	if _, ok := n.entries[key]; !ok {
		return false, nil
	}
	delete(n.entries, key)
	n.keys = slices.DeleteFunc(n.keys, func(k string) bool { return k == key })
	return true, nil
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func (n *Node) mismatch(op string, want Kind) error {
	return fmt.Errorf("%s on %s node #%d (want %s): %w", op, n.kind, n.id, want, ErrKindMismatch)
}

func unknownKind(k Kind) string {
	return fmt.Sprintf("aliasgraph: unknown node kind %d", int(k))
}
