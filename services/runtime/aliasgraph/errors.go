// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package aliasgraph provides nested, mutable container graphs with explicit
// aliasing and copy semantics.
//
// A graph is built from Nodes. A Node is a closed tagged variant: a Scalar
// (immutable payload), a Sequence (ordered children) or a Mapping
// (insertion-ordered string keys to children). Callers hold *Node handles;
// several handles may refer to the same container, and a mutation through one
// handle is visible through every other.
//
// # Copy Semantics
//
//   - DuplicateShallow allocates a new top-level container whose slots alias
//     the original children.
//   - DuplicateDeep allocates a fresh node for everything reachable, keeping
//     the sharing and cycle structure of the source. Re-visits are resolved
//     through an identity-keyed memo, so self-referential graphs terminate.
//
// # Equality
//
// IdentityEqual compares handles (same storage). StructuralEqual compares
// values recursively and is safe on cyclic graphs.
//
// # Ownership Model
//
// Nodes have no single owner. A node lives as long as any handle or parent
// container references it; the Go garbage collector reclaims unreachable
// cycles.
//
// # Thread Safety
//
// Nodes are NOT safe for concurrent mutation. At most one goroutine may mutate
// a shared subgraph at a time; callers provide synchronization.
package aliasgraph

import "errors"

// Sentinel errors for graph operations.
var (
	// ErrNilNode is returned when a nil handle is passed where a node is required.
	ErrNilNode = errors.New("nil node")

	// ErrKindMismatch is returned when an operation is applied to a node of
	// the wrong kind, for example Append on a mapping.
	ErrKindMismatch = errors.New("node kind mismatch")

	// ErrIndexOutOfRange is returned when a sequence index is outside [0, Len()).
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrKeyNotFound is returned when a mapping key does not exist.
	ErrKeyNotFound = errors.New("key not found")

	// ErrUnsupportedScalar is returned when a Go value cannot be stored as a
	// scalar payload.
	ErrUnsupportedScalar = errors.New("unsupported scalar type")

	// ErrInvalidPath is returned when a path expression is empty or malformed.
	ErrInvalidPath = errors.New("invalid path")

	// ErrUnboundName is returned when an Env lookup names no binding.
	ErrUnboundName = errors.New("name is not bound")

	// ErrInvalidYAML is returned when a YAML document cannot be converted
	// into a graph.
	ErrInvalidYAML = errors.New("invalid yaml graph")
)
