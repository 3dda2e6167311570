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

// IdentityEqual reports whether a and b denote the same storage instance.
// Two nil handles are identical.
func IdentityEqual(a, b *Node) bool {
	return a == b
}

// nodePair is a memo key for StructuralEqual.
type nodePair struct {
	a, b *Node
}

// StructuralEqual reports whether a and b hold equal values.
//
// Description:
//
//	Kinds must match. Scalars compare payloads, sequences compare children
//	pairwise in order, mappings compare key sets (ignoring insertion order)
//	and the children under each key.
//
//	Comparison is coinductive: a pair already under comparison further up
//	the walk is assumed equal. This makes the check terminate on cyclic
//	graphs, and a cyclic graph compares equal to its deep duplicate.
//
//	Identical handles are always equal, including a scalar holding NaN.
func StructuralEqual(a, b *Node) bool {
	return structuralEqual(a, b, make(map[nodePair]struct{}))
}

func structuralEqual(a, b *Node, assumed map[nodePair]struct{}) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.kind != b.kind {
		return false
	}

	switch a.kind {
	case KindScalar:
		return a.value == b.value
	case KindSequence:
		if len(a.items) != len(b.items) {
			return false
		}
	case KindMapping:
		if len(a.keys) != len(b.keys) {
			return false
		}
	default:
		panic(unknownKind(a.kind))
	}

	pair := nodePair{a, b}
	if _, ok := assumed[pair]; ok {
		return true
	}
	assumed[pair] = struct{}{}

	if a.kind == KindSequence {
		for i := range a.items {
			if !structuralEqual(a.items[i], b.items[i], assumed) {
				return false
			}
		}
		return true
	}

	for _, k := range a.keys {
		other, ok := b.entries[k]
		if !ok {
			return false
		}
		if !structuralEqual(a.entries[k], other, assumed) {
			return false
		}
	}
	return true
}
