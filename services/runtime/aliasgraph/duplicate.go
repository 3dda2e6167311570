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

import "slices"

// DuplicateShallow returns a one-level copy of n.
//
// Description:
//
//	For a scalar, n itself is returned: scalars are immutable, so sharing
//	them is indistinguishable from copying. For a composite, a new container
//	of the same kind is allocated with the same ordered indexes or keys, and
//	every slot aliases the original child.
//
//	After the call, mutating a child (for example appending to a nested
//	sequence) is visible through both containers, while adding or removing
//	entries of the top-level container is not.
//
// Inputs:
//   - n: Node to copy. A nil handle returns nil.
//
// Outputs:
//   - *Node: The copy.
func DuplicateShallow(n *Node) *Node {
	if n == nil {
		return nil
	}
	switch n.kind {
	case KindScalar:
		return n
	case KindSequence:
		return NewSequence(n.items...)
	case KindMapping:
		dup := NewMapping()
		dup.keys = slices.Clone(n.keys)
		for k, child := range n.entries {
			dup.entries[k] = child
		}
		return dup
	default:
		panic(unknownKind(n.kind))
	}
}

// DuplicateDeep returns a copy of everything reachable from n.
//
// Description:
//
//	Every node reachable from n, scalars included, is duplicated exactly
//	once. A node that is reachable along several paths (shared child or
//	cycle) maps to a single duplicate, so the copy has the same aliasing
//	shape as the source and shares no handle with it.
//
//	The walk is iterative and never fails; deeply nested graphs do not grow
//	the goroutine stack.
//
// Inputs:
//   - n: Root of the graph to copy. A nil handle returns nil.
//
// Outputs:
//   - *Node: Root of the duplicate graph.
func DuplicateDeep(n *Node) *Node {
	dup, _ := deepCopy(n)
	return dup
}

// copyCounts reports the work done by one deep copy.
type copyCounts struct {
	nodes      int
	composites int
	memoHits   int
}

// deepCopy performs the memoized deep copy.
//
// The memo maps source handles to their duplicates. A composite's duplicate
// is registered before any of its children are visited, so a child that
// refers back to an ancestor resolves to the ancestor's (still partial)
// duplicate instead of recursing.
func deepCopy(root *Node) (*Node, copyCounts) {
	var counts copyCounts
	if root == nil {
		return nil, counts
	}

	memo := make(map[*Node]*Node)
	var pending []*Node

	// shell allocates the duplicate of src without children and queues
	// composites for filling.
	shell := func(src *Node) *Node {
		var dup *Node
		switch src.kind {
		case KindScalar:
			dup = newScalar(src.value)
		case KindSequence:
			dup = newNode(KindSequence)
			dup.items = make([]*Node, 0, len(src.items))
			pending = append(pending, src)
			counts.composites++
		case KindMapping:
			dup = newNode(KindMapping)
			dup.keys = make([]string, 0, len(src.keys))
			pending = append(pending, src)
			counts.composites++
		default:
			panic(unknownKind(src.kind))
		}
		memo[src] = dup
		counts.nodes++
		return dup
	}

	resolve := func(src *Node) *Node {
		if dup, ok := memo[src]; ok {
			counts.memoHits++
			return dup
		}
		return shell(src)
	}

	out := shell(root)
	for len(pending) > 0 {
		src := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		dup := memo[src]

		switch src.kind {
		case KindSequence:
			for _, child := range src.items {
				dup.items = append(dup.items, resolve(child))
			}
		case KindMapping:
			for _, k := range src.keys {
				dup.put(k, resolve(src.entries[k]))
			}
		}
	}
	return out, counts
}
