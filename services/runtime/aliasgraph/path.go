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
	"strconv"
	"strings"
)

// Lookup follows a dot-separated path from root.
//
// Description:
//
//	Each segment indexes the current node: an integer for a sequence
//	(negative values count from the end, -1 is the last element) or a key
//	for a mapping. The empty path returns root.
//
// Example:
//
//	// root = {"a": [1, 2], "b": [3, 4]}
//	n, _ := Lookup(root, "a.0")  // 1
//	n, _ = Lookup(root, "b.-1")  // 4
//
// Outputs:
//   - *Node: The node at path.
//   - error: ErrInvalidPath, ErrKindMismatch, ErrIndexOutOfRange or
//     ErrKeyNotFound, wrapped with the failing segment.
func Lookup(root *Node, path string) (*Node, error) {
	if root == nil {
		return nil, ErrNilNode
	}
	if path == "" {
		return root, nil
	}
	segs, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	cur := root
	for i, seg := range segs {
		cur, err = step(cur, seg)
		if err != nil {
			return nil, fmt.Errorf("path %q segment %d: %w", path, i, err)
		}
	}
	return cur, nil
}

// Assign stores value at path, replacing the slot in the parent container.
//
// Description:
//
//	All but the last segment are resolved with Lookup. The last segment
//	replaces an existing sequence element, or puts a mapping key (creating
//	it if absent). The parent container is mutated in place, so the change
//	is visible through every handle that aliases the parent.
func Assign(root *Node, path string, value *Node) error {
	if root == nil || value == nil {
		return ErrNilNode
	}
	segs, err := splitPath(path)
	if err != nil {
		return err
	}
	parent := root
	if len(segs) > 1 {
		parent, err = Lookup(root, strings.Join(segs[:len(segs)-1], "."))
		if err != nil {
			return err
		}
	}

	last := segs[len(segs)-1]
	switch parent.kind {
	case KindSequence:
		idx, err := index(parent, last)
		if err != nil {
			return fmt.Errorf("path %q: %w", path, err)
		}
		return parent.SetAt(idx, value)
	case KindMapping:
		return parent.Put(last, value)
	case KindScalar:
		return fmt.Errorf("path %q: assign into %s: %w", path, parent.kind, ErrKindMismatch)
	default:
		panic(unknownKind(parent.kind))
	}
}

func splitPath(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	segs := strings.Split(path, ".")
	for i, s := range segs {
		if s == "" {
			return nil, fmt.Errorf("%w: empty segment %d in %q", ErrInvalidPath, i, path)
		}
	}
	return segs, nil
}

func step(n *Node, seg string) (*Node, error) {
	switch n.kind {
	case KindSequence:
		idx, err := index(n, seg)
		if err != nil {
			return nil, err
		}
		return n.items[idx], nil
	case KindMapping:
		return n.Get(seg)
	case KindScalar:
		return nil, fmt.Errorf("index %q into scalar: %w", seg, ErrKindMismatch)
	default:
		panic(unknownKind(n.kind))
	}
}

func index(seq *Node, seg string) (int, error) {
	idx, err := strconv.Atoi(seg)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a sequence index", ErrInvalidPath, seg)
	}
	if idx < 0 {
		idx += len(seq.items)
	}
	if idx < 0 || idx >= len(seq.items) {
		return 0, fmt.Errorf("index %s on length %d: %w", seg, len(seq.items), ErrIndexOutOfRange)
	}
	return idx, nil
}
