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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildAB builds {"a": [1, 2], "b": [3, 4]}.
func buildAB(t *testing.T) *Node {
	t.Helper()
	m, err := MappingOf(
		"a", NewSequence(Int(1), Int(2)),
		"b", NewSequence(Int(3), Int(4)),
	)
	require.NoError(t, err)
	return m
}

// reachable collects every node reachable from root.
func reachable(root *Node) map[*Node]struct{} {
	seen := map[*Node]struct{}{root: {}}
	stack := []*Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, c := range n.Children() {
			if _, ok := seen[c]; !ok {
				seen[c] = struct{}{}
				stack = append(stack, c)
			}
		}
	}
	return seen
}

func TestDuplicateShallow_Scalar(t *testing.T) {
	s := Int(7)
	assert.True(t, IdentityEqual(DuplicateShallow(s), s), "scalars are returned as-is")
}

func TestDuplicateShallow_Nil(t *testing.T) {
	assert.Nil(t, DuplicateShallow(nil))
	assert.Nil(t, DuplicateDeep(nil))
}

func TestDuplicateShallow_ChildrenAliased(t *testing.T) {
	graphs := map[string]*Node{
		"mapping":  buildAB(t),
		"sequence": NewSequence(NewSequence(Int(1), Int(2)), NewSequence(Int(3), Int(4)), Int(5)),
		"empty":    NewSequence(),
	}

	for name, g := range graphs {
		t.Run(name, func(t *testing.T) {
			dup := DuplicateShallow(g)
			require.NotNil(t, dup)
			assert.False(t, IdentityEqual(dup, g), "duplicate must be a new container")
			assert.Equal(t, g.Kind(), dup.Kind())

			orig := g.Children()
			copied := dup.Children()
			require.Len(t, copied, len(orig))
			for i := range orig {
				assert.True(t, IdentityEqual(orig[i], copied[i]), "child %d must be aliased", i)
			}
			assert.True(t, StructuralEqual(dup, g))
		})
	}
}

func TestDuplicateShallow_ContainerMutationIsolated(t *testing.T) {
	g := buildAB(t)
	dup := DuplicateShallow(g)

	require.NoError(t, dup.Put("c", Int(9)))
	removed, err := dup.Delete("a")
	require.NoError(t, err)
	require.True(t, removed)

	keys, err := g.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys, "original keys unchanged")

	keys, err = dup.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, keys)
}

func TestDuplicateShallow_ChildMutationShared(t *testing.T) {
	g := buildAB(t)
	dup := DuplicateShallow(g)

	require.NoError(t, Assign(dup, "a.0", Int(999)))

	got, err := Lookup(g, "a.0")
	require.NoError(t, err)
	assert.Equal(t, int64(999), got.Value(), "original sees the change through the shared list")
	assert.Equal(t, `{"a": [999, 2], "b": [3, 4]}`, g.String())
}

func TestDuplicateDeep_ChildMutationIsolated(t *testing.T) {
	g := buildAB(t)
	dup := DuplicateDeep(g)

	require.NoError(t, Assign(dup, "a.0", Int(999)))

	got, err := Lookup(g, "a.0")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Value(), "original list must be untouched")
	assert.Equal(t, `{"a": [1, 2], "b": [3, 4]}`, g.String())
	assert.Equal(t, `{"a": [999, 2], "b": [3, 4]}`, dup.String())
}

func TestDuplicateDeep_SharesNoIdentity(t *testing.T) {
	inner := NewSequence(Int(1), String("x"))
	g := NewSequence(
		inner,
		NewSequence(inner, Float(2.5)),
		buildAB(t),
		Bool(true),
		Null(),
	)

	dup := DuplicateDeep(g)

	src := reachable(g)
	for n := range reachable(dup) {
		_, shared := src[n]
		assert.False(t, shared, "node #%d of the duplicate belongs to the source", n.ID())
	}
	assert.True(t, StructuralEqual(dup, g))
}

func TestDuplicateDeep_PreservesSharing(t *testing.T) {
	shared := NewSequence(Int(1))
	g := NewSequence(shared, shared)

	dup := DuplicateDeep(g)

	first, err := dup.At(0)
	require.NoError(t, err)
	second, err := dup.At(1)
	require.NoError(t, err)
	assert.True(t, IdentityEqual(first, second), "shared child maps to one duplicate")
	assert.False(t, IdentityEqual(first, shared))
}

func TestDuplicateDeep_SelfReference(t *testing.T) {
	g := NewSequence(Int(1))
	require.NoError(t, g.Append(g))

	dup := DuplicateDeep(g)

	self, err := dup.At(1)
	require.NoError(t, err)
	assert.True(t, IdentityEqual(self, dup), "self slot must point at the duplicate")
	assert.False(t, IdentityEqual(self, g), "self slot must not point at the source")
	assert.True(t, StructuralEqual(dup, g))
}

func TestDuplicateDeep_MutualCycle(t *testing.T) {
	a := NewMapping()
	b := NewMapping()
	require.NoError(t, a.Put("next", b))
	require.NoError(t, b.Put("next", a))
	require.NoError(t, a.Put("name", String("a")))

	dupA := DuplicateDeep(a)

	dupB, err := dupA.Get("next")
	require.NoError(t, err)
	back, err := dupB.Get("next")
	require.NoError(t, err)
	assert.True(t, IdentityEqual(back, dupA))
	assert.False(t, IdentityEqual(dupB, b))
	assert.True(t, StructuralEqual(dupA, a))
}

func TestDuplicateDeep_DeepNesting(t *testing.T) {
	root := NewSequence()
	cur := root
	for i := 0; i < 100_000; i++ {
		next := NewSequence()
		require.NoError(t, cur.Append(next))
		cur = next
	}

	dup := DuplicateDeep(root)

	assert.Len(t, reachable(dup), 100_001)
}

func TestDuplicateDeep_MappingKeyOrder(t *testing.T) {
	m := NewMapping()
	for _, k := range []string{"z", "a", "m"} {
		require.NoError(t, m.Put(k, String(k)))
	}

	dup := DuplicateDeep(m)

	keys, err := dup.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a", "m"}, keys)
}
