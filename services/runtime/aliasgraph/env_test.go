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

func TestEnv_AliasSharesStorage(t *testing.T) {
	env := NewEnv()
	require.NoError(t, env.Bind("a", NewSequence(Int(1), Int(2), Int(3))))
	require.NoError(t, env.Alias("b", "a"))

	b, err := env.Lookup("b")
	require.NoError(t, err)
	require.NoError(t, b.Append(Int(4)))

	a, err := env.Lookup("a")
	require.NoError(t, err)
	assert.Equal(t, "[1, 2, 3, 4]", a.String())
	assert.True(t, IdentityEqual(a, b))
}

func TestEnv_Errors(t *testing.T) {
	env := NewEnv()

	assert.ErrorIs(t, env.Alias("b", "missing"), ErrUnboundName)
	_, err := env.Lookup("missing")
	assert.ErrorIs(t, err, ErrUnboundName)
	assert.ErrorIs(t, env.Bind("x", nil), ErrNilNode)
}

func TestEnv_UnbindKeepsNodeAlive(t *testing.T) {
	env := NewEnv()
	require.NoError(t, env.Bind("a", NewSequence(Int(1))))
	require.NoError(t, env.Alias("b", "a"))

	env.Unbind("a")

	assert.Equal(t, []string{"b"}, env.Names())
	b, err := env.Lookup("b")
	require.NoError(t, err)
	assert.Equal(t, "[1]", b.String())
}

// addItemShared mirrors a function whose default backpack is one shared container.
func addItemShared(env *Env, shared *Node, item string) *Node {
	_ = env.Bind("backpack", shared)
	_ = shared.Append(String(item))
	return shared
}

// addItemFresh builds the default per call.
func addItemFresh(env *Env, item string) *Node {
	bp, _ := env.Fresh("backpack", func() *Node { return NewSequence() })
	_ = bp.Append(String(item))
	return bp
}

func TestEnv_FreshDefaults(t *testing.T) {
	env := NewEnv()

	shared := NewSequence()
	addItemShared(env, shared, "Pencil")
	bob := addItemShared(env, shared, "Pen")
	assert.Equal(t, `["Pencil", "Pen"]`, bob.String(), "shared default leaks between calls")

	addItemFresh(env, "Pencil")
	bob = addItemFresh(env, "Pen")
	assert.Equal(t, `["Pen"]`, bob.String())
}
