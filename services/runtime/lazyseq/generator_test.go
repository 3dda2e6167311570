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
	"errors"
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resumeAll resumes g n times and returns each (value, ok) pair.
func resumeAll[T any](t *testing.T, g *Generator[T], n int) ([]T, []bool) {
	t.Helper()
	vals := make([]T, n)
	oks := make([]bool, n)
	for i := range n {
		v, ok, err := g.Resume()
		require.NoError(t, err)
		vals[i], oks[i] = v, ok
	}
	return vals, oks
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state    State
		expected string
		terminal bool
	}{
		{StateCreated, "created", false},
		{StateRunning, "running", false},
		{StateSuspended, "suspended", false},
		{StateExhausted, "exhausted", true},
		{StateCancelled, "cancelled", true},
		{State(42), "unknown", false},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.state.String(); got != tt.expected {
				t.Errorf("State.String() = %v, want %v", got, tt.expected)
			}
			if got := tt.state.IsTerminal(); got != tt.terminal {
				t.Errorf("State.IsTerminal() = %v, want %v", got, tt.terminal)
			}
		})
	}
}

func TestNew_InvalidProducer(t *testing.T) {
	tests := []struct {
		name string
		new  func() error
	}{
		{"nil producer", func() error { _, err := New[int](nil); return err }},
		{"nil countdown pointer", func() error { var p *countdown; _, err := New[int](p); return err }},
		{"nil slice producer", func() error { var p *sliceProducer[string]; _, err := New[string](p); return err }},
		{"nil generic producer", func() error { var p *mapProducer[int, int]; _, err := New[int](p); return err }},
		{"zero range step", func() error { _, err := New(Range(0, 5, 0)); return err }},
		{"negative countdown", func() error { _, err := New(Countdown(-1)); return err }},
		{"nil step func", func() error { _, err := New(Func[int](nil)); return err }},
		{"nil iterate func", func() error { _, err := New(Iterate(1, nil)); return err }},
		{"nil lines open", func() error { _, err := New(Lines(nil)); return err }},
		{"nil upstream", func() error { _, err := New(Take[int](nil, 1)); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.new(), ErrInvalidProducer)
		})
	}
}

func TestCountdown_YieldsThenNoneForever(t *testing.T) {
	g, err := New(Countdown(3))
	require.NoError(t, err)

	vals, oks := resumeAll(t, g, 5)

	assert.Equal(t, []int{3, 2, 1, 0, 0}, vals)
	assert.Equal(t, []bool{true, true, true, false, false}, oks)
	assert.Equal(t, StateExhausted, g.State())
	assert.Equal(t, 3, g.Produced())
}

func TestGenerator_FiniteProducerOfN(t *testing.T) {
	for _, n := range []int{0, 1, 7} {
		g, err := New(Range(0, n, 1))
		require.NoError(t, err)

		vals, oks := resumeAll(t, g, n+3)
		for i := range n {
			assert.True(t, oks[i])
			assert.Equal(t, i, vals[i])
		}
		for i := n; i < n+3; i++ {
			assert.False(t, oks[i])
		}
	}
}

func TestGenerator_StateTransitions(t *testing.T) {
	g, err := New(Countdown(1))
	require.NoError(t, err)
	assert.Equal(t, StateCreated, g.State())

	_, ok, err := g.Resume()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StateSuspended, g.State())

	_, ok, err = g.Resume()
	require.NoError(t, err)
	require.False(t, ok)
	assert.Equal(t, StateExhausted, g.State())

	assert.NoError(t, g.Cancel(), "cancel on a terminal generator is a no-op")
	assert.Equal(t, StateExhausted, g.State())
}

type startCounter struct {
	starts, steps int
}

func (p *startCounter) Start(*Scope) error {
	p.starts++
	return nil
}

func (p *startCounter) Next(*Scope) (int, bool, error) {
	p.steps++
	return p.steps, true, nil
}

func TestGenerator_LazyUntilFirstResume(t *testing.T) {
	p := &startCounter{}
	g, err := New[int](p)
	require.NoError(t, err)
	assert.Zero(t, p.starts)
	assert.Zero(t, p.steps)

	_, _, err = g.Resume()
	require.NoError(t, err)
	_, _, err = g.Resume()
	require.NoError(t, err)
	assert.Equal(t, 1, p.starts, "Start runs once")
	assert.Equal(t, 2, p.steps)
}

func TestGenerator_CancelSuspendedThenResume(t *testing.T) {
	calls := 0
	g, err := New(Func(func(i int, _ *Scope) (int, bool, error) {
		calls++
		return i, true, nil
	}))
	require.NoError(t, err)

	_, ok, err := g.Resume()
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, g.Cancel())
	assert.Equal(t, StateCancelled, g.State())

	v, ok, err := g.Resume()
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, v)
	assert.Equal(t, 1, calls, "no producer code runs after cancel")
	assert.NoError(t, g.Cancel())
}

func TestGenerator_CancelCreated(t *testing.T) {
	p := &startCounter{}
	g, err := New[int](p)
	require.NoError(t, err)

	require.NoError(t, g.Cancel())

	_, ok, err := g.Resume()
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, p.starts)
	assert.Zero(t, p.steps)
}

// guarded returns a step function that acquires "res" on step 0, yields
// once and then runs last.
func guarded(released *bool, last func() (int, bool, error)) StepFunc[int] {
	return func(i int, s *Scope) (int, bool, error) {
		if i == 0 {
			if err := s.Acquire("res", func() error { *released = true; return nil }); err != nil {
				return 0, false, err
			}
			return 1, true, nil
		}
		return last()
	}
}

func TestGenerator_ReleasesOnEveryExitPath(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name  string
		last  func() (int, bool, error)
		drive func(t *testing.T, g *Generator[int])
	}{
		{
			name: "exhaustion",
			last: func() (int, bool, error) { return 0, false, nil },
			drive: func(t *testing.T, g *Generator[int]) {
				vals, err := g.Collect()
				require.NoError(t, err)
				assert.Equal(t, []int{1}, vals)
				assert.Equal(t, StateExhausted, g.State())
			},
		},
		{
			name: "error",
			last: func() (int, bool, error) { return 0, false, boom },
			drive: func(t *testing.T, g *Generator[int]) {
				vals, err := g.Collect()
				assert.ErrorIs(t, err, ErrProducerFailed)
				assert.ErrorIs(t, err, boom)
				assert.Equal(t, []int{1}, vals)
				assert.ErrorIs(t, g.Err(), boom)
				assert.Equal(t, StateExhausted, g.State())
			},
		},
		{
			name: "cancel",
			last: func() (int, bool, error) { return 2, true, nil },
			drive: func(t *testing.T, g *Generator[int]) {
				_, _, err := g.Resume()
				require.NoError(t, err)
				require.NoError(t, g.Cancel())
				assert.Equal(t, StateCancelled, g.State())
			},
		},
		{
			name: "panic",
			last: func() (int, bool, error) { panic("producer bug") },
			drive: func(t *testing.T, g *Generator[int]) {
				_, _, err := g.Resume()
				require.NoError(t, err)
				assert.PanicsWithValue(t, "producer bug", func() { _, _, _ = g.Resume() })
				assert.Equal(t, StateExhausted, g.State())

				_, ok, err := g.Resume()
				assert.NoError(t, err)
				assert.False(t, ok)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			released := false
			g, err := New(Func(guarded(&released, tt.last)))
			require.NoError(t, err)

			tt.drive(t, g)

			assert.True(t, released, "resource must be released")
		})
	}
}

func TestGenerator_ReleasesInReverseOrder(t *testing.T) {
	var order []string
	g, err := New(Func(func(i int, s *Scope) (int, bool, error) {
		for _, name := range []string{"a", "b", "c"} {
			require.NoError(t, s.Acquire(name, func() error {
				order = append(order, name)
				return nil
			}))
		}
		return i, true, nil
	}))
	require.NoError(t, err)

	_, _, err = g.Resume()
	require.NoError(t, err)
	require.NoError(t, g.Cancel())

	assert.Equal(t, []string{"c", "b", "a"}, order)
}

func TestGenerator_CancelJoinsReleaseFailures(t *testing.T) {
	errA := errors.New("close a")
	errC := errors.New("close c")
	bReleased := false

	g, err := New(Func(func(i int, s *Scope) (int, bool, error) {
		require.NoError(t, s.Acquire("a", func() error { return errA }))
		require.NoError(t, s.Acquire("b", func() error { bReleased = true; return nil }))
		require.NoError(t, s.Acquire("c", func() error { return errC }))
		return i, true, nil
	}))
	require.NoError(t, err)
	_, _, err = g.Resume()
	require.NoError(t, err)

	err = g.Cancel()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResourceRelease)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errC)
	var relErr *ReleaseError
	require.ErrorAs(t, err, &relErr)
	assert.Len(t, relErr.Failures, 2)
	assert.True(t, bReleased, "a failure does not stop later releases")
	assert.Equal(t, StateCancelled, g.State())
}

func TestGenerator_ReleasePanicStillReleasesSiblings(t *testing.T) {
	tests := []struct {
		name  string
		drive func(g *Generator[int]) error
		state State
	}{
		{
			name:  "cancel",
			drive: func(g *Generator[int]) error { return g.Cancel() },
			state: StateCancelled,
		},
		{
			name: "exhaustion",
			drive: func(g *Generator[int]) error {
				_, _, err := g.Resume()
				return err
			},
			state: StateExhausted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			firstReleased := false
			g, err := New(Func(func(i int, s *Scope) (int, bool, error) {
				if i > 0 {
					return 0, false, nil
				}
				require.NoError(t, s.Acquire("first", func() error { firstReleased = true; return nil }))
				require.NoError(t, s.Acquire("boom", func() error { panic("close exploded") }))
				return 1, true, nil
			}))
			require.NoError(t, err)
			_, _, err = g.Resume()
			require.NoError(t, err)

			var driveErr error
			require.NotPanics(t, func() { driveErr = tt.drive(g) })

			assert.True(t, firstReleased, "resources acquired before the panicking one are released")
			assert.ErrorIs(t, driveErr, ErrResourceRelease)
			assert.ErrorIs(t, driveErr, ErrReleasePanicked)
			assert.Contains(t, driveErr.Error(), "close exploded")
			assert.Equal(t, tt.state, g.State())
		})
	}
}

func TestGenerator_ExhaustionReportsReleaseFailure(t *testing.T) {
	closeErr := errors.New("close failed")
	g, err := New(Func(func(i int, s *Scope) (int, bool, error) {
		if i == 0 {
			require.NoError(t, s.Acquire("f", func() error { return closeErr }))
			return 1, true, nil
		}
		return 0, false, nil
	}))
	require.NoError(t, err)

	_, _, err = g.Resume()
	require.NoError(t, err)
	_, ok, err := g.Resume()

	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrResourceRelease)
	assert.ErrorIs(t, err, closeErr)
	assert.ErrorIs(t, g.Err(), closeErr)
	assert.Equal(t, StateExhausted, g.State())
}

func TestGenerator_ReentrantResume(t *testing.T) {
	var g *Generator[int]
	var inner error

	g, err := New(Func(func(i int, _ *Scope) (int, bool, error) {
		_, _, inner = g.Resume()
		return i, true, nil
	}))
	require.NoError(t, err)

	v, ok, err := g.Resume()

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, v)
	assert.ErrorIs(t, inner, ErrAlreadyRunning)
	assert.Equal(t, StateSuspended, g.State())
}

func TestGenerator_CancelDuringStep(t *testing.T) {
	var g *Generator[int]
	var scope *Scope
	released := false

	g, err := New(Func(func(i int, s *Scope) (int, bool, error) {
		scope = s
		require.NoError(t, s.Acquire("r", func() error { released = true; return nil }))
		require.NoError(t, g.Cancel())
		assert.True(t, released, "cancel releases synchronously")
		return 42, true, nil
	}))
	require.NoError(t, err)

	v, ok, err := g.Resume()

	assert.NoError(t, err)
	assert.False(t, ok, "value produced by a cancelled step is discarded")
	assert.Zero(t, v)
	assert.Equal(t, StateCancelled, g.State())
	assert.True(t, scope.Cancelled())
	assert.Error(t, scope.Context().Err())
}

func TestGenerator_All(t *testing.T) {
	g, err := New(Countdown(5))
	require.NoError(t, err)

	var got []int
	for v := range g.All() {
		got = append(got, v)
		if v == 3 {
			break
		}
	}
	assert.Equal(t, []int{5, 4, 3}, got)
	assert.Equal(t, StateSuspended, g.State(), "break leaves the generator resumable")

	rest, err := g.Collect()
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1}, rest)
	assert.NoError(t, g.Err())
}

func TestGenerator_AllStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	g, err := New(Func(func(i int, _ *Scope) (int, bool, error) {
		if i == 2 {
			return 0, false, boom
		}
		return i, true, nil
	}))
	require.NoError(t, err)

	var got []int
	for v := range g.All() {
		got = append(got, v)
	}

	assert.Equal(t, []int{0, 1}, got)
	assert.ErrorIs(t, g.Err(), ErrProducerFailed)
	assert.ErrorIs(t, g.Err(), boom)
}

func TestGenerator_StartFailure(t *testing.T) {
	openErr := errors.New("no such file")
	g, err := New(Lines(func() (io.ReadCloser, error) { return nil, openErr }))
	require.NoError(t, err)

	_, ok, err := g.Resume()

	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrProducerFailed)
	assert.ErrorIs(t, err, openErr)
	assert.Equal(t, StateExhausted, g.State())
}

func TestGenerator_Identity(t *testing.T) {
	a, err := New(Countdown(1), WithName("a"))
	require.NoError(t, err)
	b, err := New(Countdown(1))
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, "a", a.Name())
	assert.Empty(t, b.Name())
}

func TestGenerator_Metrics(t *testing.T) {
	created := testutil.ToFloat64(generatorsCreated)
	yielded := testutil.ToFloat64(valuesYielded)
	exhausted := testutil.ToFloat64(generatorsFinished.WithLabelValues(outcomeExhausted))
	cancelled := testutil.ToFloat64(generatorsFinished.WithLabelValues(outcomeCancelled))

	g, err := New(Countdown(3))
	require.NoError(t, err)
	_, err = g.Collect()
	require.NoError(t, err)

	c, err := New(Countdown(3))
	require.NoError(t, err)
	require.NoError(t, c.Cancel())

	assert.Equal(t, created+2, testutil.ToFloat64(generatorsCreated))
	assert.Equal(t, yielded+3, testutil.ToFloat64(valuesYielded))
	assert.Equal(t, exhausted+1, testutil.ToFloat64(generatorsFinished.WithLabelValues(outcomeExhausted)))
	assert.Equal(t, cancelled+1, testutil.ToFloat64(generatorsFinished.WithLabelValues(outcomeCancelled)))
}
