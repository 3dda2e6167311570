// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package lazyseq provides cancellable, cooperative producers of value
// sequences with guaranteed resource release.
//
// # Overview
//
// A Generator wraps a Producer: an explicit state struct whose Next method
// runs from the last suspension point to the next one and yields at most
// one value. Nothing runs until the first Resume, so a Generator describes
// a sequence without computing it.
//
// # Lifecycle
//
//	Created ──Resume──▶ Running ──value──▶ Suspended ──Resume──▶ Running ...
//	                       │
//	                       ├──done / error / panic──▶ Exhausted
//	                       │
//	Created, Suspended, Running ──Cancel──▶ Cancelled
//
// Exhausted and Cancelled are terminal. A terminal generator answers every
// Resume with (zero, false, nil) and is never restarted.
//
// # Resources
//
// Producers acquire resources (files, upstream generators) through the
// Scope passed to Next. The Scope releases whatever is still held, in
// reverse acquisition order, on every exit path: exhaustion, producer
// error, producer panic and Cancel. Cancel releases synchronously inside
// the call.
//
// # Example
//
//	gen, _ := lazyseq.New(lazyseq.Countdown(3))
//	for v := range gen.All() {
//	    fmt.Println(v) // 3, 2, 1
//	}
//
//	lines, _ := lazyseq.New(lazyseq.Lines(func() (io.ReadCloser, error) {
//	    return os.Open("huge.log")
//	}))
//	first, _ := lazyseq.New(lazyseq.Take(lines, 10))
//	for line := range first.All() {
//	    fmt.Println(line)
//	}
//	// huge.log is closed here even though it was not read to the end.
//
// # Thread Safety
//
// Generators are meant for single-goroutine, cooperative use. The state is
// kept in an atomic so that a concurrent or re-entrant Resume is reported
// as ErrAlreadyRunning instead of corrupting the producer, but callers are
// expected to serialise access.
package lazyseq
