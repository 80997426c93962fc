// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package activity provides an optional heap-activity logging hook for
// package gcheap. It is a pure observer: nothing in gcheap consults it for
// correctness, and a nil Sink is always safe.
package activity

// Sink receives heap lifecycle events. Implementations must not call back
// into the Heap that reports them - they may be invoked with the heap's
// lock held.
type Sink interface {
	// Collect is reported at the start and end of every collection
	// ("start", "end") and once per SweepAll ("sweep-all"), with the
	// block counts (in blocks, not bytes) observed at that moment.
	Collect(phase string, used, free int)

	// OOM is reported whenever Alloc finds no room for nBytes and returns
	// a null result: after a collection, or at once when the heap has no
	// collection callback. Realloc reports it only through the Alloc it
	// makes when moving an allocation.
	OOM(nBytes int)
}

// Discard is a Sink that ignores every event. It is the zero value of
// this package's usefulness and exists mainly so callers can swap it in
// without a nil check of their own.
var Discard Sink = discard{}

type discard struct{}

func (discard) Collect(string, int, int) {}
func (discard) OOM(int)                  {}
