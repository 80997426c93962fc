// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gcheap

import "sync"

// lockGate serializes every externally callable entry point behind one
// coarse mutex (mu) and separately tracks a re-entrancy depth behind its
// own small mutex (dmu). The two are deliberately independent: a
// collection holds mu for its entire window (CollectStart through
// CollectEnd), so depth must be checkable by isLocked without acquiring
// mu, or a finalizer/root-scan callback that calls back into Alloc/Free
// on the same goroutine would deadlock on mu instead of getting the
// documented no-op/null refusal.
type lockGate struct {
	mu    sync.Mutex
	dmu   sync.Mutex
	depth int
}

// enter acquires the mutex. Pair with exit.
func (g *lockGate) enter() { g.mu.Lock() }

// exit releases the mutex.
func (g *lockGate) exit() { g.mu.Unlock() }

// lock increments the re-entrancy depth.
func (g *lockGate) lock() {
	g.dmu.Lock()
	g.depth++
	g.dmu.Unlock()
}

// unlock decrements the re-entrancy depth.
func (g *lockGate) unlock() {
	g.dmu.Lock()
	g.depth--
	g.dmu.Unlock()
}

// isLocked reports whether the re-entrancy depth is positive. Callers
// must check this BEFORE calling enter, never after: depth is only ever
// raised for the duration of a collection, which also holds mu for its
// whole window, so checking it after acquiring mu would never observe a
// depth raised by a concurrent collection and would deadlock against one
// raised by the current goroutine's own collection.
func (g *lockGate) isLocked() bool {
	g.dmu.Lock()
	defer g.dmu.Unlock()
	return g.depth > 0
}
