// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gcheap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectReclaimsUnreachable(t *testing.T) {
	h := newTestHeap(t, 4096)

	kept, ok := h.Alloc(16, 0, false)
	require.True(t, ok)
	garbage, ok := h.Alloc(16, 0, false)
	require.True(t, ok)

	h.CollectStart()
	h.CollectPtr(kept)
	h.CollectEnd()

	assert.Equal(t, 16, h.NBytes(kept))
	assert.Equal(t, 0, h.NBytes(garbage), "unreachable allocation must be reclaimed")
}

func TestCollectPreservesCycle(t *testing.T) {
	h := newTestHeap(t, 4096)

	a, ok := h.Alloc(16, 0, false)
	require.True(t, ok)
	b, ok := h.Alloc(16, 0, false)
	require.True(t, ok)
	h.WriteWord(a, 0, b)
	h.WriteWord(b, 0, a)

	h.CollectStart()
	h.CollectPtr(a)
	h.CollectEnd()

	assert.Equal(t, 16, h.NBytes(a))
	assert.Equal(t, 16, h.NBytes(b), "a cycle reachable from a root must survive entirely")
}

func TestCollectFollowsMultiBlockRun(t *testing.T) {
	h := newTestHeap(t, 4096)

	// A run several blocks long so markSubtree must scan more than one
	// block's worth of words looking for child pointers.
	big, ok := h.Alloc(128, 0, false)
	require.True(t, ok)
	child, ok := h.Alloc(16, 0, false)
	require.True(t, ok)
	// Put the only reference to child in a word past the first block of
	// big's run.
	h.WriteWord(big, h.cfg.BytesPerBlock/wordSize+1, child)

	h.CollectStart()
	h.CollectPtr(big)
	h.CollectEnd()

	assert.Equal(t, 16, h.NBytes(child), "a pointer stored past the first block of a multi-block run must still be traced")
}

func TestCollectStackOverflowRecovers(t *testing.T) {
	// A one-deep mark stack cannot hold both children of any node in a
	// binary tree without overflowing; dealWithOverflow must still
	// recover every reachable node by repeatedly rescanning for MARK
	// blocks and retracing them as fresh roots.
	h := New(Config{BytesPerBlock: 32, GCStackSize: 1})
	require.NoError(t, h.Init(make([]byte, 4096)))
	defer h.Deinit()

	newNode := func() Ptr {
		p, ok := h.Alloc(32, 0, false)
		require.True(t, ok)
		return p
	}
	leaves := make([]Ptr, 4)
	for i := range leaves {
		leaves[i] = newNode()
	}
	mid := make([]Ptr, 2)
	for i := range mid {
		mid[i] = newNode()
		h.WriteWord(mid[i], 0, leaves[2*i])
		h.WriteWord(mid[i], 1, leaves[2*i+1])
	}
	root := newNode()
	h.WriteWord(root, 0, mid[0])
	h.WriteWord(root, 1, mid[1])

	h.CollectStart()
	h.CollectPtr(root)
	h.CollectEnd()

	assert.Equal(t, 32, h.NBytes(root))
	for i, m := range mid {
		assert.Equal(t, 32, h.NBytes(m), "mid node %d must survive a mark-stack overflow", i)
	}
	for i, l := range leaves {
		assert.Equal(t, 32, h.NBytes(l), "leaf %d must survive a mark-stack overflow", i)
	}
}

func TestSweepAllReclaimsEverything(t *testing.T) {
	h := newTestHeap(t, 4096)
	p, ok := h.Alloc(32, 0, false)
	require.True(t, ok)

	h.SweepAll()

	assert.Equal(t, 0, h.NBytes(p))
}

func TestFinalizerFiresOnlyOnSweep(t *testing.T) {
	var finalized []Ptr
	h := New(Config{
		BytesPerBlock:   16,
		EnableFinalizer: true,
		Finalize: func(h *Heap, p Ptr) {
			finalized = append(finalized, p)
		},
	})
	require.NoError(t, h.Init(make([]byte, 4096)))
	defer h.Deinit()

	p, ok := h.Alloc(16, HasFinalizer, false)
	require.True(t, ok)
	assert.True(t, h.HasFinalizer(p))
	// Mark the "type slot" non-nil so sweep treats this as a live finalizer.
	h.WriteWord(p, 0, Ptr(1))

	h.CollectStart()
	h.CollectPtr(p) // still reachable: finalizer must not fire
	h.CollectEnd()
	assert.Empty(t, finalized)

	h.CollectStart()
	// not marked this time: unreachable, finalizer must fire during sweep
	h.CollectEnd()

	assert.Equal(t, []Ptr{p}, finalized)
	assert.Equal(t, 0, h.NBytes(p))
}

func TestFinalizerSkippedWithNilTypeSlot(t *testing.T) {
	var calls int
	h := New(Config{
		BytesPerBlock:   16,
		EnableFinalizer: true,
		Finalize:        func(h *Heap, p Ptr) { calls++ },
	})
	require.NoError(t, h.Init(make([]byte, 4096)))
	defer h.Deinit()

	p, ok := h.Alloc(16, HasFinalizer, false)
	require.True(t, ok)
	// Leave the type slot (word 0) Nil: the allocator already zeroes new
	// memory, so this models an object never populated before collection.

	h.CollectStart()
	h.CollectEnd()

	assert.Zero(t, calls, "a never-populated type slot must not dispatch a finalizer")
}

func TestFinalizerCallingAllocDoesNotDeadlock(t *testing.T) {
	// A finalizer is documented to get a silent refusal, not a hang, if it
	// calls back into Alloc/Free while the collector holds the gate. This
	// exercises lockGate's split mutex/depth design directly.
	var reentrantOK bool
	var reentrantPtr Ptr
	var reentrantAllocOK bool

	h := New(Config{
		BytesPerBlock:   16,
		EnableFinalizer: true,
		Finalize: func(hh *Heap, p Ptr) {
			reentrantPtr, reentrantAllocOK = hh.Alloc(16, 0, false)
			reentrantOK = true
		},
	})
	require.NoError(t, h.Init(make([]byte, 4096)))
	defer h.Deinit()

	p, ok := h.Alloc(16, HasFinalizer, false)
	require.True(t, ok)
	h.WriteWord(p, 0, Ptr(1))

	done := make(chan struct{})
	go func() {
		h.SweepAll()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("SweepAll did not return: a reentrant Alloc from a finalizer deadlocked")
	}

	assert.True(t, reentrantOK, "finalizer must have run")
	assert.False(t, reentrantAllocOK, "Alloc called from a finalizer must refuse, not succeed")
	assert.Equal(t, Nil, reentrantPtr)
}

func TestNeverFreeSurvivesWithoutBeingARoot(t *testing.T) {
	h := newTestHeap(t, 4096)
	p, ok := h.Alloc(16, 0, false)
	require.True(t, ok)

	assert.True(t, h.NeverFree(p))

	h.CollectStart()
	h.CollectEnd() // no explicit roots at all
	assert.Equal(t, 16, h.NBytes(p), "a permanent pointer must survive even with zero other roots")
}
