// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gcheap

import (
	"encoding/binary"

	"github.com/cznic/gcheap/activity"
)

// wordSize is the width, in bytes, of a conservatively scanned "machine
// word" slot inside a managed block. It is fixed rather than derived from
// the host architecture so that a heap's on-disk/in-memory layout does not
// change across builds; Config.BytesPerBlock must be a multiple of it.
const wordSize = 8

// Ptr is an opaque reference to a managed allocation. The zero Ptr is nil
// and never refers to a live allocation. Ptr values are valid only for the
// Heap that produced them.
type Ptr uint64

// Nil is the zero Ptr, matching a null pointer in the source model.
const Nil Ptr = 0

// AllocFlags are option bits accepted by Heap.Alloc.
type AllocFlags uint8

// HasFinalizer requests that the finalizer table bit be set for the new
// allocation; Config.Finalize is invoked for it during a future sweep,
// provided the caller has stored a non-Nil value in its first word
// (Heap.Alloc clears that word when this flag is set).
const HasFinalizer AllocFlags = 1 << 0

// FinalizeFunc is invoked by the collector during sweep for every
// unmarked HEAD block whose finalizer bit is set and whose first word is
// non-Nil. It runs with the re-entrancy depth
// raised: Alloc and Realloc called from it return (Nil, false) and Free
// is a no-op, silently, rather than panicking or deadlocking.
type FinalizeFunc func(h *Heap, p Ptr)

// AbortFunc is invoked when the heap is used before Init or after Deinit.
// Heap does not recover from this itself; if AbortFunc returns, Alloc
// returns Nil.
type AbortFunc func(reason string)

// Config holds the compile-time-style constants and host callbacks a Heap
// is built from.
type Config struct {
	// BytesPerBlock is the fixed size of one allocation unit. Must be a
	// power of two and a multiple of wordSize (8). Defaults to 16.
	BytesPerBlock int

	// ATBIndices is the number of first-free hint buckets kept by
	// FreeIndex, i.e. distinct small-allocation sizes that get their own
	// scan-start hint. Defaults to 4.
	ATBIndices int

	// GCStackSize bounds the explicit mark stack used by mark_subtree.
	// Overflow is recovered internally by rescanning; it is never
	// visible to callers. Defaults to 64.
	GCStackSize int

	// EnableFinalizer turns on the finalizer table (FTB) and finalizer
	// dispatch during sweep.
	EnableFinalizer bool

	// ConservativeClear, if true, zeroes an entire newly allocated run;
	// otherwise only the bytes beyond the requested n_bytes are zeroed.
	ConservativeClear bool

	// AllocThreshold, if nonzero, triggers a collection once
	// cumulative allocated blocks since the last collection reach it.
	// Has no effect unless Collect is also set: allocAmount only resets
	// inside CollectStart (and Init), so a threshold with no Collect
	// callback to act on it would otherwise never be satisfiable again
	// and Alloc would fall back to scanning for space as if no threshold
	// were configured at all.
	AllocThreshold uint64

	// Finalize dispatches a per-object finalizer during sweep. Required
	// if EnableFinalizer is true.
	Finalize FinalizeFunc

	// Collect is the host's collection-orchestration routine: it must
	// call Heap.CollectStart, enumerate every root it knows about via
	// Heap.CollectRoot/CollectPtr, and finish with Heap.CollectEnd. Alloc
	// invokes it at most once per call: when AllocThreshold is reached,
	// or otherwise when the heap is out of space; a request that still
	// finds no room after that collection fails. A nil Collect means Alloc
	// never triggers a collection on its own; the host must still be
	// able to call CollectStart/CollectEnd directly.
	Collect func(h *Heap)

	// Abort is invoked for GC_ALLOC_OUTSIDE_VM conditions: Alloc or Free
	// called before Init or after Deinit.
	Abort AbortFunc

	// Activity, if non-nil, receives heap lifecycle and collection
	// events. See package activity. Purely observational: never
	// consulted for correctness.
	Activity activity.Sink
}

func (c *Config) setDefaults() {
	if c.BytesPerBlock == 0 {
		c.BytesPerBlock = 16
	}
	if c.ATBIndices == 0 {
		c.ATBIndices = 4
	}
	if c.GCStackSize == 0 {
		c.GCStackSize = 64
	}
}

// Heap is a managed mark-and-sweep allocator over a single caller supplied
// buffer. The zero Heap is not usable; construct one with New and bring it
// up with Init.
type Heap struct {
	cfg  Config
	gate lockGate

	l       layout
	freeIdx freeIndex

	// lowestLongLived is the lowest pool-relative Ptr currently occupied
	// by a long-lived allocation. It starts at one-past-the-end of the
	// pool (nothing is long-lived yet) and only ever moves down, except
	// that CollectEnd does not reset it: the two-lane heuristic persists
	// across collections by design.
	lowestLongLived Ptr

	permanentHead Ptr

	allocAmount uint64

	markStack    []int
	markSP       int
	markOverflow bool

	ready bool
}

// New constructs a Heap from cfg. The heap is not usable for Alloc/Free
// until Init is called with a backing buffer.
func New(cfg Config) *Heap {
	cfg.setDefaults()
	h := &Heap{cfg: cfg}
	h.markStack = make([]int, cfg.GCStackSize)
	return h
}

// blockOf returns the block index addressed by p. p must have already
// passed verifyPtr.
func (h *Heap) blockOf(p Ptr) int {
	return int((p - 1) / Ptr(h.cfg.BytesPerBlock))
}

// ptrOfBlock returns the Ptr addressing the first byte of block.
func (h *Heap) ptrOfBlock(block int) Ptr {
	return Ptr(block*h.cfg.BytesPerBlock) + 1
}

// verifyPtr is VERIFY_PTR from the source model: p is a potential pointer
// iff it is block aligned and falls inside the pool.
func (h *Heap) verifyPtr(p Ptr) bool {
	if p == 0 {
		return false
	}
	off := p - 1
	if off%Ptr(h.cfg.BytesPerBlock) != 0 {
		return false
	}
	return int(off) < len(h.l.pool)
}

// Init partitions buf into ATB/FTB/pool and brings the heap up. It is
// idempotent only after a call to Deinit; calling Init twice on a ready
// heap is a caller error (ErrPERM).
func (h *Heap) Init(buf []byte) error {
	if h.ready {
		return &ErrPERM{"Heap.Init: already initialized"}
	}
	l, err := computeLayout(buf, h.cfg.BytesPerBlock, h.cfg.EnableFinalizer)
	if err != nil {
		return err
	}
	h.l = l
	h.freeIdx = newFreeIndex(h.cfg.ATBIndices, l.atb.numBlocks()/blocksPerATB)
	h.lowestLongLived = h.ptrOfBlock(l.atb.numBlocks())
	h.permanentHead = Nil
	h.allocAmount = 0
	h.markOverflow = false
	h.ready = true
	return nil
}

// Deinit runs SweepAll (finalizing and reclaiming every live allocation,
// calling no marks so nothing survives) and then marks the heap
// uninitialized. It does not zero the pool itself, matching the source
// model, which only clears its pool-start pointer after gc_sweep_all -
// Heap.ready is that same pointer's Go analogue.
func (h *Heap) Deinit() {
	if !h.ready {
		return
	}
	h.SweepAll()
	h.ready = false
}

// AllocPossible reports whether the heap has been Init'd and not yet
// Deinit'd.
func (h *Heap) AllocPossible() bool { return h.ready }

func (h *Heap) abort(reason string) {
	if h.cfg.Abort != nil {
		h.cfg.Abort(reason)
	}
}

// Bytes returns the live content of the allocation at p as a slice backed
// directly by the pool - writes through it are visible to the heap and to
// any other holder of the same Ptr. It returns nil if p is not a live
// HEAD. This is the "wrap the pool in an API that returns raw words/bytes
// by index" seam called for by a conservative collector implemented
// without raw pointer casts.
func (h *Heap) Bytes(p Ptr) []byte {
	n := h.NBytes(p)
	if n == 0 {
		return nil
	}
	off := int(p - 1)
	return h.l.pool[off : off+n]
}

// ReadWord reads the wordIndex'th 8-byte little-endian word of the
// allocation at p and returns it as a Ptr, whatever its bit pattern - the
// same view the conservative scan takes. It returns Nil if p is not a
// live HEAD or the index is out of range.
func (h *Heap) ReadWord(p Ptr, wordIndex int) Ptr {
	b := h.Bytes(p)
	off := wordIndex * wordSize
	if off < 0 || off+wordSize > len(b) {
		return Nil
	}
	return Ptr(binary.LittleEndian.Uint64(b[off:]))
}

// WriteWord writes v as the wordIndex'th 8-byte little-endian word of the
// allocation at p. It is a no-op if the index is out of range.
func (h *Heap) WriteWord(p Ptr, wordIndex int, v Ptr) {
	b := h.Bytes(p)
	off := wordIndex * wordSize
	if off < 0 || off+wordSize > len(b) {
		return
	}
	binary.LittleEndian.PutUint64(b[off:], uint64(v))
}
