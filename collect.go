// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gcheap

import "encoding/binary"

// CollectStart begins a collection window: it acquires the heap's lock for
// the entire window (released only by CollectEnd), increments the
// re-entrancy depth so Alloc/Free/Realloc refuse work until CollectEnd,
// resets the allocation-threshold counter and the mark-stack overflow
// flag, and marks the permanent list's head page as a root (tracing it
// naturally walks every pinned pointer and every subsequent page, since
// each page's slots - including the next-page link - are themselves
// scanned as potential pointers).
func (h *Heap) CollectStart() {
	h.gate.enter()
	h.gate.lock()
	h.allocAmount = 0
	h.markOverflow = false
	h.markSP = 0
	h.mark(h.permanentHead)
	h.reportCollect("start")
}

// CollectRoot marks every pointer in ptrs as a root. Call it any number of
// times between CollectStart and CollectEnd.
func (h *Heap) CollectRoot(ptrs []Ptr) {
	for _, p := range ptrs {
		h.mark(p)
	}
}

// CollectPtr marks a single root pointer.
func (h *Heap) CollectPtr(p Ptr) {
	h.mark(p)
}

// CollectEnd finishes a collection: it recovers from any mark-stack
// overflow, sweeps unmarked allocations (running finalizers as it goes),
// resets the FreeIndex hints to their most pessimistic state, and
// releases the lock acquired by CollectStart.
func (h *Heap) CollectEnd() {
	h.dealWithOverflow()
	h.sweep()
	h.freeIdx.reset(h.l.atb.numBlocks() / blocksPerATB)
	h.reportCollect("end")
	h.gate.unlock()
	h.gate.exit()
}

// SweepAll runs a full collection pass without marking anything live
// first, so every allocation (except those already freed) is finalized
// and reclaimed. Used by Deinit and directly exposed for hosts that want
// to force a total reclaim.
func (h *Heap) SweepAll() {
	h.gate.enter()
	h.gate.lock()
	h.markOverflow = false
	h.sweep()
	h.permanentHead = Nil // its pages were reclaimed by the sweep
	h.freeIdx.reset(h.l.atb.numBlocks() / blocksPerATB)
	h.reportCollect("sweep-all")
	h.gate.unlock()
	h.gate.exit()
}

func (h *Heap) reportCollect(phase string) {
	if h.cfg.Activity == nil {
		return
	}
	info := h.infoLocked()
	h.cfg.Activity.Collect(phase, info.Used/h.cfg.BytesPerBlock, info.Free/h.cfg.BytesPerBlock)
}

// mark is VERIFY_PTR-gated: ptr is ignored unless it is a live HEAD, in
// which case it becomes MARK and its children are traced.
func (h *Heap) mark(p Ptr) {
	if !h.verifyPtr(p) {
		return
	}
	block := h.blockOf(p)
	if h.l.atb.get(block) == stateHead {
		h.l.atb.headToMark(block)
		h.markSubtree(block)
	}
}

// markSubtree performs a depth-first trace starting at root using the
// heap's bounded, explicit mark stack. When the stack is full, a child
// block is still marked (so it is never lost), but its own children are
// not pushed; markOverflow is raised instead and recovered later by
// dealWithOverflow, which rescans for any MARK block and retraces it.
func (h *Heap) markSubtree(root int) {
	h.markSP = 0
	block := root
	table := h.l.atb
	numBlocks := table.numBlocks()
	bpb := h.cfg.BytesPerBlock

	for {
		n := 1
		for block+n < numBlocks && table.get(block+n) == stateTail {
			n++
		}

		base := block * bpb
		words := n * bpb / wordSize
		for wi := 0; wi < words; wi++ {
			off := base + wi*wordSize
			word := binary.LittleEndian.Uint64(h.l.pool[off : off+wordSize])
			p := Ptr(word)
			if !h.verifyPtr(p) {
				continue
			}
			child := h.blockOf(p)
			if table.get(child) != stateHead {
				continue
			}
			table.headToMark(child)
			if h.markSP < len(h.markStack) {
				h.markStack[h.markSP] = child
				h.markSP++
			} else {
				h.markOverflow = true
			}
		}

		if h.markSP == 0 {
			break
		}
		h.markSP--
		block = h.markStack[h.markSP]
	}
}

// dealWithOverflow repeatedly rescans the whole table for MARK blocks
// whose children were dropped by a full mark stack, retracing each one.
// It terminates because every pass either finds nothing (overflow stays
// false) or marks strictly more blocks than the previous pass.
func (h *Heap) dealWithOverflow() {
	numBlocks := h.l.atb.numBlocks()
	for h.markOverflow {
		h.markOverflow = false
		for block := 0; block < numBlocks; block++ {
			if h.l.atb.get(block) == stateMark {
				h.markSubtree(block)
			}
		}
	}
}

// sweep performs the single linear reclamation pass described in
// spec.md/SPEC_FULL.md: HEAD blocks without a surviving mark are
// finalized (if applicable) and freed along with their TAIL run; MARK
// blocks are demoted back to HEAD. freeTail is deliberately not reset on
// FREE or on the implicit "no case matched" path: the ATB invariant that
// a TAIL block is never preceded by a FREE block makes carrying the old
// value across FREE blocks safe, since the next TAIL can only follow a
// HEAD/MARK this same pass already visited.
func (h *Heap) sweep() {
	numBlocks := h.l.atb.numBlocks()
	freeTail := false
	bpb := h.cfg.BytesPerBlock

	for block := 0; block < numBlocks; block++ {
		switch h.l.atb.get(block) {
		case stateHead:
			if h.l.ftb.get(block) {
				typeSlot := Ptr(binary.LittleEndian.Uint64(h.l.pool[block*bpb:]))
				if typeSlot != Nil && h.cfg.Finalize != nil {
					h.cfg.Finalize(h, h.ptrOfBlock(block))
				}
				h.l.ftb.clear(block)
			}
			h.l.atb.anyToFree(block)
			freeTail = true

		case stateTail:
			if freeTail {
				h.l.atb.anyToFree(block)
			}

		case stateMark:
			h.l.atb.markToHead(block)
			freeTail = false
		}
	}
}
