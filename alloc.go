// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gcheap

// Alloc reserves a run of blocks able to hold nBytes and returns a Ptr to
// it, or (Nil, false) if no space is available even after a collection.
//
// Short-lived allocations (longLived == false) are placed via a forward
// scan starting at the FreeIndex hint for their size bucket; long-lived
// allocations are placed via a reverse scan starting at the last-free
// hint, so the two lanes grow from opposite ends of the pool and stay out
// of each other's way until the pool genuinely fills up.
func (h *Heap) Alloc(nBytes int, flags AllocFlags, longLived bool) (Ptr, bool) {
	nBlocks := (nBytes + h.cfg.BytesPerBlock - 1) / h.cfg.BytesPerBlock
	if nBlocks == 0 {
		return Nil, false
	}
	if !h.ready {
		h.abort("GC_ALLOC_OUTSIDE_VM")
		return Nil, false
	}

	if h.gate.isLocked() {
		return Nil, false
	}
	h.gate.enter()

	collected := false
	if h.cfg.AllocThreshold != 0 && h.cfg.Collect != nil && h.allocAmount >= h.cfg.AllocThreshold {
		collected = h.runCollect()
	}

	crossover := h.blockOf(h.lowestLongLived)

	var foundBlock, run int
	for {
		foundBlock, run = h.scanFree(nBlocks, longLived, crossover, collected)
		if run >= nBlocks {
			break
		}
		if collected {
			h.gate.exit()
			if h.cfg.Activity != nil {
				h.cfg.Activity.OOM(nBytes)
			}
			return Nil, false
		}
		if !h.runCollect() {
			h.gate.exit()
			if h.cfg.Activity != nil {
				h.cfg.Activity.OOM(nBytes)
			}
			return Nil, false
		}
		collected = true
	}

	var start, end int
	if !longLived {
		end = foundBlock
		start = foundBlock - run + 1
		if nBlocks-1 < len(h.freeIdx.firstFree) {
			nextFree := (foundBlock + nBlocks) / blocksPerATB
			for i := nBlocks - 1; i < len(h.freeIdx.firstFree); i++ {
				h.freeIdx.firstFree[i] = nextFree
			}
		}
	} else {
		start = foundBlock
		end = foundBlock + run - 1
		h.freeIdx.lastFree = (foundBlock - 1) / blocksPerATB
	}

	h.l.atb.freeToHead(start)
	for bl := start + 1; bl <= end; bl++ {
		h.l.atb.freeToTail(bl)
	}

	ret := h.ptrOfBlock(start)
	if longLived && ret < h.lowestLongLived {
		h.lowestLongLived = ret
	}
	h.allocAmount += uint64(nBlocks)

	h.gate.exit()

	runBytes := (end - start + 1) * h.cfg.BytesPerBlock
	off := int(ret - 1)
	if h.cfg.ConservativeClear {
		// Zero the whole run: with pre-existing bytes treated as
		// potential pointers by the collector, stale content must
		// never survive into a fresh allocation.
		clear(h.l.pool[off : off+runBytes])
	} else {
		clear(h.l.pool[off+nBytes : off+runBytes])
	}

	if flags&HasFinalizer != 0 {
		h.WriteWord(ret, 0, Nil)
		h.gate.enter()
		h.l.ftb.set(start)
		h.gate.exit()
	}

	return ret, true
}

// runCollect invokes the host-supplied collection callback. It must be
// called with the gate held; it releases the gate around the callback
// (mirroring the source model's GC_EXIT before gc_collect()) and
// reacquires it before returning. It reports false, leaving the gate
// held and untouched, if no callback is configured.
func (h *Heap) runCollect() bool {
	if h.cfg.Collect == nil {
		return false
	}
	h.gate.exit()
	h.cfg.Collect(h)
	h.gate.enter()
	return true
}

// scanFree looks for a run of at least nBlocks free blocks, scanning
// forward from the size bucket's first-free hint (short-lived) or
// backward from the last-free hint (long-lived). Before a collection has
// happened this call, it abandons the scan at the first non-free block
// at or past the long/short-lived crossover block (free blocks past it
// still extend the current run), so a retry after collecting finds the
// closest free run in the correct lane. Returns the last block of the run
// found (forward) or its first block (reverse), and the run length; a
// run shorter than nBlocks means nothing suitable was found.
func (h *Heap) scanFree(nBlocks int, longLived bool, crossover int, collected bool) (foundBlock, run int) {
	bucket := h.freeIdx.bucket(nBlocks)
	firstFree := h.freeIdx.firstFree[bucket]
	lastFree := h.freeIdx.lastFree

	direction := 1
	start := firstFree
	jFrom, jTo := 0, 3
	if longLived {
		direction = -1
		start = lastFree
		jFrom, jTo = 3, 0
	}

	for i := start; firstFree <= i && i <= lastFree; i += direction {
		a := int(h.l.atb[i])
		for j := jFrom; ; {
			if (a>>(uint(j)*2))&0x3 == stateFree {
				run++
				if run >= nBlocks {
					return i*blocksPerATB + j, run
				}
			} else {
				if !collected {
					block := i*blocksPerATB + j
					if (direction == 1 && block >= crossover) || (direction == -1 && block < crossover) {
						return 0, run
					}
				}
				run = 0
			}
			if j == jTo {
				break
			}
			j += direction
		}
	}
	return 0, run
}

// Free releases the allocation at p. It is a no-op while the GC is
// locked. p must be Nil or a pointer returned by Alloc/Realloc that has
// not already been freed; violating that is a programmer error and
// panics, matching the source model's debug assertion.
func (h *Heap) Free(p Ptr) {
	if !h.ready {
		h.abort("GC_ALLOC_OUTSIDE_VM")
		return
	}
	if p == Nil {
		return
	}

	if h.gate.isLocked() {
		return
	}
	h.gate.enter()
	defer h.gate.exit()

	if !h.verifyPtr(p) {
		panic(&ErrINVAL{"Heap.Free: pointer not in pool", p})
	}
	start := h.blockOf(p)
	if h.l.atb.get(start) != stateHead {
		panic(&ErrINVAL{"Heap.Free: pointer is not a HEAD block", p})
	}

	h.l.ftb.clear(start)
	block := start
	numBlocks := h.l.atb.numBlocks()
	for {
		h.l.atb.anyToFree(block)
		block++
		if block >= numBlocks || h.l.atb.get(block) != stateTail {
			break
		}
	}
	h.freeIdx.noteFreedShort(start/blocksPerATB, block-start)
}

// NBytes returns the size, in bytes, of the allocation at p, or 0 if p is
// not a live HEAD pointer.
func (h *Heap) NBytes(p Ptr) int {
	if !h.verifyPtr(p) {
		return 0
	}
	block := h.blockOf(p)
	if h.l.atb.get(block) != stateHead {
		return 0
	}
	n := 1
	numBlocks := h.l.atb.numBlocks()
	for block+n < numBlocks && h.l.atb.get(block+n) == stateTail {
		n++
	}
	return n * h.cfg.BytesPerBlock
}

// HasFinalizer reports whether the allocation at p was made with
// HasFinalizer set and still has a live finalizer bit.
func (h *Heap) HasFinalizer(p Ptr) bool {
	if !h.verifyPtr(p) {
		return false
	}
	return h.l.ftb.get(h.blockOf(p))
}

// Realloc resizes the allocation at p to nBytes, preferring an in-place
// shrink or grow over a move. ptr == Nil behaves as Alloc; nBytes == 0
// behaves as Free. If the block cannot be resized in place and allowMove
// is false, it returns (Nil, false) without touching p.
func (h *Heap) Realloc(p Ptr, nBytes int, allowMove bool) (Ptr, bool) {
	if p == Nil {
		return h.Alloc(nBytes, 0, false)
	}
	if nBytes == 0 {
		h.Free(p)
		return Nil, true
	}
	if !h.ready {
		h.abort("GC_ALLOC_OUTSIDE_VM")
		return Nil, false
	}

	if h.gate.isLocked() {
		return Nil, false
	}
	h.gate.enter()

	if !h.verifyPtr(p) {
		h.gate.exit()
		panic(&ErrINVAL{"Heap.Realloc: invalid pointer", p})
	}
	block := h.blockOf(p)
	if h.l.atb.get(block) != stateHead {
		h.gate.exit()
		panic(&ErrINVAL{"Heap.Realloc: pointer is not a HEAD block", p})
	}

	newBlocks := (nBytes + h.cfg.BytesPerBlock - 1) / h.cfg.BytesPerBlock
	numBlocks := h.l.atb.numBlocks()

	nBlocks, nFree := 1, 0
	bl := block + 1
	for ; bl < numBlocks; bl++ {
		switch h.l.atb.get(bl) {
		case stateTail:
			nBlocks++
			continue
		case stateFree:
			nFree++
			if nBlocks+nFree >= newBlocks {
				goto scanned
			}
			continue
		}
		break
	}
scanned:

	if newBlocks == nBlocks {
		h.gate.exit()
		return p, true
	}

	if newBlocks < nBlocks {
		for bl2 := block + newBlocks; bl2 < block+nBlocks; bl2++ {
			h.l.atb.anyToFree(bl2)
		}
		h.freeIdx.noteFreedShort((block+newBlocks)/blocksPerATB, nBlocks-newBlocks)
		h.gate.exit()
		return p, true
	}

	if newBlocks <= nBlocks+nFree {
		for bl2 := block + nBlocks; bl2 < block+newBlocks; bl2++ {
			h.l.atb.freeToTail(bl2)
		}
		h.gate.exit()

		off := int(p - 1)
		runBytes := newBlocks * h.cfg.BytesPerBlock
		if h.cfg.ConservativeClear {
			clear(h.l.pool[off+nBlocks*h.cfg.BytesPerBlock : off+runBytes])
		} else {
			clear(h.l.pool[off+nBytes : off+runBytes])
		}
		return p, true
	}

	hasFin := h.l.ftb.get(block)
	h.gate.exit()

	if !allowMove {
		return Nil, false
	}

	flags := AllocFlags(0)
	if hasFin {
		flags = HasFinalizer
	}
	newPtr, ok := h.Alloc(nBytes, flags, false)
	if !ok {
		return Nil, false
	}
	copy(h.Bytes(newPtr), h.Bytes(p))
	h.Free(p)
	return newPtr, true
}

// MakeLongLived migrates p into the long-lived lane if it isn't already
// there, and returns the (possibly new) pointer. It never fails: if the
// migration can't improve on p's position - no space, or the new slot
// didn't land above p - the old pointer is returned unchanged and any
// new allocation is freed again.
//
// The old pointer remains readable until the next collection reclaims
// it, but callers MUST NOT write through it after MakeLongLived returns a
// different pointer: only the returned pointer is reachable from future
// root tracing, so a write to the old copy is silently lost at the next
// collection.
func (h *Heap) MakeLongLived(p Ptr) Ptr {
	if p >= h.lowestLongLived {
		return p
	}
	n := h.NBytes(p)
	if n == 0 {
		return p
	}
	flags := AllocFlags(0)
	if h.HasFinalizer(p) {
		flags = HasFinalizer
	}
	newPtr, ok := h.Alloc(n, flags, true)
	if !ok {
		return p
	}
	if newPtr <= p {
		h.Free(newPtr)
		return p
	}
	copy(h.Bytes(newPtr), h.Bytes(p))
	return newPtr
}

// NeverFree pins p as a permanent root, appending it to the permanent
// list (allocating a new long-lived page if every existing one is full).
// It reports whether p was a live allocation that got recorded.
func (h *Heap) NeverFree(p Ptr) bool {
	if h.NBytes(p) == 0 {
		return false
	}
	return h.appendPermanent(p)
}
