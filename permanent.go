// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gcheap

// The permanent list is a linked chain of block-sized pages, each holding
// wordsPerPage Ptr-sized slots: slot 0 is the next page (Nil if this is
// the last), slots 1..wordsPerPage-1 are pinned pointers, Nil meaning
// empty. Pages are themselves ordinary long-lived allocations, so tracing
// the head page (the only one the collector needs as a root) naturally
// walks the rest: every slot, including the "next page" link, is scanned
// as a potential pointer by markSubtree.
func (h *Heap) wordsPerPage() int {
	return h.cfg.BytesPerBlock / wordSize
}

// appendPermanent records p in the permanent list, allocating a new
// long-lived page if every existing one is full. It reports whether the
// pointer was recorded.
func (h *Heap) appendPermanent(p Ptr) bool {
	wpp := h.wordsPerPage()
	for cur := h.permanentHead; cur != Nil; cur = h.ReadWord(cur, 0) {
		for i := 1; i < wpp; i++ {
			if h.ReadWord(cur, i) == Nil {
				h.WriteWord(cur, i, p)
				return true
			}
		}
	}

	page, ok := h.Alloc(h.cfg.BytesPerBlock, 0, true)
	if !ok {
		return false
	}
	h.WriteWord(page, 0, h.permanentHead)
	h.WriteWord(page, 1, p)
	h.permanentHead = page
	return true
}
