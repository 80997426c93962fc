// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*

Package gcheap implements a mark-and-sweep garbage collected heap allocator
for a small managed runtime.

The heap manages a single, statically sized contiguous region of memory
("the pool"), supplied by the caller to Init as a plain []byte. The pool is
carved into fixed size Blocks and an allocation table (ATB) packs four
per-block state codes into every byte. Allocation, free, in-place resize,
size introspection, per-object finalization and a "long lived" allocation
lane are all built directly on top of that table; periodic collection
traces a caller supplied root set (plus a permanent pointer list) and
reclaims anything unreachable.

Heap is the entry point:

	h := gcheap.New(gcheap.Config{BytesPerBlock: 16})
	if err := h.Init(pool); err != nil {
		...
	}
	p, ok := h.Alloc(40, 0, false)
	...
	h.CollectStart()
	h.CollectRoot(roots)
	h.CollectEnd()

The package consumes external collaborators through Config: a
collection-orchestration callback, a finalizer dispatch callback, a fatal
abort hook for use-before-init, and (optionally) an activity sink for
heap-event logging (see package activity). Root enumeration, scheduler
locks and type objects belong to the host runtime and are not part of
this package.

Gcheap is not a compacting collector, has no write barrier, performs no
generational promotion beyond the two-lane start/end placement heuristic,
and scans managed memory conservatively: any machine word that looks like
an in-pool, block-aligned address is treated as a potential pointer.

*/
package gcheap
