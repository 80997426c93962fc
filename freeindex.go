// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gcheap

import "github.com/cznic/mathutil"

// freeIndex holds hints used to keep alloc's linear ATB scan fast. Both
// fields are safe to be conservative (a scan will simply redo work it
// didn't need to) but must never be tight in the wrong direction, or a
// genuinely free run could be skipped.
//
//   - firstFree[k] is an ATB byte index below which no free run of
//     k+1 blocks exists; the forward scan starts at it, inclusive.
//   - lastFree is an ATB byte index above which no free block exists;
//     the reverse scan starts at it, inclusive.
type freeIndex struct {
	firstFree []int
	lastFree  int
}

func newFreeIndex(atbIndices, atbLen int) freeIndex {
	return freeIndex{
		firstFree: make([]int, atbIndices),
		lastFree:  atbLen - 1,
	}
}

// reset restores both hints to their most pessimistic state: every bucket
// starts scanning from the front, and the reverse scan starts from the
// very last ATB byte. This is the only correct state after a sweep, since
// free space is then distributed arbitrarily.
func (fi *freeIndex) reset(atbLen int) {
	for i := range fi.firstFree {
		fi.firstFree[i] = 0
	}
	fi.lastFree = atbLen - 1
}

// bucket clamps nBlocks into the range of configured first-free buckets.
func (fi *freeIndex) bucket(nBlocks int) int {
	return mathutil.Min(nBlocks, len(fi.firstFree)) - 1
}

// noteFreedShort tightens the short-lived hints after a block range
// starting at atbByte, covering nBlocks blocks, becomes free (via Free or
// a Realloc shrink).
func (fi *freeIndex) noteFreedShort(atbByte, nBlocks int) {
	b := fi.bucket(nBlocks)
	if atbByte < fi.firstFree[b] {
		fi.firstFree[b] = atbByte
	}
	if atbByte > fi.lastFree {
		fi.lastFree = atbByte
	}
}
