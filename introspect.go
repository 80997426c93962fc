// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gcheap

import (
	"fmt"
	"strings"
)

// dumpRowBlocks is the line width, in blocks, used by DumpAllocTable.
const dumpRowBlocks = 64

// Info summarizes the current occupancy of a heap, in bytes unless noted
// otherwise. It is computed by a single linear scan of the allocation
// table, so it is cheap enough to call after every collection but not
// meant for a hot allocation path.
type Info struct {
	Total       int // total pool size
	Used        int // bytes held by live HEAD+TAIL runs
	Free        int // bytes in FREE blocks
	NumBlocks   int // Total / BytesPerBlock
	MaxBlock    int // size, in bytes, of the largest single allocation
	MaxFree     int // size, in bytes, of the largest contiguous free run
	NumOneBlock int // count of allocations exactly one block long
	NumTwoBlock int // count of allocations exactly two blocks long
}

// Info reports the heap's current occupancy.
func (h *Heap) Info() Info {
	h.gate.enter()
	defer h.gate.exit()
	return h.infoLocked()
}

// infoLocked is Info's body, callable from code that already holds the
// gate (collection reporting) without re-entering the mutex.
func (h *Heap) infoLocked() Info {
	bpb := h.cfg.BytesPerBlock
	numBlocks := h.l.atb.numBlocks()

	info := Info{
		Total:     len(h.l.pool),
		NumBlocks: numBlocks,
	}

	freeRun := 0
	for block := 0; block < numBlocks; block++ {
		switch h.l.atb.get(block) {
		case stateFree:
			info.Free += bpb
			freeRun++
			if freeRun*bpb > info.MaxFree {
				info.MaxFree = freeRun * bpb
			}
		case stateHead, stateMark:
			freeRun = 0
			n := 1
			for block+n < numBlocks && h.l.atb.get(block+n) == stateTail {
				n++
			}
			used := n * bpb
			info.Used += used
			if used > info.MaxBlock {
				info.MaxBlock = used
			}
			switch n {
			case 1:
				info.NumOneBlock++
			case 2:
				info.NumTwoBlock++
			}
		case stateTail:
			freeRun = 0
		}
	}
	return info
}

// DumpAllocTable renders the allocation table one character per block -
// '.' for FREE, 'h' for HEAD, 't' for TAIL, 'm' for MARK - broken into
// dumpRowBlocks-wide lines, useful for debugging layout and fragmentation
// by eye. Consecutive all-free lines are collapsed into a single line
// noting the repeat count, since a heap with any real amount of free
// space would otherwise drown the interesting rows in a wall of dots. It
// is not meant to be parsed.
func (h *Heap) DumpAllocTable() string {
	h.gate.enter()
	defer h.gate.exit()

	numBlocks := h.l.atb.numBlocks()
	var lines []string
	var row strings.Builder
	for block := 0; block < numBlocks; block++ {
		switch h.l.atb.get(block) {
		case stateFree:
			row.WriteByte('.')
		case stateHead:
			row.WriteByte('h')
		case stateTail:
			row.WriteByte('t')
		case stateMark:
			row.WriteByte('m')
		}
		if row.Len() == dumpRowBlocks || block == numBlocks-1 {
			lines = append(lines, row.String())
			row.Reset()
		}
	}

	var sb strings.Builder
	for i := 0; i < len(lines); {
		line := lines[i]
		if !isAllFreeLine(line) {
			sb.WriteString(line)
			sb.WriteByte('\n')
			i++
			continue
		}
		j := i + 1
		for j < len(lines) && lines[j] == line {
			j++
		}
		run := j - i
		if run == 1 {
			sb.WriteString(line)
		} else {
			fmt.Fprintf(&sb, "%s  (x%d identical free rows collapsed)", line, run)
		}
		sb.WriteByte('\n')
		i = j
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// isAllFreeLine reports whether a DumpAllocTable row is entirely FREE.
func isAllFreeLine(line string) bool {
	return strings.Count(line, ".") == len(line)
}
