// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gcheap

// layout is the result of partitioning a raw buffer into an allocation
// table, an optional finalizer table, and the block pool. The pool always
// abuts the end of buf; the ATB always starts at buf[0]. The FTB, if
// present, follows the ATB - there may be a small unused gap between the
// end of the FTB and the start of the pool, which is harmless.
type layout struct {
	atb  atb
	ftb  ftb // nil if finalizers are disabled
	pool []byte
}

// computeLayout solves for the largest ATB byte count A such that
//
//	A*(1 + B/Bf + B*S) <= len(buf)   (finalizers enabled)
//	A*(1 + B*S)         <= len(buf)   (finalizers disabled)
//
// where B = blocksPerATB, Bf = blocksPerFTB and S = bytesPerBlock, then
// places the ATB at the front of buf, the FTB (if enabled) immediately
// after it, and the pool - exactly A*B blocks - abutting the end of buf.
// It fails with ErrHeapTooSmall if the solved A is zero.
func computeLayout(buf []byte, bytesPerBlock int, enableFinalizer bool) (layout, error) {
	total := len(buf)
	const bitsPerByte = 8

	denom := bitsPerByte + bitsPerByte*blocksPerATB*bytesPerBlock
	if enableFinalizer {
		denom += bitsPerByte * blocksPerATB / blocksPerFTB
	}
	atbLen := total * bitsPerByte / denom
	if atbLen <= 0 {
		return layout{}, &ErrHeapTooSmall{BufLen: total}
	}

	poolBlocks := atbLen * blocksPerATB
	poolLen := poolBlocks * bytesPerBlock

	ftbLen := 0
	if enableFinalizer {
		ftbLen = (poolBlocks + blocksPerFTB - 1) / blocksPerFTB
	}

	// The pool abuts the end of buf and is exactly poolLen bytes; the A
	// solved above guarantees poolStart >= atbLen+ftbLen.
	poolStart := total - poolLen

	l := layout{
		atb:  atb(buf[:atbLen]),
		pool: buf[poolStart : poolStart+poolLen],
	}
	if enableFinalizer {
		l.ftb = ftb(buf[atbLen : atbLen+ftbLen])
	}
	return l, nil
}
