// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gcheap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	assert.Contains(t, (&ErrINVAL{Name: "Heap.Free: bad pointer", Arg: Ptr(7)}).Error(), "bad pointer")
	assert.Contains(t, (&ErrPERM{Name: "already initialized"}).Error(), "already initialized")
	assert.Contains(t, (&ErrHeapTooSmall{BufLen: 3}).Error(), "3 bytes")
}
