// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gcheap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeLayoutPartitionsWithoutOverlap(t *testing.T) {
	buf := make([]byte, 4096)
	l, err := computeLayout(buf, 16, false)
	require.NoError(t, err)

	assert.Greater(t, l.atb.numBlocks(), 0)
	assert.Equal(t, l.atb.numBlocks()*16, len(l.pool))
	assert.Nil(t, l.ftb)

	// The pool must abut the end of buf and never overlap the ATB.
	poolStart := len(buf) - len(l.pool)
	assert.GreaterOrEqual(t, poolStart, len(l.atb))
}

func TestComputeLayoutWithFinalizerTable(t *testing.T) {
	buf := make([]byte, 4096)
	l, err := computeLayout(buf, 16, true)
	require.NoError(t, err)

	require.NotNil(t, l.ftb)
	wantFTBLen := (l.atb.numBlocks() + blocksPerFTB - 1) / blocksPerFTB
	assert.Equal(t, wantFTBLen, len(l.ftb))

	poolStart := len(buf) - len(l.pool)
	assert.GreaterOrEqual(t, poolStart, len(l.atb)+len(l.ftb))
}

func TestComputeLayoutTooSmall(t *testing.T) {
	_, err := computeLayout(make([]byte, 1), 16, false)
	var tooSmall *ErrHeapTooSmall
	assert.ErrorAs(t, err, &tooSmall)
}
