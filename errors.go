// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gcheap

import "fmt"

// ErrINVAL reports an invalid argument passed to a Heap method.
type ErrINVAL struct {
	Name string
	Arg  interface{}
}

func (e *ErrINVAL) Error() string {
	return fmt.Sprintf("invalid argument: %s (%v)", e.Name, e.Arg)
}

// ErrPERM reports an operation that is not permitted in the heap's current
// state. Heap.Init returns it for a heap that is already initialized; use
// before Init or while the GC lock is held is not reported through it
// (Config.Abort is called, or the operation returns Nil or does nothing).
type ErrPERM struct {
	Name string
}

func (e *ErrPERM) Error() string { return "operation not permitted: " + e.Name }

// ErrHeapTooSmall is returned by Heap.Init when the supplied buffer cannot
// fit even a single ATB byte plus its pool blocks.
type ErrHeapTooSmall struct {
	BufLen int
}

func (e *ErrHeapTooSmall) Error() string {
	return fmt.Sprintf("gcheap: buffer of %d bytes is too small for any block layout", e.BufLen)
}
