// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command gcheapdemo builds a small pointer-linked chain inside a gcheap
// heap, drops the reference to a prefix of it, runs a collection, and
// prints the allocation table and occupancy before and after.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/rs/zerolog"

	"github.com/cznic/gcheap"
	"github.com/cznic/gcheap/activity"
)

var (
	poolSize = flag.Int("pool", 4096, "pool size in bytes")
	chainLen = flag.Int("n", 24, "length of the pointer chain to allocate")
	keep     = flag.Int("keep", 8, "number of trailing chain nodes to keep reachable")
)

// node is two words: a next pointer and a payload value, both conservatively
// scanned as potential pointers by the collector.
const nodeBytes = 16

func main() {
	flag.Parse()
	log.SetFlags(log.Lshortfile)

	if *keep > *chainLen {
		log.Fatal("-keep must not exceed -n")
	}

	logger := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()

	h := gcheap.New(gcheap.Config{
		BytesPerBlock: 16,
		Activity:      activity.NewZerologSink(logger),
		Abort: func(reason string) {
			log.Fatalf("gcheap abort: %s", reason)
		},
		// No AllocThreshold is set, so Alloc calls this only when it runs
		// out of space, and then it collects nothing; the demo drives
		// collection directly instead.
		Collect: func(h *gcheap.Heap) {},
	})

	buf := make([]byte, *poolSize)
	if err := h.Init(buf); err != nil {
		log.Fatal(err)
	}
	defer h.Deinit()

	var head gcheap.Ptr
	for i := 0; i < *chainLen; i++ {
		p, ok := h.Alloc(nodeBytes, 0, false)
		if !ok {
			log.Fatal("out of memory building chain")
		}
		h.WriteWord(p, 0, head)
		h.WriteWord(p, 1, gcheap.Ptr(i+1))
		head = p
	}

	fmt.Println("before collection:")
	fmt.Println(h.DumpAllocTable())
	fmt.Printf("%+v\n", h.Info())

	root := head
	for i := 0; i < *chainLen-*keep; i++ {
		root = h.ReadWord(root, 0)
	}

	h.CollectStart()
	h.CollectPtr(root)
	h.CollectEnd()

	fmt.Println("after collection:")
	fmt.Println(h.DumpAllocTable())
	fmt.Printf("%+v\n", h.Info())
}
