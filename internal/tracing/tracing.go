// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tracing records cold-path allocator events (span splits,
// coalesces, grows) to an in-process event log, using golang.org/x/net/trace
// the way gRPC-Go and etcd use it for low-overhead diagnostic logs browsable
// at /debug/events when a program wires up net/http/pprof's mux.
//
// Nothing on ThreadCache's or CentralCache's fast (locked, per-call) path
// touches this package: ThreadCache.Allocate/Deallocate never call it, and
// CentralCache only calls it around a span.grow, never around fetch/release
// of an already-sliced batch.
package tracing

import "golang.org/x/net/trace"

// Log is a single family's event log. The zero value discards events, so a
// caller that never calls Enable gets a no-op tracer rather than a nil
// dereference.
type Log struct {
	el trace.EventLog
}

// Enable starts recording events under the given family/title pair. Safe to
// call more than once; each call opens an independent underlying log and
// the most recent one wins for subsequent Printf/Finish calls on this Log.
func (l *Log) Enable(family, title string) {
	l.el = trace.NewEventLog(family, title)
}

// Printf records one event, formatted the same way as fmt.Sprintf.
func (l *Log) Printf(format string, args ...interface{}) {
	if l.el != nil {
		l.el.Printf(format, args...)
	}
}

// Errorf records one error event.
func (l *Log) Errorf(format string, args ...interface{}) {
	if l.el != nil {
		l.el.Errorf(format, args...)
	}
}

// Finish releases the underlying event log.
func (l *Log) Finish() {
	if l.el != nil {
		l.el.Finish()
		l.el = nil
	}
}

// PageCache and CentralCache share one family each so /debug/events groups
// their events sensibly instead of interleaving every span's lifecycle into
// a single undifferentiated stream.
var (
	PageCacheLog    Log
	CentralCacheLog Log
)

func init() {
	PageCacheLog.Enable("tcgo.pagecache", "span acquire/release/split/coalesce")
	CentralCacheLog.Enable("tcgo.centralcache", "span grow")
}
