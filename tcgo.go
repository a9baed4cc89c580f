// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tcgo is a thread-caching, three-tier allocator modeled on
// tcmalloc (and, one level further back, on the allocator described in
// runtime/malloc.go's own header comment, which names tcmalloc as its
// ancestor too). Its two allocation entry points are Allocate and Free,
// matching spec.md §6; Alloc/FreeT (tcgo_generic.go) wrap them and
// ReadStats reports a statistics snapshot. ThreadCache/CentralCache/
// PageCache are the plumbing behind these.
//
// On unix builds memory returned by Allocate is obtained outside the Go
// heap (see internal/vm) and is never scanned or moved by the garbage
// collector; the non-unix fallback in internal/vm uses Go-heap memory.
// Callers that store Go pointers inside it are responsible for keeping
// those pointers alive by some other means — this package does not, and
// the original design it ports does not either.
package tcgo

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/xylaaaaa/tcgo/internal/fatal"
	"github.com/xylaaaaa/tcgo/internal/procpin"
	"github.com/xylaaaaa/tcgo/internal/sizeclass"
	"github.com/xylaaaaa/tcgo/internal/vm"
	"github.com/xylaaaaa/tcgo/threadcache"
)

// registry hands out one threadcache.Cache per scheduler P, the userspace
// stand-in for "one ThreadCache per thread" (see internal/procpin). Reads
// are lock-free in the common case (the atomic.Value load); growth, needed
// only the first time a given P id is seen or after GOMAXPROCS increases,
// takes a mutex.
type registry struct {
	mu    sync.Mutex
	slice atomic.Value // []*threadcache.Cache
}

func (r *registry) get(pid int) *threadcache.Cache {
	if caches, ok := r.slice.Load().([]*threadcache.Cache); ok && pid < len(caches) {
		if c := caches[pid]; c != nil {
			return c
		}
	}
	return r.growAndGet(pid)
}

func (r *registry) growAndGet(pid int) *threadcache.Cache {
	r.mu.Lock()
	defer r.mu.Unlock()

	caches, _ := r.slice.Load().([]*threadcache.Cache)
	if pid < len(caches) && caches[pid] != nil {
		return caches[pid]
	}

	size := procpin.MaxProcs()
	if size <= pid {
		size = pid + 1
	}
	grown := make([]*threadcache.Cache, size)
	copy(grown, caches)
	if grown[pid] == nil {
		grown[pid] = threadcache.New()
	}
	r.slice.Store(grown)
	return grown[pid]
}

var caches registry

// largeAllocs tracks bypass allocations (size > CacheCeiling) by base
// address so Free can hand the exact region back to internal/vm: the
// caller only gives us back (pointer, size), and a partial-page reservation
// from vm.Reserve needs its original byte slice to unmap.
var largeAllocs sync.Map // uintptr -> vm.Region

// Allocate returns a pointer to size bytes. size == 0 is normalized to 1.
// Requests above CacheCeiling bypass the three-tier cache and are served
// directly from internal/vm, standing in for spec.md's "fallback
// large-object path" (an external collaborator the core only needs to
// delegate to, not implement).
func Allocate(size int) (unsafe.Pointer, error) {
	if size <= 0 {
		size = 1
	}
	if !sizeclass.Valid(size) {
		return allocateLarge(size)
	}

	pid := procpin.Pin()
	c := caches.get(pid)
	p, err := c.Allocate(size)
	procpin.Unpin()
	return p, err
}

// Free releases a pointer obtained from Allocate. ptr == nil is a no-op.
// size must equal the size originally passed to Allocate — the allocator
// has no per-object header and recovers the size class this way, per
// spec.md §6.
func Free(ptr unsafe.Pointer, size int) {
	if ptr == nil {
		return
	}
	if size <= 0 {
		size = 1
	}
	if !sizeclass.Valid(size) {
		freeLarge(ptr, size)
		return
	}

	pid := procpin.Pin()
	c := caches.get(pid)
	c.Deallocate(ptr, size)
	procpin.Unpin()
}

func allocateLarge(size int) (unsafe.Pointer, error) {
	pages := (size + sizeclass.PageSize - 1) >> sizeclass.PageShift
	region, err := vm.Reserve(pages)
	if err != nil {
		return nil, fmt.Errorf("tcgo: large allocation of %d bytes: %w", size, err)
	}
	largeAllocs.Store(region.Base, region)
	return unsafe.Pointer(region.Base), nil
}

func freeLarge(ptr unsafe.Pointer, size int) {
	base := uintptr(ptr)
	v, ok := largeAllocs.LoadAndDelete(base)
	if !ok {
		fatal.Throw("tcgo: Free of a pointer never returned by Allocate's large-object path (double free or wrong size)")
	}
	region := v.(vm.Region)
	if err := vm.Release(region); err != nil {
		fatal.Throw("tcgo: releasing large allocation: " + err.Error())
	}
}

// Stats is a coarse, racy-by-design snapshot of process-wide allocator
// state, the analogue of runtime.MemStats for this allocator. It is meant
// for periodic logging/monitoring, not for any correctness decision.
type Stats struct {
	PagesReserved  uint64 // total pages ever obtained from the OS (internal/vm)
	LargeLiveCount int    // number of live large-object bypass allocations
	ActiveCaches   int    // number of per-P ThreadCache instances created so far
}

// ReadStats populates a Stats snapshot.
func ReadStats() Stats {
	var s Stats
	s.PagesReserved = vm.TotalPagesReserved()
	largeAllocs.Range(func(_, _ interface{}) bool {
		s.LargeLiveCount++
		return true
	})
	if slice, ok := caches.slice.Load().([]*threadcache.Cache); ok {
		for _, c := range slice {
			if c != nil {
				s.ActiveCaches++
			}
		}
	}
	return s
}
