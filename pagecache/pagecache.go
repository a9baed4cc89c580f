// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pagecache implements the process-wide PageCache singleton:
// spec.md §4.2. It owns an array of free-span lists indexed by page count,
// allocates page-aligned spans from internal/vm, splits larger spans on
// demand, coalesces adjacent free spans on release, and maintains the
// page-id -> span reverse map via internal/pagemap.
//
// This is the allocator's analogue of runtime's mheap, generalized from a
// GC-bitmap-scanning design to the plain intrusive-free-list one spec.md
// calls for, and stripped of everything that only makes sense with a
// garbage collector behind it (arenas, sweep generations, specials).
package pagecache

import (
	"fmt"
	"sync"

	"github.com/xylaaaaa/tcgo/internal/fatal"
	"github.com/xylaaaaa/tcgo/internal/pagemap"
	"github.com/xylaaaaa/tcgo/internal/sizeclass"
	"github.com/xylaaaaa/tcgo/internal/span"
	"github.com/xylaaaaa/tcgo/internal/tracing"
	"github.com/xylaaaaa/tcgo/internal/vm"
)

const maxSpanPages = sizeclass.MaxSpanPages

// PageCache owns the free-span lists and the page->span reverse map. Use
// Get to obtain the process-wide singleton; the zero value is valid too
// (useful in tests that want an isolated instance instead of sharing global
// state): every method that touches the free lists initializes them lazily
// under page_mtx.
type PageCache struct {
	mu    sync.Mutex // page_mtx: guards free[] and span linkage/splitting/coalescing
	free  [maxSpanPages]span.List
	pmap  pagemap.Map
	ready bool
}

func (h *PageCache) lazyInit() {
	if h.ready {
		return
	}
	for i := range h.free {
		h.free[i].Init()
	}
	h.ready = true
}

var (
	globalOnce sync.Once
	global     *PageCache
)

// Get returns the process-wide PageCache singleton, initializing it on
// first use (spec.md §9: "avoid static-constructor order fragility by
// initializing on first use").
func Get() *PageCache {
	globalOnce.Do(func() {
		global = &PageCache{}
		global.lazyInit()
	})
	return global
}

// Lookup returns the span owning pageID, or nil. It only touches the
// pagemap's own lock, never page_mtx, so CentralCache's free path can call
// it without risking the PageCache<->CentralCache lock-ordering deadlock
// spec.md §5 warns about.
func (h *PageCache) Lookup(pageID uintptr) *span.Span {
	return h.pmap.Lookup(pageID)
}

// AcquireSpan returns a span of exactly k pages, marked in-use, splitting a
// larger free span or mapping fresh OS pages as needed.
func (h *PageCache) AcquireSpan(k int) (*span.Span, error) {
	if k <= 0 || k >= maxSpanPages {
		return nil, fmt.Errorf("pagecache: AcquireSpan: page count %d out of range", k)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lazyInit()
	return h.acquireLocked(k)
}

func (h *PageCache) acquireLocked(k int) (*span.Span, error) {
	if s := h.free[k].PopFront(); s != nil {
		s.InUse = true
		return s, nil
	}

	for j := k + 1; j < maxSpanPages; j++ {
		if h.free[j].Empty() {
			continue
		}
		s := h.free[j].PopFront()
		h.pmap.UnmapSpan(s)

		left := &span.Span{PageID: s.PageID, PageCount: k, Base: s.Base, InUse: true}
		right := &span.Span{
			PageID:    s.PageID + uintptr(k),
			PageCount: j - k,
			Base:      s.Base + uintptr(k)<<sizeclass.PageShift,
			InUse:     false,
		}
		h.free[j-k].PushFront(right)
		h.pmap.MapSpan(left)
		h.pmap.MapSpan(right)
		tracing.PageCacheLog.Printf("split span pages=%d into left=%d right=%d", j, k, j-k)
		return left, nil
	}

	region, err := vm.Reserve(maxSpanPages - 1)
	if err != nil {
		return nil, fmt.Errorf("pagecache: growing heap: %w", err)
	}
	fresh := &span.Span{
		PageID:    region.Base >> sizeclass.PageShift,
		PageCount: maxSpanPages - 1,
		Base:      region.Base,
		InUse:     false,
	}
	h.pmap.MapSpan(fresh)
	h.free[maxSpanPages-1].PushFront(fresh)
	tracing.PageCacheLog.Printf("mapped %d fresh pages at base=%#x", maxSpanPages-1, region.Base)
	return h.acquireLocked(k)
}

// ReleaseSpan returns s to the free lists, coalescing with adjacent free
// neighbors first. s must not be linked on any list and must have
// UseCount == 0; callers (CentralCache) are responsible for unlinking it
// from their own SpanList and zeroing Free/ObjectSize before calling this.
func (h *PageCache) ReleaseSpan(s *span.Span) {
	if s.UseCount != 0 {
		fatal.Throw("pagecache: ReleaseSpan of span with nonzero UseCount")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lazyInit()

	h.pmap.UnmapSpan(s)

	for {
		neighbor := h.pmap.Lookup(s.PageID - 1)
		if neighbor == nil || neighbor.InUse || s.PageCount+neighbor.PageCount > maxSpanPages-1 {
			break
		}
		h.free[neighbor.PageCount].Remove(neighbor)
		h.pmap.UnmapSpan(neighbor)
		s.PageID = neighbor.PageID
		s.Base = neighbor.Base
		s.PageCount += neighbor.PageCount
		tracing.PageCacheLog.Printf("coalesced backward to %d pages", s.PageCount)
	}
	for {
		neighbor := h.pmap.Lookup(s.PageID + uintptr(s.PageCount))
		if neighbor == nil || neighbor.InUse || s.PageCount+neighbor.PageCount > maxSpanPages-1 {
			break
		}
		h.free[neighbor.PageCount].Remove(neighbor)
		h.pmap.UnmapSpan(neighbor)
		s.PageCount += neighbor.PageCount
		tracing.PageCacheLog.Printf("coalesced forward to %d pages", s.PageCount)
	}

	s.InUse = false
	s.ObjectSize = 0
	s.Free = nil
	h.free[s.PageCount].PushFront(s)
	h.pmap.MapSpan(s)
}

// FreeListLen reports how many spans sit in the free list for an exact page
// count, for tests and internal/diag.
func (h *PageCache) FreeListLen(pages int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lazyInit()
	if pages <= 0 || pages >= maxSpanPages {
		return 0
	}
	return h.free[pages].Len()
}
