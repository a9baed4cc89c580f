// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package centralcache implements the process-wide CentralCache singleton:
// spec.md §4.3. It owns one SpanList per size class, slices raw spans
// obtained from pagecache into object-sized free chains on demand, and
// lends/reclaims batches of objects to/from ThreadCaches.
//
// This generalizes runtime's mcentral (mcentral.go) from its GC-sweep-aware
// partial/full/swept/unswept four-way split down to the single span list
// spec.md calls for — there is no GC here, so there is nothing to sweep.
package centralcache

import (
	"fmt"
	"unsafe"

	"sync"

	"github.com/xylaaaaa/tcgo/internal/fatal"
	"github.com/xylaaaaa/tcgo/internal/freelist"
	"github.com/xylaaaaa/tcgo/internal/sizeclass"
	"github.com/xylaaaaa/tcgo/internal/span"
	"github.com/xylaaaaa/tcgo/internal/tracing"
	"github.com/xylaaaaa/tcgo/pagecache"
)

type classState struct {
	mu    sync.Mutex // central_mtx[I]
	spans span.List
	ready bool

	transferMu sync.Mutex // transfer_mtx[I]
	transfer   freelist.Chain
}

func (c *classState) lazyInit() {
	if !c.ready {
		c.spans.Init()
		c.ready = true
	}
}

// CentralCache is the process-wide singleton. Use Get.
type CentralCache struct {
	classes [sizeclass.NumClasses]classState
	pages   *pagecache.PageCache
}

var (
	globalOnce sync.Once
	global     *CentralCache
)

// Get returns the process-wide CentralCache singleton, lazily binding it to
// the process-wide PageCache on first use.
func Get() *CentralCache {
	globalOnce.Do(func() {
		global = &CentralCache{pages: pagecache.Get()}
	})
	return global
}

// FetchBatch produces up to want objects of aligned size A at class index
// i, draining the optional transfer cache first (§4.4.d) and falling back
// to the class's span list, growing it from PageCache if every span on the
// list is fully lent out.
func (c *CentralCache) FetchBatch(i, alignedSize, want int) (head, tail unsafe.Pointer, got int, err error) {
	cls := &c.classes[i]

	if h, t, n := c.drainTransfer(cls, want); n > 0 {
		head, tail, got = h, t, n
		if got >= want {
			return head, tail, got, nil
		}
	}

	cls.mu.Lock()
	cls.lazyInit()
	for {
		var found *span.Span
		cls.spans.Each(func(s *span.Span) {
			if found == nil && s.Free != nil {
				found = s
			}
		})
		if found != nil {
			h, t, n := found.PopFreeRange(want - got)
			found.UseCount += n
			cls.mu.Unlock()
			head, tail, got = spliceChain(head, tail, got, h, t, n)
			return head, tail, got, nil
		}

		cls.mu.Unlock()
		s, err := c.growLocked(i, alignedSize)
		if err != nil {
			if got > 0 {
				return head, tail, got, nil
			}
			return nil, nil, 0, err
		}
		cls.mu.Lock()
		cls.spans.PushFront(s)
		// loop retries the scan with the new span installed.
	}
}

// drainTransfer takes up to want objects from the class's transfer cache.
func (c *CentralCache) drainTransfer(cls *classState, want int) (head, tail unsafe.Pointer, got int) {
	cls.transferMu.Lock()
	defer cls.transferMu.Unlock()
	return cls.transfer.PopRange(want)
}

func spliceChain(head, tail unsafe.Pointer, got int, h, t unsafe.Pointer, n int) (unsafe.Pointer, unsafe.Pointer, int) {
	if h == nil {
		return head, tail, got
	}
	if head == nil {
		return h, t, n
	}
	*span.Link(tail) = h
	return head, t, got + n
}

// growLocked allocates a fresh span from PageCache and carves it into a
// free chain of alignedSize objects. Called with cls.mu NOT held (FetchBatch
// drops central_mtx[i] before taking page_mtx, per spec.md §4.3's lock
// ordering: central slot -> page cache, with the central release strictly
// before the page cache acquire).
func (c *CentralCache) growLocked(i, alignedSize int) (*span.Span, error) {
	pages := sizeclass.PagesPerFetch(alignedSize)
	s, err := c.pages.AcquireSpan(pages)
	if err != nil {
		return nil, fmt.Errorf("centralcache: class %d: %w", i, err)
	}
	carve(s, alignedSize)
	tracing.CentralCacheLog.Printf("class=%d grew span pages=%d object_size=%d", i, pages, alignedSize)
	return s, nil
}

// carve links the span's backing pages into a chain of alignedSize objects.
// The span is not yet published to any list, so no lock is needed.
func carve(s *span.Span, alignedSize int) {
	s.ObjectSize = alignedSize
	s.Free = nil
	base := s.Base
	end := s.End()
	for off := base; off+uintptr(alignedSize) <= end; off += uintptr(alignedSize) {
		s.PushFree(unsafe.Pointer(off))
	}
}

// ReleaseBatch returns a chain of n objects of aligned size A at class i
// back to the central cache, skimming some into the transfer cache first
// and returning fully-drained spans to PageCache.
func (c *CentralCache) ReleaseBatch(i, alignedSize int, head unsafe.Pointer, n int) {
	cls := &c.classes[i]

	head, n = c.fillTransfer(cls, alignedSize, head, n)
	if n == 0 {
		return
	}

	cls.mu.Lock()
	cls.lazyInit()
	p := head
	for n > 0 {
		next := *span.Link(p)
		owner := c.pages.Lookup(pageIDOf(p))
		if owner == nil {
			fatal.Throw("centralcache: ReleaseBatch: no span owns freed pointer (double free or corrupt pointer)")
		}
		owner.PushFree(p)
		owner.UseCount--
		if owner.UseCount < 0 {
			fatal.Throw("centralcache: ReleaseBatch: use_count underflow")
		}
		if owner.UseCount == 0 {
			cls.spans.Remove(owner)
			owner.Free = nil
			owner.ObjectSize = 0
			cls.mu.Unlock()
			c.pages.ReleaseSpan(owner)
			cls.mu.Lock()
		}
		p = next
		n--
	}
	cls.mu.Unlock()
}

// fillTransfer pushes as many of the n objects as fit into the transfer
// cache's remaining capacity, and returns the (possibly shorter) remaining
// chain that still needs to reach the span lists.
func (c *CentralCache) fillTransfer(cls *classState, alignedSize int, head unsafe.Pointer, n int) (unsafe.Pointer, int) {
	cap := sizeclass.TransferCap(alignedSize)
	cls.transferMu.Lock()
	room := cap - cls.transfer.Len()
	if room <= 0 {
		cls.transferMu.Unlock()
		return head, n
	}
	take := room
	if take > n {
		take = n
	}
	p := head
	for i := 0; i < take; i++ {
		next := *span.Link(p)
		cls.transfer.Push(p)
		p = next
	}
	cls.transferMu.Unlock()
	return p, n - take
}

func pageIDOf(p unsafe.Pointer) uintptr {
	return uintptr(p) >> sizeclass.PageShift
}
