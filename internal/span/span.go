// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package span defines the Span record PageCache owns and CentralCache
// slices, the circular doubly-linked SpanList it lives on, and the
// intrusive free-object stack carved out of a span's backing pages.
//
// This mirrors runtime's mspan/mSpanList split (mheap.go), minus the parts
// that only make sense in a garbage-collected heap: no GC bitmaps, no sweep
// generation, no specials. A Span here only ever tracks page range, list
// links, and its own carved free chain.
package span

import (
	"unsafe"

	"github.com/xylaaaaa/tcgo/internal/sizeclass"
)

// Span is a contiguous run of pages treated as one allocation unit.
type Span struct {
	PageID    uintptr // first page number in the run
	PageCount int     // number of pages in the run

	prev, next *Span // list links; nil when not on any list

	Free     unsafe.Pointer // head of the intrusive free-object chain
	UseCount int            // objects currently lent out of this span

	InUse      bool // owned by a CentralCache list (true) or PageCache free list (false)
	ObjectSize int  // aligned object size spans are carved into; 0 when unsliced

	Base uintptr // address of the span's first page; set once, never moves
}

// Link returns the free-chain next-pointer stored in the first word of the
// object at p. This is the same trick as runtime's gclinkptr: the object's
// own first machine word holds the link while it is free.
func Link(p unsafe.Pointer) *unsafe.Pointer {
	return (*unsafe.Pointer)(p)
}

// PushFree pushes one free object onto the span's chain.
func (s *Span) PushFree(p unsafe.Pointer) {
	*Link(p) = s.Free
	s.Free = p
}

// PopFree pops one free object from the span's chain, or returns nil if empty.
func (s *Span) PopFree() unsafe.Pointer {
	p := s.Free
	if p == nil {
		return nil
	}
	s.Free = *Link(p)
	return p
}

// PopFreeRange detaches up to n objects from the front of the span's free
// chain and returns them as an independent (head, tail, got) chain with the
// tail's next pointer nilled out, the contract CentralCache.FetchBatch uses
// to hand a batch to a ThreadCache. It walks the chain, so it is O(n).
func (s *Span) PopFreeRange(n int) (head, tail unsafe.Pointer, got int) {
	if n <= 0 || s.Free == nil {
		return nil, nil, 0
	}
	head = s.Free
	p := head
	got = 1
	for got < n {
		next := *Link(p)
		if next == nil {
			break
		}
		p = next
		got++
	}
	tail = p
	s.Free = *Link(tail)
	*Link(tail) = nil
	return head, tail, got
}

// CountFree walks the free chain and returns its length. O(n); intended for
// tests/diagnostics only — the hot path never needs an exact count, only
// "non-empty or not".
func (s *Span) CountFree() int {
	n := 0
	for p := s.Free; p != nil; p = *Link(p) {
		n++
	}
	return n
}

// End returns the address one past the span's last page.
func (s *Span) End() uintptr {
	return s.Base + uintptr(s.PageCount)<<sizeclass.PageShift
}

// List is a circular doubly-linked list of spans with a sentinel header,
// matching runtime's mSpanList: push-front, pop-front, iterate, erase, all
// O(1) except iteration.
type List struct {
	head Span // sentinel; head.next is the first element, head.prev the last
}

// Init must be called before first use. A zero List is not ready for use:
// its sentinel's prev/next are nil until Init points them at the sentinel.
func (l *List) Init() {
	l.head.next = &l.head
	l.head.prev = &l.head
}

// Empty reports whether the list has no elements.
func (l *List) Empty() bool {
	return l.head.next == &l.head
}

// PushFront inserts s at the front of the list.
func (l *List) PushFront(s *Span) {
	if s.next != nil || s.prev != nil {
		panic("span: PushFront of span already on a list")
	}
	s.next = l.head.next
	s.prev = &l.head
	s.next.prev = s
	l.head.next = s
}

// PopFront removes and returns the front element, or nil if the list is empty.
func (l *List) PopFront() *Span {
	if l.Empty() {
		return nil
	}
	s := l.head.next
	l.Remove(s)
	return s
}

// Remove unlinks s from whatever list it is on. s must currently be linked.
func (l *List) Remove(s *Span) {
	if s.prev == nil || s.next == nil {
		panic("span: Remove of unlinked span")
	}
	s.prev.next = s.next
	s.next.prev = s.prev
	s.prev = nil
	s.next = nil
}

// Each calls fn for every span on the list, front to back. fn must not
// mutate the list.
func (l *List) Each(fn func(*Span)) {
	for s := l.head.next; s != &l.head; s = s.next {
		fn(s)
	}
}

// Len counts the elements on the list. O(n); intended for tests/diagnostics.
func (l *List) Len() int {
	n := 0
	l.Each(func(*Span) { n++ })
	return n
}
