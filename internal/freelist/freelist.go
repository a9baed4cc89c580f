// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package freelist implements the intrusive singly-linked free-object
// chain spec.md §3 describes: each free object's first machine word stores
// the next pointer, so the chain costs no separate storage. It backs
// ThreadCache's per-class lists (which also track a high-water mark for the
// slow-start rule) and CentralCache's optional per-class transfer cache.
package freelist

import "unsafe"

func link(p unsafe.Pointer) *unsafe.Pointer {
	return (*unsafe.Pointer)(p)
}

// Chain is a LIFO stack of free objects plus a running count. The zero
// value is an empty chain, ready to use.
type Chain struct {
	head   unsafe.Pointer
	length int
}

// Len returns the number of objects currently on the chain.
func (c *Chain) Len() int { return c.length }

// Empty reports whether the chain has no objects.
func (c *Chain) Empty() bool { return c.head == nil }

// Push pushes one object onto the chain.
func (c *Chain) Push(p unsafe.Pointer) {
	*link(p) = c.head
	c.head = p
	c.length++
}

// Pop removes and returns one object, or nil if the chain is empty.
func (c *Chain) Pop() unsafe.Pointer {
	p := c.head
	if p == nil {
		return nil
	}
	c.head = *link(p)
	c.length--
	p2 := p
	*link(p2) = nil
	return p
}

// PushRange splices an already-linked (head, tail, n) chain onto the front
// of c in O(1), the batch-movement primitive spec.md §3 calls for.
func (c *Chain) PushRange(head, tail unsafe.Pointer, n int) {
	if head == nil {
		return
	}
	*link(tail) = c.head
	c.head = head
	c.length += n
}

// PopRange detaches up to n objects from the front of c and returns them as
// an independent (head, tail, got) chain with the tail's next pointer
// nilled out. got may be less than n if c has fewer objects.
func (c *Chain) PopRange(n int) (head, tail unsafe.Pointer, got int) {
	if n <= 0 || c.head == nil {
		return nil, nil, 0
	}
	head = c.head
	p := head
	got = 1
	for got < n {
		next := *link(p)
		if next == nil {
			break
		}
		p = next
		got++
	}
	tail = p
	c.head = *link(tail)
	*link(tail) = nil
	c.length -= got
	return head, tail, got
}
