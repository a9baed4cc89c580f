// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package freelist

import (
	"testing"
	"unsafe"
)

func TestPushPopLIFO(t *testing.T) {
	buf := make([]uintptr, 3)
	var c Chain
	c.Push(unsafe.Pointer(&buf[0]))
	c.Push(unsafe.Pointer(&buf[1]))
	c.Push(unsafe.Pointer(&buf[2]))
	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Len())
	}

	if got := c.Pop(); got != unsafe.Pointer(&buf[2]) {
		t.Fatal("Pop() did not return most recently pushed object")
	}
	if c.Len() != 2 {
		t.Fatalf("Len() after Pop = %d, want 2", c.Len())
	}
}

func TestPopOnEmpty(t *testing.T) {
	var c Chain
	if c.Pop() != nil {
		t.Fatal("Pop() on empty chain should return nil")
	}
}

func TestPushRangePopRange(t *testing.T) {
	buf := make([]uintptr, 5)
	var src Chain
	for i := range buf {
		src.Push(unsafe.Pointer(&buf[i]))
	}

	head, tail, got := src.PopRange(3)
	if got != 3 {
		t.Fatalf("PopRange(3) got = %d, want 3", got)
	}
	if src.Len() != 2 {
		t.Fatalf("src.Len() after PopRange = %d, want 2", src.Len())
	}

	var dst Chain
	dst.PushRange(head, tail, got)
	if dst.Len() != 3 {
		t.Fatalf("dst.Len() after PushRange = %d, want 3", dst.Len())
	}

	// draining dst should yield exactly the 3 spliced objects, terminated.
	n := 0
	for dst.Pop() != nil {
		n++
	}
	if n != 3 {
		t.Fatalf("drained %d objects from dst, want 3", n)
	}
}

func TestPopRangeCapsAtAvailable(t *testing.T) {
	buf := make([]uintptr, 2)
	var c Chain
	c.Push(unsafe.Pointer(&buf[0]))
	c.Push(unsafe.Pointer(&buf[1]))

	_, tail, got := c.PopRange(10)
	if got != 2 {
		t.Fatalf("PopRange(10) got = %d, want 2", got)
	}
	if c.Len() != 0 {
		t.Fatalf("c.Len() = %d, want 0", c.Len())
	}
	if tail == nil {
		t.Fatal("tail should not be nil")
	}
}

func TestPushRangeOfEmptyIsNoop(t *testing.T) {
	var c Chain
	c.PushRange(nil, nil, 0)
	if c.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", c.Len())
	}
}
