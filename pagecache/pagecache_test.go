// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pagecache

import (
	"testing"

	"github.com/xylaaaaa/tcgo/internal/sizeclass"
)

func TestAcquireGrowsFromVM(t *testing.T) {
	h := &PageCache{}
	s, err := h.AcquireSpan(2)
	if err != nil {
		t.Fatalf("AcquireSpan(2): %v", err)
	}
	if s.PageCount != 2 || !s.InUse {
		t.Fatalf("got span %+v, want PageCount=2 InUse=true", s)
	}
	if got := h.Lookup(s.PageID); got != s {
		t.Fatal("Lookup should find the freshly acquired span by its first page")
	}
	if got := h.Lookup(s.PageID + 1); got != s {
		t.Fatal("Lookup should find the span by its second page too")
	}

	// growing should have left the remainder (maxSpanPages-1-2 pages) on the
	// free list for that exact page count.
	if got := h.FreeListLen(maxSpanPages - 1 - 2); got != 1 {
		t.Fatalf("FreeListLen(remainder) = %d, want 1", got)
	}
}

func TestAcquireSplitsExistingSpan(t *testing.T) {
	h := &PageCache{}
	big, err := h.AcquireSpan(maxSpanPages - 1)
	if err != nil {
		t.Fatalf("AcquireSpan(max-1): %v", err)
	}
	big.UseCount = 0
	h.ReleaseSpan(big) // back on the free list, now splittable

	small, err := h.AcquireSpan(3)
	if err != nil {
		t.Fatalf("AcquireSpan(3): %v", err)
	}
	if small.PageCount != 3 {
		t.Fatalf("PageCount = %d, want 3", small.PageCount)
	}
	if got := h.FreeListLen(maxSpanPages - 1 - 3); got != 1 {
		t.Fatalf("FreeListLen(remainder after split) = %d, want 1", got)
	}
}

func TestReleaseCoalescesAdjacentSpans(t *testing.T) {
	h := &PageCache{}
	a, err := h.AcquireSpan(1)
	if err != nil {
		t.Fatal(err)
	}
	b, err := h.AcquireSpan(1)
	if err != nil {
		t.Fatal(err)
	}
	c, err := h.AcquireSpan(1)
	if err != nil {
		t.Fatal(err)
	}

	// a, b, c are consecutive single pages carved from the same grown region.
	if b.PageID != a.PageID+1 || c.PageID != b.PageID+1 {
		t.Fatalf("expected consecutive page ids, got %d %d %d", a.PageID, b.PageID, c.PageID)
	}

	a.UseCount, b.UseCount, c.UseCount = 0, 0, 0
	h.ReleaseSpan(b)
	h.ReleaseSpan(a)
	h.ReleaseSpan(c)

	// c's forward neighbor is the free remainder of the grown region, so the
	// three pages merge with it back into one maxSpanPages-1 page span.
	merged := h.Lookup(a.PageID)
	if merged == nil {
		t.Fatal("Lookup after releasing all three should find the merged span")
	}
	if merged.PageCount != maxSpanPages-1 {
		t.Fatalf("merged.PageCount = %d, want %d", merged.PageCount, maxSpanPages-1)
	}
	if merged.InUse {
		t.Fatal("merged span should be free")
	}
	if h.Lookup(b.PageID) != merged {
		t.Fatal("every page in the merged run should map back to the same span")
	}
}

func TestReleaseSpanWithNonzeroUseCountPanics(t *testing.T) {
	h := &PageCache{}
	s, err := h.AcquireSpan(1)
	if err != nil {
		t.Fatal(err)
	}
	s.UseCount = 1
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic releasing a span with nonzero UseCount")
		}
	}()
	h.ReleaseSpan(s)
}

func TestAcquireSpanOutOfRange(t *testing.T) {
	h := &PageCache{}
	if _, err := h.AcquireSpan(0); err == nil {
		t.Fatal("AcquireSpan(0) should error")
	}
	if _, err := h.AcquireSpan(sizeclass.MaxSpanPages); err == nil {
		t.Fatal("AcquireSpan(MaxSpanPages) should error (spans top out at MaxSpanPages-1)")
	}
}
