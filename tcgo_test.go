// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tcgo

import (
	"sync"
	"testing"
	"unsafe"

	"github.com/xylaaaaa/tcgo/internal/sizeclass"
	"github.com/xylaaaaa/tcgo/pagecache"
)

func TestSmallestClassRoundTrip(t *testing.T) {
	p, err := Allocate(1)
	if err != nil {
		t.Fatalf("Allocate(1): %v", err)
	}
	Free(p, 1)

	p2, err := Allocate(1)
	if err != nil {
		t.Fatalf("Allocate(1): %v", err)
	}
	if p2 != p {
		t.Fatal("expected the just-freed object to come back first (LIFO)")
	}
	Free(p2, 1)
}

func TestSlowStartGrowth(t *testing.T) {
	size := 24
	var got []unsafe.Pointer
	for i := 0; i < 40; i++ {
		p, err := Allocate(size)
		if err != nil {
			t.Fatalf("Allocate: %v", err)
		}
		got = append(got, p)
	}
	for _, p := range got {
		Free(p, size)
	}
}

func TestTwoGoroutinesDisjointClasses(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(2)
	errs := make(chan error, 2)

	run := func(size int) {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			p, err := Allocate(size)
			if err != nil {
				errs <- err
				return
			}
			Free(p, size)
		}
	}
	go run(16)
	go run(512)
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent allocate/free: %v", err)
	}
}

func TestCrossGoroutineFree(t *testing.T) {
	size := 32
	p, err := Allocate(size)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		Free(p, size)
	}()
	<-done

	// the object should be reusable again; this mainly exercises that
	// freeing from a different goroutine/P than the one that allocated it
	// doesn't corrupt shared state (centralcache/pagecache are process-wide).
	p2, err := Allocate(size)
	if err != nil {
		t.Fatalf("Allocate after cross-goroutine free: %v", err)
	}
	Free(p2, size)
}

func TestLargeObjectBypass(t *testing.T) {
	size := sizeclass.CacheCeiling + 1
	before := pagecache.Get().FreeListLen(1)

	p, err := Allocate(size)
	if err != nil {
		t.Fatalf("Allocate(large): %v", err)
	}
	if p == nil {
		t.Fatal("Allocate(large) returned nil")
	}

	after := pagecache.Get().FreeListLen(1)
	if after != before {
		t.Fatalf("large allocation touched PageCache's small-span free list: before=%d after=%d", before, after)
	}

	Free(p, size)
}

func TestFreeOfUnknownLargePointerThrows(t *testing.T) {
	size := sizeclass.CacheCeiling + 1
	junk := make([]byte, size)
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic freeing a pointer never returned by Allocate's large path")
		}
	}()
	Free(unsafe.Pointer(&junk[0]), size)
}

func TestReadStatsReflectsLargeAllocations(t *testing.T) {
	size := sizeclass.CacheCeiling + 1
	before := ReadStats()

	p, err := Allocate(size)
	if err != nil {
		t.Fatalf("Allocate(large): %v", err)
	}
	mid := ReadStats()
	if mid.LargeLiveCount != before.LargeLiveCount+1 {
		t.Fatalf("LargeLiveCount = %d, want %d", mid.LargeLiveCount, before.LargeLiveCount+1)
	}
	if mid.PagesReserved <= before.PagesReserved {
		t.Fatalf("PagesReserved did not increase after a large allocation")
	}

	Free(p, size)
	after := ReadStats()
	if after.LargeLiveCount != before.LargeLiveCount {
		t.Fatalf("LargeLiveCount after Free = %d, want %d", after.LargeLiveCount, before.LargeLiveCount)
	}
}
