// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package diag builds a pprof-compatible occupancy profile of the live
// allocator state, grouped by size class, so `go tool pprof` can visualize
// where pages are going. This is grounded in the retrieved golang-debug/gocore
// tool, which walks a live (or core-dumped) Go heap's own mheap/mspan
// metadata and turns it into a reportable statistic tree; here the
// equivalent walk is over this module's own PageCache free lists instead
// of another process's heap.
package diag

import (
	"fmt"
	"io"
	"time"

	"github.com/google/pprof/profile"

	"github.com/xylaaaaa/tcgo/internal/sizeclass"
	"github.com/xylaaaaa/tcgo/pagecache"
)

// ClassOccupancy is one size class's contribution to a profile sample.
type ClassOccupancy struct {
	Index       int
	AlignedSize int
	FreeSpans   int // spans of PagesPerFetch(AlignedSize) pages sitting free in PageCache
}

// Snapshot captures PageCache's free-list lengths for every class's
// natural span size. It is O(NumClasses) and takes PageCache's lock once
// per class; call it from diagnostics code, never from an allocate/free
// hot path.
func Snapshot() []ClassOccupancy {
	pc := pagecache.Get()
	out := make([]ClassOccupancy, 0, sizeclass.NumClasses)
	for i := 0; i < sizeclass.NumClasses; i++ {
		a := sizeclass.AlignedSize(i)
		pages := sizeclass.PagesPerFetch(a)
		out = append(out, ClassOccupancy{
			Index:       i,
			AlignedSize: a,
			FreeSpans:   pc.FreeListLen(pages),
		})
	}
	return out
}

// WriteProfile encodes a Snapshot as a gzip-compressed pprof profile with
// one sample (free_spans, free_bytes) per non-empty size class, writable
// straight to a file that `go tool pprof` can open.
func WriteProfile(w io.Writer, snap []ClassOccupancy) error {
	p := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "free_spans", Unit: "count"},
			{Type: "free_bytes", Unit: "bytes"},
		},
		TimeNanos: time.Now().UnixNano(),
	}

	locByClass := make(map[int]*profile.Location, len(snap))
	var nextID uint64 = 1
	for _, c := range snap {
		if c.FreeSpans == 0 {
			continue
		}
		fn := &profile.Function{
			ID:   nextID,
			Name: fmt.Sprintf("size_class_%d[%dB]", c.Index, c.AlignedSize),
		}
		loc := &profile.Location{
			ID:   nextID,
			Line: []profile.Line{{Function: fn}},
		}
		p.Function = append(p.Function, fn)
		p.Location = append(p.Location, loc)
		locByClass[c.Index] = loc
		nextID++

		freeBytes := int64(c.FreeSpans) * int64(sizeclass.PagesPerFetch(c.AlignedSize)) * sizeclass.PageSize
		p.Sample = append(p.Sample, &profile.Sample{
			Location: []*profile.Location{loc},
			Value:    []int64{int64(c.FreeSpans), freeBytes},
		})
	}

	return p.Write(w)
}
