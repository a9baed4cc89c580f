// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !unix

package vm

// reserve backs non-unix platforms (notably Windows, whose primitive is
// VirtualAlloc(..., MEM_COMMIT|MEM_RESERVE, PAGE_READWRITE) per spec.md §6)
// with plain Go-heap memory. It is page-aligned by over-allocating and
// trimming, and is zero-filled because make() always zeroes. The tradeoff:
// this memory is visible to the Go GC as an ordinary byte slice, unlike the
// unix mmap path, so it is kept alive for the process lifetime by the
// pinned slice header below — acceptable since the core never releases
// pages to the OS anyway.
var pinned [][]byte

func reserve(pages int) (Region, error) {
	n := pages * PageSize
	raw := make([]byte, n+PageSize)
	base := uintptr(0)
	for i := range raw {
		if addrOf(raw, i)%PageSize == 0 {
			base = addrOf(raw, i)
			raw = raw[i : i+n]
			break
		}
	}
	pinned = append(pinned, raw)
	recordReserve(pages)
	return Region{Base: base, Bytes: raw}, nil
}

func release(Region) error {
	// No OS-level release on this fallback path. The backing slice stays
	// referenced from pinned, so the Go GC does not reclaim it either.
	return nil
}

func addrOf(b []byte, i int) uintptr {
	return byteSliceBase(b[i : i+1])
}
