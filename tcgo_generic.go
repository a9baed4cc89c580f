// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tcgo

import (
	"fmt"
	"unsafe"
)

// Alloc is a generic convenience wrapper over Allocate, computing the
// object's size automatically. It mirrors AllocateRaw<T> from the original
// C++ project's AllocatorWrapper.hpp — a façade over the two core entry
// points, not part of the core itself. The returned memory is zeroed only
// on the large-object bypass path (internal/vm always zero-fills); cached
// allocations are not, matching Allocate's own contract.
func Alloc[T any]() (*T, error) {
	var zero T
	size := int(unsafe.Sizeof(zero))
	if size == 0 {
		size = 1
	}
	p, err := Allocate(size)
	if err != nil {
		return nil, fmt.Errorf("tcgo: Alloc[%T]: %w", zero, err)
	}
	return (*T)(p), nil
}

// FreeT releases a pointer obtained from Alloc[T]. p == nil is a no-op.
func FreeT[T any](p *T) {
	if p == nil {
		return
	}
	var zero T
	size := int(unsafe.Sizeof(zero))
	if size == 0 {
		size = 1
	}
	Free(unsafe.Pointer(p), size)
}
