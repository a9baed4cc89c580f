// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vm

import "testing"

func TestReserveIsPageAlignedAndZeroed(t *testing.T) {
	r, err := Reserve(2)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if r.Base%PageSize != 0 {
		t.Fatalf("Base = %#x is not page-aligned", r.Base)
	}
	if len(r.Bytes) != 2*PageSize {
		t.Fatalf("len(Bytes) = %d, want %d", len(r.Bytes), 2*PageSize)
	}
	for i, b := range r.Bytes {
		if b != 0 {
			t.Fatalf("Bytes[%d] = %d, want zero-filled region", i, b)
		}
	}
	if err := Release(r); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

func TestReserveRejectsNonPositive(t *testing.T) {
	if _, err := Reserve(0); err == nil {
		t.Fatal("Reserve(0) should error")
	}
	if _, err := Reserve(-1); err == nil {
		t.Fatal("Reserve(-1) should error")
	}
}

func TestTotalPagesReservedAccumulates(t *testing.T) {
	before := TotalPagesReserved()
	r, err := Reserve(3)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	defer Release(r)
	if got := TotalPagesReserved(); got != before+3 {
		t.Fatalf("TotalPagesReserved() = %d, want %d", got, before+3)
	}
}
