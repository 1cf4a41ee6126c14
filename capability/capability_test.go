/*************************************************************************
 * Copyright 2026 Sentryd Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package capability

import "testing"

func TestSetWordPacking(t *testing.T) {
	// bit 0 must only ever touch the low word.
	s := NewSet(0)
	low, high := s.words()
	if low != 1 || high != 0 {
		t.Fatalf("bit 0 packed wrong: low=%x high=%x", low, high)
	}

	// bit 37 (CAP_AUDIT_READ) must land in the high word at offset
	// 37-32=5.
	s = NewSet(37)
	low, high = s.words()
	if low != 0 || high != (1<<5) {
		t.Fatalf("bit 37 packed wrong: low=%x high=%x", low, high)
	}
}

func TestSetRoundTripThroughWords(t *testing.T) {
	want := NewSet(0, 1, 6, 7, 31, 32, 37, 40, 63)
	low, high := want.words()
	got := setFromWords(low, high)
	if len(got) != len(want) {
		t.Fatalf("round trip changed set size: got %d want %d", len(got), len(want))
	}
	for idx := range want {
		if !got.Has(idx) {
			t.Fatalf("round trip lost bit %d", idx)
		}
	}
}

func TestNameUnknownBitTolerated(t *testing.T) {
	// The wire protocol reserves 64 bits even though only ~41 are named
	// today; formatting code must not panic on an unknown-but-in-range bit.
	if _, ok := Name(55); ok {
		t.Fatalf("bit 55 unexpectedly has a name")
	}
	if name, ok := Name(0); !ok || name != "CAP_CHOWN" {
		t.Fatalf("bit 0 should be CAP_CHOWN, got %q ok=%v", name, ok)
	}
}

func TestIndexNameRoundTrip(t *testing.T) {
	for idx, name := range nameByIndex {
		gotIdx, ok := Index(name)
		if !ok || gotIdx != idx {
			t.Fatalf("Index(%q) = %d,%v want %d,true", name, gotIdx, ok, idx)
		}
	}
}
