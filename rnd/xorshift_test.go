// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rnd

import "testing"

func TestXorShiftRepeat(t *testing.T) {
	a := NewXorShift(42)
	b := NewXorShift(42)
	for i := 0; i < 1000; i++ {
		if a.Next() != b.Next() {
			t.Fatalf("sequences diverged at %d", i)
		}
	}
	z := NewXorShift(0)
	if z.State != DefaultSeed {
		t.Errorf("zero seed not replaced: %x", z.State)
	}
}

func TestXorShiftRange(t *testing.T) {
	xs := NewXorShift(7)
	var seen [7]int
	for i := 0; i < 7000; i++ {
		v := xs.Range(-3, 4)
		if v < -3 || v >= 4 {
			t.Fatalf("value out of range: %d", v)
		}
		seen[v+3]++
	}
	for i, n := range seen {
		if n == 0 {
			t.Errorf("value %d never drawn", i-3)
		}
	}
}
