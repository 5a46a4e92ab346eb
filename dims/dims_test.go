// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dims

import (
	"errors"
	"testing"
)

func TestHexTileBalance(t *testing.T) {
	scales := []uint32{1, 5, 8, 13, 16, 17, 24, 32, 47, 64}
	for r := 0; r <= 12; r++ {
		for _, vs := range scales {
			for _, us := range scales {
				offs, err := GenSynOffs(r, vs, us)
				if err != nil {
					t.Fatalf("r %d scales %d,%d: %v", r, vs, us, err)
				}
				sv, su := 0, 0
				for _, o := range offs {
					sv += int(o.V)
					su += int(o.U)
				}
				if sv != 0 || su != 0 {
					t.Errorf("r %d scales %d,%d: unbalanced sums %d, %d", r, vs, us, sv, su)
				}
			}
		}
	}
}

func TestHexTileCount(t *testing.T) {
	for r := 0; r <= 10; r++ {
		offs, err := GenSynOffs(r, ScaleOne, ScaleOne)
		if err != nil {
			t.Fatal(err)
		}
		if len(offs) != HexTileCount(r) {
			t.Errorf("r %d: got %d offsets, want %d", r, len(offs), HexTileCount(r))
		}
		for _, o := range offs {
			if HexDist(int(o.V), int(o.U)) > r {
				t.Errorf("r %d: offset %v outside radius", r, o)
			}
		}
	}
}

func TestGenSynOffsRange(t *testing.T) {
	if _, err := GenSynOffs(100, 64, 64); !errors.Is(err, ErrScaleOutOfRange) {
		t.Errorf("expected ErrScaleOutOfRange, got %v", err)
	}
	offs, err := GenSynOffs(4, 8, 8)
	if err != nil {
		t.Fatal(err)
	}
	if len(offs) >= HexTileCount(4) {
		t.Errorf("half scale should merge offsets: %d", len(offs))
	}
}

func TestCalcScale(t *testing.T) {
	tests := []struct {
		src, loc, want uint32
	}{
		{16, 16, 16},
		{32, 16, 32},
		{8, 16, 8},
		{1, 64, 1},
		{256, 16, 255},
	}
	for _, tt := range tests {
		got, err := CalcScale(tt.src, tt.loc)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("CalcScale(%d, %d) = %d, want %d", tt.src, tt.loc, got, tt.want)
		}
	}
	if _, err := CalcScale(257, 16); !errors.Is(err, ErrScaleOutOfRange) {
		t.Errorf("expected ErrScaleOutOfRange, got %v", err)
	}
}

func TestAxnIdxBounds(t *testing.T) {
	sd := NewLocalSlice(16, 16)
	const idz = 512
	for v := uint32(0); v < 16; v++ {
		for u := uint32(0); u < 16; u++ {
			for vo := -3; vo <= 3; vo++ {
				for uo := -3; uo <= 3; uo++ {
					idx, err := sd.AxnIdx(idz, v, u, int8(vo), int8(uo))
					av, au := int(v)+vo, int(u)+uo
					in := av >= 0 && au >= 0 && av < 16 && au < 16
					if in {
						if err != nil {
							t.Fatalf("(%d,%d)+(%d,%d): %v", v, u, vo, uo, err)
						}
						if idx != uint32(idz+av*16+au) {
							t.Errorf("(%d,%d)+(%d,%d): idx %d", v, u, vo, uo, idx)
						}
					} else if !errors.Is(err, ErrAxonOutOfBounds) {
						t.Errorf("(%d,%d)+(%d,%d): expected out of bounds", v, u, vo, uo)
					}
				}
			}
		}
	}
}

func TestAxnIdxScaled(t *testing.T) {
	sd, err := NewSpatialSlice(32, 32, 16, 16)
	if err != nil {
		t.Fatal(err)
	}
	idx, err := sd.AxnIdx(0, 5, 7, 1, -1)
	if err != nil {
		t.Fatal(err)
	}
	if want := uint32(11*32 + 13); idx != want {
		t.Errorf("scaled idx %d, want %d", idx, want)
	}
}

func TestNonspatialSlice(t *testing.T) {
	if _, err := NewNonspatialSlice(7, 8); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("odd size should be rejected: %v", err)
	}
	if _, err := NewNonspatialSlice(256, 8); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("oversize should be rejected: %v", err)
	}
	sd, err := NewNonspatialSlice(8, 10)
	if err != nil {
		t.Fatal(err)
	}
	// every cell sees the same window
	a, _ := sd.AxnIdx(0, 0, 0, -4, -5)
	b, _ := sd.AxnIdx(0, 100, 3, -4, -5)
	if a != 0 || b != 0 {
		t.Errorf("non-spatial origin mismatch: %d %d", a, b)
	}
	if _, err := sd.AxnIdx(0, 0, 0, 4, 0); !errors.Is(err, ErrAxonOutOfBounds) {
		t.Errorf("offset v/2 should be out of bounds: %v", err)
	}
}

func TestCellIdxRoundTrip(t *testing.T) {
	cd, err := NewCorticalDims(3, 5, 7)
	if err != nil {
		t.Fatal(err)
	}
	for i := uint32(0); i < cd.Cells(); i++ {
		s, v, u, err := cd.CellCoord(i)
		if err != nil {
			t.Fatal(err)
		}
		j, err := cd.CellIdx(s, v, u)
		if err != nil || j != i {
			t.Errorf("round trip %d -> (%d,%d,%d) -> %d (%v)", i, s, v, u, j, err)
		}
	}
	if _, err := NewCorticalDims(0, 1, 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("zero depth accepted")
	}
}

func TestScaleReachSymmetric(t *testing.T) {
	for _, x := range []int32{SynReachMin, SynReachMax} {
		r, err := scaleReach(x, ScaleOne)
		if err != nil || int32(r) != x {
			t.Errorf("reach %d: got %d, %v", x, r, err)
		}
		if nr, err := scaleReach(-x, ScaleOne); err != nil || nr != -r {
			t.Errorf("reach %d: negation gave %d, %v", -x, nr, err)
		}
	}
	for _, x := range []int32{-128, 128} {
		if _, err := scaleReach(x, ScaleOne); !errors.Is(err, ErrScaleOutOfRange) {
			t.Errorf("reach %d accepted: %v", x, err)
		}
	}
	// 64 at double scale lands on 128
	if _, err := scaleReach(-64, 2*ScaleOne); !errors.Is(err, ErrScaleOutOfRange) {
		t.Errorf("scaled reach -128 accepted: %v", err)
	}
}
