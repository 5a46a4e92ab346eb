// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cortex

import (
	"errors"
	"testing"

	"github.com/emer/cortex/dims"
	"github.com/emer/cortex/layermap"
	"github.com/emer/cortex/rnd"
)

func TestSrcKey(t *testing.T) {
	if k := SrcKey(3, -1, 2); k != 3<<16|0xFF<<8|2 {
		t.Errorf("key %x", k)
	}
	if SrcKey(1, 0, -1) == SrcKey(1, -1, 0) {
		t.Error("swapped offsets share a key")
	}
}

func TestDupCache(t *testing.T) {
	dc := NewDupCache(2)
	dc.Add(0, 1)
	dc.Add(0, 1)
	if dc.Len(0) != 2 || !dc.Has(0, 1) || dc.Has(1, 1) {
		t.Fatal("add")
	}
	if dc.Insert(0, 1, 1) {
		t.Error("inserted a present key")
	}
	if !dc.Insert(0, 1, 2) || dc.Len(0) != 2 || !dc.Has(0, 2) {
		t.Error("replace one of two duplicates")
	}
	if !dc.Insert(0, 7, 3) || dc.Len(0) != 3 {
		t.Error("insert with absent old key appends")
	}
	dc.Reset(0)
	if dc.Len(0) != 0 || dc.Has(0, 2) {
		t.Error("reset")
	}
}

func TestTuftGeom(t *testing.T) {
	tg := TuftGeom{DenIdz: 40, SynIdz: 1000, Depth: 2, VSize: 8, USize: 16, Dens: 4, Syns: 8}
	for _, c := range [][5]uint32{{0, 0, 0, 0, 0}, {1, 7, 15, 3, 7}, {1, 2, 5, 1, 4}, {0, 3, 9, 2, 0}} {
		idx := tg.SynIdx(c[0], c[1], c[2], c[3], c[4])
		want := tg.SynIdz + c[0]*128*4*8 + (c[1]*16+c[2])*4*8 + c[3]*8 + c[4]
		if idx != want {
			t.Errorf("SynIdx%v = %d, want %d", c, idx, want)
		}
		slc, v, u, den, syn, err := tg.SynCoord(idx)
		if err != nil {
			t.Fatal(err)
		}
		if [5]uint32{slc, v, u, den, syn} != c {
			t.Errorf("SynCoord(%d) = %v, want %v", idx, [5]uint32{slc, v, u, den, syn}, c)
		}
		di := tg.DenIdx(c[0], c[1], c[2], c[3])
		if tg.DenSynIdz(di) != idx-c[4] {
			t.Errorf("DenSynIdz(%d) = %d, want %d", di, tg.DenSynIdz(di), idx-c[4])
		}
	}
	if _, _, _, _, _, err := tg.SynCoord(tg.SynIdz + tg.NSyns()); !errors.Is(err, dims.ErrBadIndex) {
		t.Errorf("out of range: %v", err)
	}
}

func testAreaMap(t *testing.T) *layermap.AreaMap {
	t.Helper()
	areas := layermap.AreaSchemeList{
		{Name: "v0", VSize: 16, USize: 16, LayerMap: layermap.ThalamicMapName, Eff: []string{"v1"}, External: true},
		{Name: "v1", VSize: 16, USize: 16, LayerMap: layermap.CorticalMapName},
	}
	ams, err := layermap.BuildAreaMaps(layermap.DefaultLayerMaps(), areas)
	if err != nil {
		t.Fatal(err)
	}
	return ams[1]
}

func TestGenSrc(t *testing.T) {
	am := testAreaMap(t)
	li := am.Layer(layermap.IVName)
	ts := &li.Cell.Tufts[0]
	sg, err := NewSynSrcGen(ts, am)
	if err != nil {
		t.Fatal(err)
	}
	in := am.Layer(layermap.AffInName)
	if sl := sg.Slices(); len(sl) != 1 || uint32(sl[0]) != in.SlcRange.Z {
		t.Fatalf("source slices %v, want %v", sl, in.SlcRange)
	}
	reach := int(ts.SrcLyrs[0].SynReach)
	rng := rnd.NewXorShift(5)
	for i := 0; i < 2000; i++ {
		src := sg.GenSrc(rng)
		if uint32(src.Slc) != in.SlcRange.Z {
			t.Fatalf("source slice %d", src.Slc)
		}
		if d := dims.HexDist(int(src.VOfs), int(src.UOfs)); d > reach {
			t.Fatalf("offset (%d, %d) beyond reach %d", src.VOfs, src.UOfs, reach)
		}
		if src.Strength < -3 || src.Strength > 3 {
			t.Fatalf("strength %d", src.Strength)
		}
	}
}

func TestGenSrcUnknownLayer(t *testing.T) {
	am := testAreaMap(t)
	ts := layermap.TuftScheme{DensPerTft: 1, SynsPerDen: 4,
		SrcLyrs: []layermap.TuftSourceLayer{{Name: "vi", SynReach: 1}}}
	if _, err := NewSynSrcGen(&ts, am); !errors.Is(err, layermap.ErrLayerResolution) {
		t.Errorf("unknown layer: %v", err)
	}
}

func TestGenSrcNonspatialStrength(t *testing.T) {
	sd, err := dims.NewNonspatialSlice(64, 64)
	if err != nil {
		t.Fatal(err)
	}
	sg := &SynSrcGen{slcs: []slcSrc{nonspatialSrc(2, sd)}, pool: []int{0}}
	rng := rnd.NewXorShift(3)
	nonzero := 0
	for i := 0; i < 2000; i++ {
		src := sg.GenSrc(rng)
		if src.Slc != 2 || src.VOfs < -32 || src.VOfs >= 32 || src.UOfs < -32 || src.UOfs >= 32 {
			t.Fatalf("source %+v outside the window", src)
		}
		// intensity peaks at (32 + 32) >> 3 at the window center
		if src.Strength < -3*8 || src.Strength > 3*8 {
			t.Fatalf("strength %d", src.Strength)
		}
		if src.Strength != 0 {
			nonzero++
		}
	}
	if nonzero == 0 {
		t.Error("non-spatial sources all grew with zero strength")
	}
}
