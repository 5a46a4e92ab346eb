// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package encode

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/emer/cortex/compute"
	"github.com/emer/cortex/layermap"
	"github.com/emer/cortex/thalamus"
	"github.com/voodooEntity/archivist"
)

func TestMain(m *testing.M) {
	archivist.Init("error", "stdout", "")
	os.Exit(m.Run())
}

func testThalamus(t *testing.T) *thalamus.Thalamus {
	t.Helper()
	areas := layermap.AreaSchemeList{
		{Name: "v0", VSize: 16, USize: 16, LayerMap: layermap.ThalamicMapName, Eff: []string{"v1"}, External: true},
		{Name: "v1", VSize: 16, USize: 16, LayerMap: layermap.CorticalMapName},
	}
	ams, err := layermap.BuildAreaMaps(layermap.DefaultLayerMaps(), areas)
	if err != nil {
		t.Fatal(err)
	}
	dv := compute.NewDevice("test", 2)
	t.Cleanup(dv.Close)
	th, err := thalamus.New(dv, ams)
	if err != nil {
		t.Fatal(err)
	}
	return th
}

// cycle runs the nuclei around an empty cortex.
func cycle(t *testing.T, th *thalamus.Thalamus, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		if err := th.PreCycle(ctx); err != nil {
			t.Fatal(err)
		}
		if err := th.PostCycle(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if err := th.Finish(); err != nil {
		t.Fatal(err)
	}
}

func addProbe(t *testing.T, th *thalamus.Thalamus) *Probe {
	t.Helper()
	pb := NewProbe("probe", "v0", layermap.FFOut)
	if err := th.AddNucleus(pb); err != nil {
		t.Fatal(err)
	}
	return pb
}

func TestStripes(t *testing.T) {
	th := testThalamus(t)
	st := NewStripes("stripes", Pathway{Area: "v0"})
	st.Params.Speed = 4
	if err := th.AddNucleus(st); err != nil {
		t.Fatal(err)
	}
	pb := addProbe(t, th)
	phases := []int{0, 4, 8, 12, 0}
	for i, ph := range phases {
		cycle(t, th, 1)
		fr, fresh := pb.Last()
		if !fresh {
			t.Errorf("tick %d: probe frame not fresh", i)
		}
		for v := 0; v < 16; v++ {
			for u := 0; u < 16; u++ {
				want := uint8(0)
				if ((u+ph)/8)%2 == 0 {
					want = 255
				}
				if fr[v*16+u] != want {
					t.Fatalf("tick %d (%d, %d) = %d, want %d", i, v, u, fr[v*16+u], want)
				}
			}
		}
	}
	if st.Sent() != uint64(len(phases)) || pb.Reads != uint64(len(phases)) {
		t.Errorf("sent %d read %d", st.Sent(), pb.Reads)
	}
}

func TestGaussBlob(t *testing.T) {
	th := testThalamus(t)
	gb := NewGaussBlob("blob", Pathway{Area: "v0"})
	gb.Params.Seed = 3
	gb.Params.Speed = 2
	if err := th.AddNucleus(gb); err != nil {
		t.Fatal(err)
	}
	pb := addProbe(t, th)
	for i := 0; i < 20; i++ {
		pos := gb.Pos
		cycle(t, th, 1)
		fr, _ := pb.Last()
		v, u := int(pos.Y+0.5), int(pos.X+0.5)
		peak := fr[v*16+u]
		if peak < 200 {
			t.Fatalf("tick %d: value %d at blob center (%d, %d)", i, peak, v, u)
		}
		for j, x := range fr {
			if x > peak+1 {
				t.Fatalf("tick %d: value %d at %d above center %d", i, x, j, peak)
			}
		}
		if gb.Pos.X < 0 || gb.Pos.X > 15 || gb.Pos.Y < 0 || gb.Pos.Y > 15 {
			t.Fatalf("tick %d: blob left the area at %v", i, gb.Pos)
		}
	}
}

func testIdx() *IdxFile {
	ix := &IdxFile{Dims: []int{3, 4, 4}, Data: make([]byte, 48)}
	for i := range ix.Data {
		ix.Data[i] = byte(i)
	}
	return ix
}

func TestIdxRoundTrip(t *testing.T) {
	ix := testIdx()
	dir := t.TempDir()
	for _, fn := range []string{"items.idx", "items.idx.gz"} {
		path := filepath.Join(dir, fn)
		var b bytes.Buffer
		if err := WriteIdx(&b, ix); err != nil {
			t.Fatal(err)
		}
		data := b.Bytes()
		if filepath.Ext(fn) == ".gz" {
			var gz bytes.Buffer
			zw := gzip.NewWriter(&gz)
			zw.Write(data)
			zw.Close()
			data = gz.Bytes()
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			t.Fatal(err)
		}
		rd, err := OpenIdx(path)
		if err != nil {
			t.Fatal(err)
		}
		if rd.NItems() != 3 || rd.ItemSize() != 16 || !bytes.Equal(rd.Data, ix.Data) {
			t.Errorf("%s: read %v", fn, rd.Dims)
		}
		it, err := rd.Item(2)
		if err != nil {
			t.Fatal(err)
		}
		if it[0] != 32 || len(it) != 16 {
			t.Errorf("%s: item 2 starts with %d", fn, it[0])
		}
	}
}

func TestIdxFormat(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"magic", []byte{1, 0, 8, 1, 0, 0, 0, 1, 5}},
		{"dtype", []byte{0, 0, 0x0D, 1, 0, 0, 0, 1, 5}},
		{"ndims", []byte{0, 0, 8, 0}},
		{"sizes", []byte{0, 0, 8, 2, 0, 0, 0, 1}},
		{"data", []byte{0, 0, 8, 1, 0, 0, 0, 4, 5, 6}},
		{"empty", nil},
	}
	for _, tt := range tests {
		if _, err := ReadIdx(bytes.NewReader(tt.data)); !errors.Is(err, ErrIdxFormat) {
			t.Errorf("%s: %v", tt.name, err)
		}
	}
	if _, err := testIdx().Item(3); !errors.Is(err, ErrIdxFormat) {
		t.Errorf("item out of range: %v", err)
	}
}

func TestIdxNucleus(t *testing.T) {
	th := testThalamus(t)
	in := NewIdxNucleus("idx", Pathway{Area: "v0"}, testIdx())
	in.Hold = 2
	if err := th.AddNucleus(in); err != nil {
		t.Fatal(err)
	}
	pb := addProbe(t, th)
	for tick, item := range []int{0, 0, 1, 1, 2, 2, 0} {
		cycle(t, th, 1)
		fr, _ := pb.Last()
		// each 4x4 pixel covers a 4x4 block of columns
		for v := 0; v < 16; v++ {
			for u := 0; u < 16; u++ {
				want := byte(item*16 + (v/4)*4 + u/4)
				if fr[v*16+u] != want {
					t.Fatalf("tick %d (%d, %d) = %d, want %d", tick, v, u, fr[v*16+u], want)
				}
			}
		}
	}

	th2 := testThalamus(t)
	bad := NewIdxNucleus("idx", Pathway{Area: "v0"}, &IdxFile{Dims: []int{1, 10}, Data: make([]byte, 10)})
	if err := th2.AddNucleus(bad); !errors.Is(err, thalamus.ErrTractMismatch) {
		t.Errorf("10 values for 256 columns: %v", err)
	}
}

func TestEncoderPathway(t *testing.T) {
	th := testThalamus(t)
	if err := th.AddNucleus(NewStripes("s", Pathway{Area: "v9"})); err == nil {
		t.Error("unknown area accepted")
	}
	st := NewStripes("s", Pathway{Area: "v0"})
	if err := st.PreCycle(context.Background(), th); !errors.Is(err, thalamus.ErrTractMismatch) {
		t.Errorf("send without pathway: %v", err)
	}
}
