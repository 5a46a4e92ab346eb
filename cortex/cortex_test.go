// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cortex

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"github.com/emer/cortex/dims"
	"github.com/emer/cortex/layermap"
	"github.com/emer/cortex/rnd"
	"github.com/emer/cortex/thalamus"
	"github.com/voodooEntity/archivist"
)

func TestMain(m *testing.M) {
	archivist.Init("error", "stdout", "")
	os.Exit(m.Run())
}

// stripesMaps is the default cortical map with a narrower spiny stellate
// tuft: one dendrite of 16 synapses reaching 3 columns.
func stripesMaps() layermap.LayerMapSchemeList {
	lm := layermap.CorticalLayerMap()
	ts := &lm.Layer(layermap.IVName).Cell.Tufts[0]
	ts.SynsPerDen = 16
	ts.SrcLyrs[0].SynReach = 3
	return layermap.LayerMapSchemeList{lm, layermap.ThalamicLayerMap()}
}

// testConfig is a 16x16 external area v0 feeding the cortical area v1.
func testConfig(lms layermap.LayerMapSchemeList, cs CorticalAreaSettings) *Config {
	return &Config{
		LayerMaps: lms,
		Areas: layermap.AreaSchemeList{
			{Name: "v0", VSize: 16, USize: 16, LayerMap: layermap.ThalamicMapName, Eff: []string{"v1"}, External: true},
			{Name: "v1", VSize: 16, USize: 16, LayerMap: layermap.CorticalMapName},
		},
		Settings: map[string]CorticalAreaSettings{"v1": cs},
	}
}

func newTestCortex(t *testing.T, cf *Config, nThreads int) (*Cortex, *thalamus.Sender) {
	t.Helper()
	cx, err := New(cf, nThreads)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { cx.Close() })
	addr, err := cx.Thal.Addr(cf.Areas[0].Name, layermap.FFOut)
	if err != nil {
		t.Fatal(err)
	}
	sd, err := cx.Thal.InputPathway(addr, false)
	if err != nil {
		t.Fatal(err)
	}
	return cx, sd
}

// stripes is 0xFF in every other band of 8 columns along u.
func stripes(vs, us int) []byte {
	fr := make([]byte, vs*us)
	for v := 0; v < vs; v++ {
		for u := 0; u < us; u++ {
			if (u/8)%2 == 0 {
				fr[v*us+u] = 0xFF
			}
		}
	}
	return fr
}

func runTicks(t *testing.T, cx *Cortex, sd *thalamus.Sender, frame []byte, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		if err := sd.Send(ctx, frame); err != nil {
			t.Fatal(err)
		}
		if err := cx.Cycle(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if err := cx.Finish(); err != nil {
		t.Fatal(err)
	}
}

func testArea(t *testing.T, cx *Cortex, name string) *CorticalArea {
	t.Helper()
	ar, err := cx.Area(name)
	if err != nil {
		t.Fatal(err)
	}
	return ar
}

// checkDistinct verifies that every dendrite of every tuft has distinct,
// connected sources drawn from the tuft's source slices.
func checkDistinct(t *testing.T, ar *CorticalArea) {
	t.Helper()
	for _, dl := range ar.DataLayers() {
		tt := dl.Tufts()
		sy := tt.Dens.Syns
		for _, tf := range tt.Tufts {
			slcs := map[uint8]bool{}
			for _, s := range tf.Gen.Slices() {
				slcs[s] = true
			}
			tg := &tf.Geom
			for d := uint32(0); d < tg.NDens(); d++ {
				s0 := tg.DenSynIdz(tg.DenIdz + d)
				keys := map[uint32]bool{}
				for s := s0; s < s0+tg.Syns; s++ {
					slc := sy.SrcSlcIds.Data[s]
					if !slcs[slc] {
						t.Fatalf("%s tuft %d synapse %d: source slice %d not a tuft source", dl.Name(), tf.Idx, s, slc)
					}
					k := SrcKey(slc, sy.SrcColVOffs.Data[s], sy.SrcColUOffs.Data[s])
					if keys[k] {
						t.Fatalf("%s tuft %d dendrite %d: duplicate source %x", dl.Name(), tf.Idx, d, k)
					}
					keys[k] = true
				}
			}
		}
	}
}

func TestStripesActivateColumns(t *testing.T) {
	cx, sd := newTestCortex(t, testConfig(stripesMaps(), CorticalAreaSettings{Seed: 7}), 4)
	ar := testArea(t, cx, "v1")
	runTicks(t, cx, sd, stripes(16, 16), 10)
	if ar.Time.Tick != 10 || cx.Tick != 10 {
		t.Errorf("ticks: area %d cortex %d", ar.Time.Tick, cx.Tick)
	}
	for col, st := range ar.Mcols.States.Data {
		if st == 0 {
			t.Errorf("column %d (v %d u %d) has zero state", col, col/16, col%16)
		}
	}
}

func TestTickDeterminism(t *testing.T) {
	cf := testConfig(stripesMaps(), CorticalAreaSettings{Seed: 11})
	cx1, sd1 := newTestCortex(t, cf, 1)
	cx2, sd2 := newTestCortex(t, cf, 4)
	a1, a2 := testArea(t, cx1, "v1"), testArea(t, cx2, "v1")
	fr := stripes(16, 16)
	for i := 0; i < 20; i++ {
		runTicks(t, cx1, sd1, fr, 1)
		runTicks(t, cx2, sd2, fr, 1)
		for li, dl := range a1.DataLayers() {
			d2 := a2.DataLayers()[li]
			if !bytes.Equal(dl.Soma().States.Data, d2.Soma().States.Data) {
				t.Fatalf("tick %d: %s soma states differ", i, dl.Name())
			}
		}
		if !bytes.Equal(a1.Axons.Axons.Data, a2.Axons.Axons.Data) {
			t.Fatalf("tick %d: axons differ", i)
		}
	}
	for li, dl := range a1.DataLayers() {
		s1, s2 := dl.Tufts().Dens.Syns.Strengths.Data, a2.DataLayers()[li].Tufts().Dens.Syns.Strengths.Data
		for i := range s1 {
			if s1[i] != s2[i] {
				t.Fatalf("%s synapse %d strength %d vs %d", dl.Name(), i, s1[i], s2[i])
			}
		}
	}
}

func TestSeedChangesSynapses(t *testing.T) {
	cx1, _ := newTestCortex(t, testConfig(stripesMaps(), CorticalAreaSettings{Seed: 1}), 2)
	cx2, _ := newTestCortex(t, testConfig(stripesMaps(), CorticalAreaSettings{Seed: 2}), 2)
	s1 := testArea(t, cx1, "v1").Ssts[0].tufts.Dens.Syns.SrcColUOffs.Data
	s2 := testArea(t, cx2, "v1").Ssts[0].tufts.Dens.Syns.SrcColUOffs.Data
	same := true
	for i := range s1 {
		if s1[i] != s2[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds grew identical synapses")
	}
}

func TestRegrowDistinct(t *testing.T) {
	cx, _ := newTestCortex(t, testConfig(stripesMaps(), CorticalAreaSettings{Seed: 3}), 2)
	ar := testArea(t, cx, "v1")
	checkDistinct(t, ar)

	// collapse every dendrite onto its first source, at the regrowth floor
	total := 0
	for _, dl := range ar.DataLayers() {
		tt := dl.Tufts()
		sy := tt.Dens.Syns
		for _, tf := range tt.Tufts {
			tg := &tf.Geom
			for d := uint32(0); d < tg.NDens(); d++ {
				s0 := tg.DenSynIdz(tg.DenIdz + d)
				for s := s0; s < s0+tg.Syns; s++ {
					sy.SrcSlcIds.Data[s] = sy.SrcSlcIds.Data[s0]
					sy.SrcColVOffs.Data[s] = sy.SrcColVOffs.Data[s0]
					sy.SrcColUOffs.Data[s] = sy.SrcColUOffs.Data[s0]
					sy.Strengths.Data[s] = SynStrengthFloor
				}
			}
			total += int(tg.NSyns())
		}
	}
	n, err := ar.Regrow(false)
	if err != nil {
		t.Fatal(err)
	}
	if n != total {
		t.Errorf("regrew %d synapses, want %d", n, total)
	}
	checkDistinct(t, ar)

	if _, err := ar.Regrow(true); err != nil {
		t.Fatal(err)
	}
	checkDistinct(t, ar)
}

func TestRegrowInitFromIdenticalSources(t *testing.T) {
	cx, _ := newTestCortex(t, testConfig(stripesMaps(), CorticalAreaSettings{Seed: 8}), 2)
	ar := testArea(t, cx, "v1")

	// every synapse of a dendrite on the same source, with stale state
	total := 0
	for _, dl := range ar.DataLayers() {
		tt := dl.Tufts()
		sy := tt.Dens.Syns
		for _, tf := range tt.Tufts {
			tg := &tf.Geom
			for d := uint32(0); d < tg.NDens(); d++ {
				s0 := tg.DenSynIdz(tg.DenIdz + d)
				for s := s0; s < s0+tg.Syns; s++ {
					sy.SrcSlcIds.Data[s] = sy.SrcSlcIds.Data[s0]
					sy.SrcColVOffs.Data[s] = 0
					sy.SrcColUOffs.Data[s] = 0
					sy.Strengths.Data[s] = 100
					sy.States.Data[s] = 9
					sy.FlagSets.Data[s] = 1
				}
			}
			total += int(tg.NSyns())
		}
	}
	n, err := ar.Regrow(true)
	if err != nil {
		t.Fatal(err)
	}
	if n != total {
		t.Errorf("regrew %d synapses, want %d", n, total)
	}
	checkDistinct(t, ar)
	for _, dl := range ar.DataLayers() {
		sy := dl.Tufts().Dens.Syns
		for s := range sy.Strengths.Data {
			if str := sy.Strengths.Data[s]; str == 100 || str <= SynStrengthFloor {
				t.Fatalf("%s synapse %d strength %d not redrawn", dl.Name(), s, str)
			}
			if sy.States.Data[s] != 0 || sy.FlagSets.Data[s] != 0 {
				t.Fatalf("%s synapse %d state %d flags %d not reset", dl.Name(), s, sy.States.Data[s], sy.FlagSets.Data[s])
			}
		}
	}
	// nothing is left at the floor for steady-state regrowth
	if n, err := ar.Regrow(false); err != nil || n != 0 {
		t.Errorf("steady-state regrow after init: %d, %v", n, err)
	}
}

func TestRegrowKeepsStrong(t *testing.T) {
	cx, _ := newTestCortex(t, testConfig(stripesMaps(), CorticalAreaSettings{Seed: 5}), 2)
	ar := testArea(t, cx, "v1")
	sy := ar.Pyrs[0].tufts.Dens.Syns
	for i := range sy.Strengths.Data {
		sy.Strengths.Data[i] = 10
	}
	sy.Strengths.Data[0] = SynStrengthFloor - 1
	slcs := append([]uint8(nil), sy.SrcSlcIds.Data...)
	n, err := ar.Pyrs[0].Regrow(ar.Graph, false, ar.regrowRng)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("regrew %d synapses, want 1", n)
	}
	for i := 1; i < len(slcs); i++ {
		if sy.SrcSlcIds.Data[i] != slcs[i] || sy.Strengths.Data[i] != 10 {
			t.Fatalf("strong synapse %d changed", i)
		}
	}
}

// ffwdMaps has one pyramidal layer with a proximal tuft on the feedforward
// input, and no other cells.
func ffwdMaps() layermap.LayerMapSchemeList {
	lm := layermap.LayerMapScheme{
		Name: "ffwd",
		Layers: []layermap.LayerScheme{
			{Name: layermap.AffInName, Tags: layermap.FFIn, Topology: layermap.AxonSpatial},
			{Name: layermap.IIIName, Tags: layermap.PTAL.Union(layermap.FFOut), Topology: layermap.AxonSpatial, Depth: 1,
				Cell: &layermap.CellScheme{Kind: layermap.Pyramidal, Tufts: []layermap.TuftScheme{{
					DenClass: layermap.Basal, DenKind: layermap.Proximal, DensPerTft: 4, SynsPerDen: 16, Thresh: 16,
					SrcLyrs: []layermap.TuftSourceLayer{{Name: layermap.AffInName, SynReach: 3, Prevalence: 1}},
				}}}},
		},
	}
	return layermap.LayerMapSchemeList{lm, layermap.ThalamicLayerMap()}
}

func TestFeedforwardSources(t *testing.T) {
	cf := &Config{
		LayerMaps: ffwdMaps(),
		Areas: layermap.AreaSchemeList{
			{Name: "x", VSize: 16, USize: 16, LayerMap: layermap.ThalamicMapName, Eff: []string{"a"}, External: true},
			{Name: "a", VSize: 16, USize: 16, LayerMap: "ffwd", Eff: []string{"b"}},
			{Name: "b", VSize: 16, USize: 16, LayerMap: "ffwd"},
		},
	}
	cx, sd := newTestCortex(t, cf, 4)
	b := testArea(t, cx, "b")
	in := b.Map.Layer(layermap.AffInName)
	if len(in.Sources) != 1 || in.Sources[0].AreaName != "a" {
		t.Fatalf("b input sources: %+v", in.Sources)
	}

	rng := rnd.NewXorShift(99)
	fr := make([]byte, 256)
	ctx := context.Background()
	for i := 0; i < SynapseRegrowthInterval; i++ {
		for j := range fr {
			fr[j] = uint8(rng.Next())
		}
		if err := sd.Send(ctx, fr); err != nil {
			t.Fatal(err)
		}
		if err := cx.Cycle(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if err := cx.Finish(); err != nil {
		t.Fatal(err)
	}
	if b.Time.Regrows != 1 {
		t.Errorf("b regrew %d times, want 1", b.Time.Regrows)
	}
	for i, slc := range b.Pyrs[0].tufts.Dens.Syns.SrcSlcIds.Data {
		if !in.SlcRange.Contains(uint32(slc)) {
			t.Fatalf("b synapse %d sources slice %d outside %v", i, slc, in.SlcRange)
		}
	}
	checkDistinct(t, b)
}

// deepMaps gives the default cortical map's pyramidal layer depth slices.
func deepMaps(depth uint32) layermap.LayerMapSchemeList {
	lms := stripesMaps()
	lms[0].Layer(layermap.IIIName).Depth = depth
	return lms
}

func TestMinicolumnsBypass(t *testing.T) {
	cx, sd := newTestCortex(t, testConfig(deepMaps(4), CorticalAreaSettings{Seed: 13, BypassInhib: true}), 4)
	ar := testArea(t, cx, "v1")
	mc := ar.Mcols
	py := ar.Pyrs[0]
	tt := py.tufts
	fr := stripes(16, 16)
	for i := 0; i < 12; i++ {
		runTicks(t, cx, sd, fr, 1)
		for v := uint32(0); v < 16; v++ {
			for u := uint32(0); u < 16; u++ {
				col := v*16 + u
				best := uint8(0)
				for slc := uint32(0); slc < 4; slc++ {
					if s := tt.PrevBestDenStates.Data[py.cellIdx(slc, v, u)]; s > best {
						best = s
					}
				}
				if mc.BestDenStates.Data[col] != best {
					t.Fatalf("tick %d column %d: best %d, want %d", i, col, mc.BestDenStates.Data[col], best)
				}
				if mc.Flags.Data[col]&McolFlagActive == 0 || best == 0 {
					continue
				}
				for slc := uint32(0); slc < 4; slc++ {
					ci := py.cellIdx(slc, v, u)
					win := py.soma.FlagSets.Data[ci]&CellFlagWinner != 0
					if (tt.PrevBestDenStates.Data[ci] == best) != win {
						t.Fatalf("tick %d cell %d: winner %v with state %d of %d", i, ci, win, tt.PrevBestDenStates.Data[ci], best)
					}
				}
			}
		}
	}
}

func TestMinicolumnsSingleWinner(t *testing.T) {
	cx, sd := newTestCortex(t, testConfig(deepMaps(4), CorticalAreaSettings{Seed: 13}), 4)
	ar := testArea(t, cx, "v1")
	py := ar.Pyrs[0]
	fr := stripes(16, 16)
	for i := 0; i < 12; i++ {
		runTicks(t, cx, sd, fr, 1)
		for v := uint32(0); v < 16; v++ {
			for u := uint32(0); u < 16; u++ {
				n := 0
				for slc := uint32(0); slc < 4; slc++ {
					if py.soma.FlagSets.Data[py.cellIdx(slc, v, u)]&CellFlagWinner != 0 {
						n++
					}
				}
				if n > 1 {
					t.Fatalf("tick %d column (%d, %d) has %d winners", i, v, u, n)
				}
			}
		}
	}
}

func TestWriteAxonSlice(t *testing.T) {
	cx, sd := newTestCortex(t, testConfig(deepMaps(3), CorticalAreaSettings{Seed: 17}), 2)
	ar := testArea(t, cx, "v1")
	runTicks(t, cx, sd, stripes(16, 16), 3)

	li := ar.Map.Layer(layermap.IIIName)
	addr := layermap.LayerAddr{AreaId: ar.Id, Tags: li.Tags}
	kind := thalamus.SamplerKind{Type: thalamus.Axons, Addr: &addr}
	before := ar.Sample(kind)
	if before.Err != nil {
		t.Fatal(before.Err)
	}
	if err := ar.WriteAxonSlice(li.SlcRange.Z+1, bytes.Repeat([]byte{0xAB}, 256)); err != nil {
		t.Fatal(err)
	}
	after := ar.Sample(kind)
	if after.Err != nil {
		t.Fatal(after.Err)
	}
	if got := after.Shape.Shp; len(got) != 3 || got[0] != 3 || got[1] != 16 || got[2] != 16 {
		t.Fatalf("sample shape %v", got)
	}
	for i := range after.Data {
		if i >= 256 && i < 512 {
			if after.Data[i] != 0xAB {
				t.Fatalf("axon %d = %x, want ab", i, after.Data[i])
			}
		} else if after.Data[i] != before.Data[i] {
			t.Fatalf("axon %d changed from %x to %x", i, before.Data[i], after.Data[i])
		}
	}

	err := ar.WriteAxonSlice(li.SlcRange.Z, make([]byte, 10))
	if !errors.Is(err, dims.ErrDimensionMismatch) {
		t.Errorf("short write: %v", err)
	}
}

func TestSamplerDelivery(t *testing.T) {
	cx, sd := newTestCortex(t, testConfig(stripesMaps(), CorticalAreaSettings{Seed: 19}), 2)
	ar := testArea(t, cx, "v1")
	li := ar.Map.Layer(layermap.IVName)
	addr := layermap.LayerAddr{AreaId: ar.Id, Tags: li.Tags}
	rc, err := cx.Thal.Sampler("v1", thalamus.SamplerKind{Type: thalamus.DenStates, Addr: &addr}, thalamus.SingleBuffer, false)
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	runTicks(t, cx, sd, stripes(16, 16), 2)
	sf, err := rc.Recv(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sf.Err != nil {
		t.Fatal(sf.Err)
	}
	if sf.Tick != 2 || sf.Area != "v1" {
		t.Errorf("frame tick %d area %s", sf.Tick, sf.Area)
	}
	if len(sf.Data) != 256 || sf.Shape.Len() != 256 {
		t.Errorf("frame of %d values, shape %v", len(sf.Data), sf.Shape.Shp)
	}
	if d := rc.Sampler().Dropped.Load(); d != 1 {
		t.Errorf("dropped %d frames, want 1", d)
	}
}

func TestFilters(t *testing.T) {
	cf := testConfig(stripesMaps(), CorticalAreaSettings{Seed: 23})
	cf.Areas[1].Filters = []layermap.FilterScheme{{Layer: layermap.AffInName, Kind: FilterThreshold, Param: 0.5}}
	cx, sd := newTestCortex(t, cf, 2)
	ar := testArea(t, cx, "v1")
	in := ar.Map.Layer(layermap.AffInName)
	fr := make([]byte, 256)
	for i := range fr {
		if i%2 == 0 {
			fr[i] = 200
		} else {
			fr[i] = 100
		}
	}
	runTicks(t, cx, sd, fr, 1)
	ax, err := ar.ReadAxons(in.SlcRange)
	if err != nil {
		t.Fatal(err)
	}
	for i, a := range ax {
		want := uint8(0)
		if i%2 == 0 {
			want = 255
		}
		if a != want {
			t.Fatalf("filtered axon %d = %d, want %d", i, a, want)
		}
	}

	ar.Settings.BypassFilters = true
	runTicks(t, cx, sd, fr, 1)
	if ax, err = ar.ReadAxons(in.SlcRange); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(ax, fr) {
		t.Error("bypassed filters changed the input")
	}

	cf = testConfig(stripesMaps(), CorticalAreaSettings{})
	cf.Areas[1].Filters = []layermap.FilterScheme{{Layer: layermap.AffInName, Kind: "sharpen"}}
	if _, err := New(cf, 1); !errors.Is(err, layermap.ErrLayerResolution) {
		t.Errorf("unknown filter kind: %v", err)
	}
}

func TestNotEnoughSources(t *testing.T) {
	lms := stripesMaps()
	ts := &lms[0].Layer(layermap.IVName).Cell.Tufts[0]
	ts.SynsPerDen = 32
	ts.SrcLyrs[0].SynReach = 1
	_, err := New(testConfig(lms, CorticalAreaSettings{}), 1)
	if !errors.Is(err, layermap.ErrLayerResolution) {
		t.Errorf("7 sources for 32 synapses: %v", err)
	}
}

func TestAreaDims(t *testing.T) {
	cf := testConfig(stripesMaps(), CorticalAreaSettings{})
	for i := range cf.Areas {
		cf.Areas[i].VSize = 12
	}
	if _, err := New(cf, 1); !errors.Is(err, dims.ErrDimensionMismatch) {
		t.Errorf("12x16 area: %v", err)
	}
}

func TestSettingsDisable(t *testing.T) {
	cx, sd := newTestCortex(t, testConfig(stripesMaps(), CorticalAreaSettings{Seed: 29, DisableLearning: true, DisableSsts: true}), 2)
	ar := testArea(t, cx, "v1")
	strs := append([]int8(nil), ar.Pyrs[0].tufts.Dens.Syns.Strengths.Data...)
	runTicks(t, cx, sd, stripes(16, 16), 5)
	for i, s := range ar.Ssts[0].soma.States.Data {
		if s != 0 {
			t.Fatalf("disabled spiny stellate cell %d has state %d", i, s)
		}
	}
	for i, s := range ar.Pyrs[0].tufts.Dens.Syns.Strengths.Data {
		if s != strs[i] {
			t.Fatalf("synapse %d learned with learning disabled", i)
		}
	}
}

func TestSizeReport(t *testing.T) {
	cx, _ := newTestCortex(t, testConfig(stripesMaps(), CorticalAreaSettings{}), 1)
	rep := cx.SizeReport()
	for _, s := range []string{"v1", layermap.IVName, layermap.IIIName, "cortex"} {
		if !bytes.Contains([]byte(rep), []byte(s)) {
			t.Errorf("size report lacks %q:\n%s", s, rep)
		}
	}
}
