// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cortex

import (
	"context"
	"fmt"

	"github.com/emer/cortex/compute"
	"github.com/emer/cortex/layermap"
	"github.com/emer/cortex/rnd"
	"github.com/emer/cortex/thalamus"
	"github.com/voodooEntity/archivist"
)

// intake copies one input source from its tract into the axons, directly
// or through a filter chain.
type intake struct {
	src   *layermap.SourceLayerInfo
	fb    bool
	tract *thalamus.Tract
	axz   uint32
	n     uint32

	direct   *Step
	filtered *Step
	chain    *filterChain
}

// output copies one output layer's axons into its tract.
type output struct {
	li    *layermap.LayerInfo
	tract *thalamus.Tract
	axz   uint32
	n     uint32
	step  *Step
}

// CorticalArea is one area of the cortex: its axon space, cell layers and
// the execution graph that ticks them.
type CorticalArea struct {
	Name     string
	Id       uint32
	Map      *layermap.AreaMap
	Settings CorticalAreaSettings
	Time     Time
	Graph    *AreaGraph
	Axons    *AxonSpace

	Ssts   []*SpinyStellate
	Pyrs   []*Pyramidal
	Inhibs []*Inhib
	Mcols  *Minicolumns

	layers     map[string]DataCellLayer
	ssInhibs   []*Inhib
	pyrInhibs  []*Inhib
	intakes    []*intake
	outputs    []*output
	regrowStep *Step

	rng       *rnd.XorShift
	regrowRng *rnd.XorShift
}

// NewCorticalArea builds area am against the thalamus tracts, and grows
// every synapse.
func NewCorticalArea(th *thalamus.Thalamus, am *layermap.AreaMap, cs CorticalAreaSettings) (*CorticalArea, error) {
	if am.External {
		return nil, fmt.Errorf("%w: %s is an external area", layermap.ErrLayerResolution, am.Name)
	}
	cs.Update()
	ag, err := NewAreaGraph(th.Dev, am.Name, am.VSize, am.USize)
	if err != nil {
		return nil, err
	}
	ar := &CorticalArea{Name: am.Name, Id: am.Id, Map: am, Settings: cs, Graph: ag,
		Axons:  NewAxonSpace(th.Dev, am.Name, am.Slices),
		layers: make(map[string]DataCellLayer),
	}
	ar.Time.Defaults()
	ar.Time.RegrowInterval = cs.RegrowInterval
	seed := cs.Seed
	if seed == 0 {
		seed = rnd.Hash(rnd.DefaultSeed, am.Id)
	}
	ar.rng = rnd.NewXorShift(seed)
	ar.regrowRng = rnd.NewXorShift(rnd.Hash(seed, 1))

	if err := ar.newLayers(th.Dev); err != nil {
		return nil, err
	}
	if err := ar.build(th); err != nil {
		return nil, err
	}
	if err := ag.Graph.Populate(); err != nil {
		return nil, fmt.Errorf("area %s: %w", am.Name, err)
	}
	n, err := ar.growSynapses(true)
	if err != nil {
		return nil, err
	}
	archivist.Info("built cortical area "+am.Name, fmt.Sprintf("slices %d axons %d synapses %d commands %d", am.NSlices, am.Slices.AxonCount(), n, len(ag.Graph.Cmds)))
	return ar, nil
}

// newLayers creates the cell layers of the area map.
func (ar *CorticalArea) newLayers(dv *compute.Device) error {
	am := ar.Map
	for _, li := range am.Layers {
		if li.Cell == nil {
			continue
		}
		switch li.Cell.Kind {
		case layermap.SpinyStellate:
			ss, err := NewSpinyStellate(dv, am, li, ar.Axons)
			if err != nil {
				return err
			}
			ar.Ssts = append(ar.Ssts, ss)
			ar.layers[li.Name] = ss
		case layermap.Pyramidal:
			py, err := NewPyramidal(dv, am, li, ar.Axons)
			if err != nil {
				return err
			}
			ar.Pyrs = append(ar.Pyrs, py)
			ar.layers[li.Name] = py
		}
	}
	for _, li := range am.Layers {
		if li.Cell == nil {
			continue
		}
		switch li.Cell.Kind {
		case layermap.Inhibitory:
			tgt, ok := ar.layers[li.Cell.Target]
			if !ok {
				return fmt.Errorf("%w: area %s inhibition %s: unknown data layer %q", layermap.ErrLayerResolution, am.Name, li.Name, li.Cell.Target)
			}
			ih := NewInhib(li, tgt)
			ar.Inhibs = append(ar.Inhibs, ih)
			if _, isPyr := tgt.(*Pyramidal); isPyr {
				ar.pyrInhibs = append(ar.pyrInhibs, ih)
			} else {
				ar.ssInhibs = append(ar.ssInhibs, ih)
			}
		case layermap.Minicolumns:
			if ar.Mcols != nil {
				return fmt.Errorf("%w: area %s has more than one minicolumn layer", layermap.ErrLayerResolution, am.Name)
			}
			py, ok := ar.layers[li.Cell.Target].(*Pyramidal)
			if !ok {
				return fmt.Errorf("%w: area %s minicolumns %s: %q is not a pyramidal layer", layermap.ErrLayerResolution, am.Name, li.Name, li.Cell.Target)
			}
			if len(ar.Ssts) == 0 {
				return fmt.Errorf("%w: area %s minicolumns %s need a spiny stellate layer", layermap.ErrLayerResolution, am.Name, li.Name)
			}
			ar.Mcols = NewMinicolumns(dv, am.Name+":"+li.Name, ar.Ssts[0], py)
		}
	}
	return nil
}

// build adds every command to the graph, in tick order.
func (ar *CorticalArea) build(th *thalamus.Thalamus) error {
	ag := ar.Graph
	if err := ar.buildIntakes(th, false); err != nil {
		return err
	}
	for _, ss := range ar.Ssts {
		if err := ss.buildCycle(ag); err != nil {
			return err
		}
	}
	for _, ih := range ar.ssInhibs {
		if err := ih.build(ag, ih.Target.(*SpinyStellate).base()); err != nil {
			return err
		}
	}
	for _, ss := range ar.Ssts {
		if err := ss.buildLearn(ag); err != nil {
			return err
		}
	}
	if ar.Mcols != nil {
		if err := ar.Mcols.buildActivate(ag); err != nil {
			return err
		}
	}
	if err := ar.buildIntakes(th, true); err != nil {
		return err
	}
	for _, py := range ar.Pyrs {
		var mc *Minicolumns
		if ar.Mcols != nil && ar.Mcols.Pyrs == py {
			mc = ar.Mcols
		}
		if err := py.buildLearn(ag, mc); err != nil {
			return err
		}
	}
	for _, py := range ar.Pyrs {
		if err := py.buildCycle(ag); err != nil {
			return err
		}
	}
	for _, ih := range ar.pyrInhibs {
		if err := ih.build(ag, ih.Target.(*Pyramidal).base()); err != nil {
			return err
		}
	}
	if ar.Mcols != nil {
		if err := ar.Mcols.buildOutput(ag); err != nil {
			return err
		}
	}
	var syns []compute.MemBlock
	for _, dl := range ar.DataLayers() {
		syns = append(syns, dl.Tufts().SynBlocks()...)
	}
	var err error
	if ar.regrowStep, err = ag.AddStep("regrow", syns, syns); err != nil {
		return err
	}
	return ar.buildOutputs(th)
}

// buildIntakes adds the tract copies of the feedforward and nonspecific
// inputs, or of the feedback inputs.
func (ar *CorticalArea) buildIntakes(th *thalamus.Thalamus, fb bool) error {
	ag := ar.Graph
	for _, li := range ar.Map.InputLayers() {
		if li.Tags.Has(layermap.Feedback) != fb {
			continue
		}
		var fss []layermap.FilterScheme
		for _, fs := range ar.Map.Filters {
			if fs.Layer == li.Name {
				fss = append(fss, fs)
			}
		}
		for si := range li.Sources {
			src := &li.Sources[si]
			tr, err := th.Tract(src.Addr())
			if err != nil {
				return fmt.Errorf("area %s layer %s: %w", ar.Name, li.Name, err)
			}
			axz, n, err := ar.Axons.Range(src.SlcRange)
			if err != nil {
				return err
			}
			if int(n) != tr.Buf.Len() {
				return fmt.Errorf("%w: area %s layer %s holds %d axons of %s, tract has %d", thalamus.ErrTractMismatch, ar.Name, li.Name, n, tr.Name, tr.Buf.Len())
			}
			in := &intake{src: src, fb: fb, tract: tr, axz: axz, n: n}
			nm := fmt.Sprintf("intake:%s.%s", src.AreaName, src.LayerName)
			blk := ar.Axons.Axons.Block(int(axz), int(n))
			if in.direct, err = ag.AddStep(nm, nil, []compute.MemBlock{blk}); err != nil {
				return err
			}
			if len(fss) > 0 {
				fc, err := newFilterChainBufs(ag, ar.Axons, src)
				if err != nil {
					return err
				}
				if in.filtered, err = ag.AddStep(nm+":filtered", nil, []compute.MemBlock{fc.a.All()}); err != nil {
					return err
				}
				if err := fc.build(ag, ar.Axons, fss); err != nil {
					return err
				}
				in.chain = fc
			}
			ar.intakes = append(ar.intakes, in)
		}
	}
	return nil
}

// buildOutputs adds the copies of every output layer into its tract.
func (ar *CorticalArea) buildOutputs(th *thalamus.Thalamus) error {
	for _, li := range ar.Map.OutputLayers() {
		if li.IsInput() || li.Depth == 0 {
			continue
		}
		tr, err := th.Tract(layermap.LayerAddr{AreaId: ar.Id, Tags: li.Tags})
		if err != nil {
			return err
		}
		axz, n, err := ar.Axons.Range(li.SlcRange)
		if err != nil {
			return err
		}
		out := &output{li: li, tract: tr, axz: axz, n: n}
		if out.step, err = ar.Graph.AddStep("output:"+li.Name, []compute.MemBlock{ar.Axons.Axons.Block(int(axz), int(n))}, nil); err != nil {
			return err
		}
		ar.outputs = append(ar.outputs, out)
	}
	return nil
}

// DataLayers returns the data cell layers in declaration order.
func (ar *CorticalArea) DataLayers() []DataCellLayer {
	var dls []DataCellLayer
	for _, li := range ar.Map.Layers {
		if dl, ok := ar.layers[li.Name]; ok {
			dls = append(dls, dl)
		}
	}
	return dls
}

// DataLayer returns the named data cell layer.
func (ar *CorticalArea) DataLayer(name string) (DataCellLayer, error) {
	dl, ok := ar.layers[name]
	if !ok {
		return nil, fmt.Errorf("%w: area %s has no data layer %q", layermap.ErrLayerResolution, ar.Name, name)
	}
	return dl, nil
}

// mcolsOn reports whether minicolumns run this tick.
func (ar *CorticalArea) mcolsOn() bool {
	cs := &ar.Settings
	return ar.Mcols != nil && !cs.DisableMcols && !cs.DisablePyrs && !cs.DisableSsts
}

// Cycle runs one tick of the area. Tract writes may park under
// backpressure until ctx is done.
func (ar *CorticalArea) Cycle(ctx context.Context) error {
	ag := ar.Graph
	cs := &ar.Settings
	ag.Dev.FunTimerStart("area:" + ar.Name)
	defer ag.Dev.FunTimerStop("area:" + ar.Name)
	ag.Graph.TickStart()

	if err := ar.runIntakes(false); err != nil {
		return err
	}
	if !cs.DisableSsts {
		for _, ss := range ar.Ssts {
			if err := ss.Cycle(ag, ar.rng); err != nil {
				return err
			}
		}
		for _, ih := range ar.ssInhibs {
			if err := ih.Cycle(ag, cs.BypassInhib, ar.rng); err != nil {
				return err
			}
		}
	}
	learn := ar.Time.Learning() && !cs.DisableLearning
	if learn && !cs.DisableSsts {
		for _, ss := range ar.Ssts {
			if err := ss.Learn(ag); err != nil {
				return err
			}
		}
	}
	mcols := ar.mcolsOn()
	if mcols {
		if err := ar.Mcols.Activate(ag, cs.BypassInhib, ar.rng); err != nil {
			return err
		}
	}
	if err := ar.runIntakes(true); err != nil {
		return err
	}
	if !cs.DisablePyrs {
		if learn {
			for _, py := range ar.Pyrs {
				if err := py.learn(ag, mcols && ar.Mcols.Pyrs == py); err != nil {
					return err
				}
			}
		}
		for _, py := range ar.Pyrs {
			if err := py.cycle(ag, ar.rng, !(mcols && ar.Mcols.Pyrs == py)); err != nil {
				return err
			}
		}
		for _, ih := range ar.pyrInhibs {
			if err := ih.Cycle(ag, cs.BypassInhib, ar.rng); err != nil {
				return err
			}
		}
	}
	if mcols {
		if err := ar.Mcols.Output(ag); err != nil {
			return err
		}
	}
	if ar.Time.TickInc() && !cs.DisableRegrowth {
		if err := ar.regrow(); err != nil {
			return err
		}
	}
	return ar.runOutputs(ctx)
}

func (ar *CorticalArea) runIntakes(fb bool) error {
	ag := ar.Graph
	for _, in := range ar.intakes {
		if in.fb != fb {
			continue
		}
		st, dst, dz := in.direct, ar.Axons.Axons, int(in.axz)
		filter := in.chain != nil && !ar.Settings.BypassFilters
		if filter {
			st, dst, dz = in.filtered, in.chain.a, 0
		}
		wait, err := ag.Begin(st)
		if err != nil {
			return err
		}
		var ev *compute.Event
		_, err = in.tract.Read(func(buf *compute.Buffer[uint8], twait compute.EventList) (*compute.Event, error) {
			wl := append(append(compute.EventList(nil), wait...), twait...)
			var err error
			ev, err = compute.Retry(ag.Queue, func() (*compute.Event, error) {
				return compute.EnqueueCopy(ag.Queue, buf, 0, dst, dz, int(in.n), wl)
			})
			return ev, err
		})
		if err != nil {
			return fmt.Errorf("%s: %w", st.Name, err)
		}
		ag.End(st, ev)
		if filter {
			if err := in.chain.run(ag); err != nil {
				return err
			}
		}
	}
	return nil
}

func (ar *CorticalArea) runOutputs(ctx context.Context) error {
	ag := ar.Graph
	for _, out := range ar.outputs {
		wait, err := ag.Begin(out.step)
		if err != nil {
			return err
		}
		var ev *compute.Event
		err = out.tract.Write(ctx, func(buf *compute.Buffer[uint8], twait compute.EventList) (*compute.Event, error) {
			wl := append(append(compute.EventList(nil), wait...), twait...)
			var err error
			ev, err = compute.Retry(ag.Queue, func() (*compute.Event, error) {
				return compute.EnqueueCopy(ag.Queue, ar.Axons.Axons, int(out.axz), buf, 0, int(out.n), wl)
			})
			return ev, err
		})
		if err != nil {
			return fmt.Errorf("%s: %w", out.step.Name, err)
		}
		ag.End(out.step, ev)
	}
	return nil
}

// regrow runs the periodic regrowth as the graph's regrow step.
func (ar *CorticalArea) regrow() error {
	if _, err := ar.Graph.Begin(ar.regrowStep); err != nil {
		return err
	}
	n, err := ar.growSynapses(false)
	if err != nil {
		return err
	}
	archivist.Debug("regrew synapses", ar.Name, ar.Time.Tick, n)
	ar.Graph.End(ar.regrowStep, compute.CompletedEvent(ar.regrowStep.Name))
	return nil
}

// growSynapses drains the queue and regrows every data layer.
func (ar *CorticalArea) growSynapses(init bool) (int, error) {
	if err := ar.Graph.Finish(); err != nil {
		return 0, err
	}
	total := 0
	for _, dl := range ar.DataLayers() {
		n, err := dl.Regrow(ar.Graph, init, ar.regrowRng)
		total += n
		if err != nil {
			return total, fmt.Errorf("area %s layer %s: %w", ar.Name, dl.Name(), err)
		}
	}
	return total, nil
}

// Regrow regrows every synapse (init) or the weak ones, outside the tick
// schedule. Used to reset an area.
func (ar *CorticalArea) Regrow(init bool) (int, error) {
	return ar.growSynapses(init)
}

// WriteAxonSlice overwrites slice slc of the axon space and waits for the
// write.
func (ar *CorticalArea) WriteAxonSlice(slc uint32, vals []uint8) error {
	ag := ar.Graph
	ev, err := compute.Retry(ag.Queue, func() (*compute.Event, error) {
		return ar.Axons.Write(ag.Queue, slc, vals, ag.Graph.AllEvents())
	})
	if err != nil {
		return err
	}
	return ev.Wait()
}

// ReadAxons returns a copy of the axons of a slice range.
func (ar *CorticalArea) ReadAxons(r layermap.Range) ([]uint8, error) {
	st, n, err := ar.Axons.Range(r)
	if err != nil {
		return nil, err
	}
	if err := ar.Graph.Finish(); err != nil {
		return nil, err
	}
	vals := make([]uint8, n)
	return vals, compute.ReadBlocking(ar.Graph.Queue, ar.Axons.Axons, int(st), vals, nil)
}

// Bytes returns the device memory used by the area.
func (ar *CorticalArea) Bytes() int {
	n := ar.Axons.Axons.Len()
	for _, ss := range ar.Ssts {
		n += ss.Bytes()
	}
	for _, py := range ar.Pyrs {
		n += py.Bytes()
	}
	if ar.Mcols != nil {
		n += 3 * ar.Mcols.States.Len()
	}
	return n
}
