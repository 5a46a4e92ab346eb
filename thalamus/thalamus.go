// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package thalamus

import (
	"context"
	"fmt"
	"sync"

	"github.com/emer/cortex/compute"
	"github.com/emer/cortex/dims"
	"github.com/emer/cortex/layermap"
	"github.com/goki/kigen/ordmap"
	"github.com/voodooEntity/archivist"
)

// SubcorticalNucleus is an external source or sink of axon frames. It opens
// its pathways once at build time and is called around every cortical cycle.
type SubcorticalNucleus interface {
	// Name is the unique name of the nucleus
	Name() string

	// CreatePathways opens input pathways and looks up output tracts
	CreatePathways(th *Thalamus) error

	// PreCycle runs before the areas cycle, typically sending input frames
	PreCycle(ctx context.Context, th *Thalamus) error

	// PostCycle runs after the areas cycle, typically reading output frames
	PostCycle(ctx context.Context, th *Thalamus) error
}

// Thalamus owns all tracts, nuclei and samplers of a cortex.
type Thalamus struct {
	Dev   *compute.Device
	Queue *compute.Queue

	AreaMaps []*layermap.AreaMap

	tracts   map[layermap.LayerAddr]*Tract
	tractLst []*Tract
	areaIds  map[string]uint32
	nuclei   *ordmap.Map[string, SubcorticalNucleus]

	smMu     sync.Mutex
	samplers []*Sampler
}

// New creates a tract for every output layer with axons.
func New(dv *compute.Device, ams []*layermap.AreaMap) (*Thalamus, error) {
	th := &Thalamus{Dev: dv, Queue: compute.NewQueue(dv, "thalamus"), AreaMaps: ams,
		tracts:  make(map[layermap.LayerAddr]*Tract),
		areaIds: make(map[string]uint32, len(ams)),
		nuclei:  ordmap.New[string, SubcorticalNucleus](),
	}
	for _, am := range ams {
		th.areaIds[am.Name] = am.Id
		for _, li := range am.OutputLayers() {
			if li.Depth == 0 {
				continue
			}
			addr := layermap.LayerAddr{AreaId: am.Id, Tags: li.Tags}
			tr := newTract(dv, addr, am.Name+"."+li.Name, am.LayerDims(li))
			th.tracts[addr] = tr
			th.tractLst = append(th.tractLst, tr)
			archivist.Debug("created tract "+tr.Name, tr.Dims.String())
		}
	}
	return th, nil
}

// AreaId returns the id of the named area.
func (th *Thalamus) AreaId(name string) (uint32, error) {
	id, ok := th.areaIds[name]
	if !ok {
		return 0, fmt.Errorf("%w: unknown area %q", ErrTractMismatch, name)
	}
	return id, nil
}

// AreaMap returns the named area map.
func (th *Thalamus) AreaMap(name string) (*layermap.AreaMap, error) {
	id, err := th.AreaId(name)
	if err != nil {
		return nil, err
	}
	return th.AreaMaps[id], nil
}

// Addr returns the address of the layer of area that meshes with tags.
func (th *Thalamus) Addr(area string, tags layermap.LayerTags) (layermap.LayerAddr, error) {
	am, err := th.AreaMap(area)
	if err != nil {
		return layermap.LayerAddr{}, err
	}
	li, err := am.LayerContainingTags(tags)
	if err != nil {
		return layermap.LayerAddr{}, err
	}
	return layermap.LayerAddr{AreaId: am.Id, Tags: li.Tags}, nil
}

// Tract returns the tract produced at addr.
func (th *Thalamus) Tract(addr layermap.LayerAddr) (*Tract, error) {
	tr, ok := th.tracts[addr]
	if !ok {
		return nil, fmt.Errorf("%w: no tract at %v", ErrTractMismatch, addr)
	}
	return tr, nil
}

// Tracts returns all tracts in creation order.
func (th *Thalamus) Tracts() []*Tract {
	return th.tractLst
}

// Sender writes frames into one tract from outside the cortex.
type Sender struct {
	Tract *Tract
	q     *compute.Queue
}

// Dims returns the dims frames must match.
func (sd *Sender) Dims() dims.CorticalDims {
	return sd.Tract.Dims
}

func (sd *Sender) writeFunc(frame []byte) WriteFunc {
	return func(buf *compute.Buffer[uint8], wait compute.EventList) (*compute.Event, error) {
		return compute.Retry(sd.q, func() (*compute.Event, error) {
			return compute.EnqueueWrite(sd.q, buf, 0, frame, wait)
		})
	}
}

func (sd *Sender) check(frame []byte) error {
	if len(frame) != sd.Tract.Buf.Len() {
		return fmt.Errorf("%w: frame of %d bytes for %s of %d", ErrTractMismatch, len(frame), sd.Tract.Name, sd.Tract.Buf.Len())
	}
	return nil
}

// Send writes a frame, parking under backpressure until the previous one
// is consumed or ctx is done.
func (sd *Sender) Send(ctx context.Context, frame []byte) error {
	if err := sd.check(frame); err != nil {
		return err
	}
	return sd.Tract.Write(ctx, sd.writeFunc(frame))
}

// TrySend writes a frame or returns ErrTractBusy.
func (sd *Sender) TrySend(frame []byte) error {
	if err := sd.check(frame); err != nil {
		return err
	}
	return sd.Tract.TryWrite(sd.writeFunc(frame))
}

// InputPathway opens a sender into the tract at addr, typically the output
// layer of an external area.
func (th *Thalamus) InputPathway(addr layermap.LayerAddr, backpressure bool) (*Sender, error) {
	tr, err := th.Tract(addr)
	if err != nil {
		return nil, err
	}
	tr.SetBackpressure(backpressure)
	return &Sender{Tract: tr, q: th.Queue}, nil
}

// OutputFrame begins a host read of the tract at addr. The guard must be
// released.
func (th *Thalamus) OutputFrame(addr layermap.LayerAddr) (*ReadGuard, error) {
	tr, err := th.Tract(addr)
	if err != nil {
		return nil, err
	}
	return tr.BeginRead(), nil
}

// AddNucleus registers a nucleus and lets it create its pathways. Nuclei run
// in registration order.
func (th *Thalamus) AddNucleus(nuc SubcorticalNucleus) error {
	if _, has := th.nuclei.ValByKey(nuc.Name()); has {
		return fmt.Errorf("%w: nucleus %q already registered", ErrTractMismatch, nuc.Name())
	}
	if err := nuc.CreatePathways(th); err != nil {
		return fmt.Errorf("nucleus %s: %w", nuc.Name(), err)
	}
	th.nuclei.Add(nuc.Name(), nuc)
	archivist.Info("registered subcortical nucleus " + nuc.Name())
	return nil
}

// Nucleus returns the named nucleus.
func (th *Thalamus) Nucleus(name string) (SubcorticalNucleus, bool) {
	return th.nuclei.ValByKey(name)
}

// Nuclei returns all nuclei in registration order.
func (th *Thalamus) Nuclei() []SubcorticalNucleus {
	return th.nuclei.Vals()
}

// PreCycle calls PreCycle on every nucleus.
func (th *Thalamus) PreCycle(ctx context.Context) error {
	for _, nuc := range th.nuclei.Vals() {
		if err := nuc.PreCycle(ctx, th); err != nil {
			return fmt.Errorf("nucleus %s: %w", nuc.Name(), err)
		}
	}
	return nil
}

// PostCycle calls PostCycle on every nucleus.
func (th *Thalamus) PostCycle(ctx context.Context) error {
	for _, nuc := range th.nuclei.Vals() {
		if err := nuc.PostCycle(ctx, th); err != nil {
			return fmt.Errorf("nucleus %s: %w", nuc.Name(), err)
		}
	}
	return nil
}

// Sampler registers a sampler of area state. Layer kinds need an Addr in the
// sampled area; tuft kinds need a data layer with that tuft.
func (th *Thalamus) Sampler(area string, kind SamplerKind, bufKind SamplerBufferKind, backpressure bool) (*Receiver, error) {
	am, err := th.AreaMap(area)
	if err != nil {
		return nil, err
	}
	if am.External {
		return nil, fmt.Errorf("%w: external area %s has no state to sample", ErrTractMismatch, area)
	}
	if kind.Addr == nil && kind.Type != Axons {
		return nil, fmt.Errorf("%w: sampler %v needs a layer address", ErrTractMismatch, kind.Type)
	}
	if kind.Addr != nil {
		if kind.Addr.AreaId != am.Id {
			return nil, fmt.Errorf("%w: sampler address %v is not in area %s", ErrTractMismatch, *kind.Addr, area)
		}
		li, err := am.LayerContainingTags(kind.Addr.Tags)
		if err != nil {
			return nil, err
		}
		if kind.Type != Axons {
			if li.Cell == nil || !li.Cell.Kind.IsData() {
				return nil, fmt.Errorf("%w: layer %s has no data cells", ErrTractMismatch, li.Name)
			}
			if kind.Type.IsTuft() && (kind.Tuft < 0 || kind.Tuft >= len(li.Cell.Tufts)) {
				return nil, fmt.Errorf("%w: layer %s has no tuft %d", ErrTractMismatch, li.Name, kind.Tuft)
			}
		}
	}
	sm := &Sampler{Area: area, AreaId: am.Id, Kind: kind, BufKind: bufKind, Backpressure: backpressure,
		ch: make(chan *SampleFrame, bufKind.Capacity())}
	th.smMu.Lock()
	th.samplers = append(th.samplers, sm)
	th.smMu.Unlock()
	return &Receiver{C: sm.ch, sm: sm, th: th}, nil
}

// SamplersFor returns the samplers registered on an area.
func (th *Thalamus) SamplersFor(areaId uint32) []*Sampler {
	th.smMu.Lock()
	defer th.smMu.Unlock()
	var sms []*Sampler
	for _, sm := range th.samplers {
		if sm.AreaId == areaId {
			sms = append(sms, sm)
		}
	}
	return sms
}

func (th *Thalamus) removeSampler(sm *Sampler) {
	th.smMu.Lock()
	defer th.smMu.Unlock()
	for i, s := range th.samplers {
		if s == sm {
			th.samplers = append(th.samplers[:i], th.samplers[i+1:]...)
			return
		}
	}
}

// Finish drains the thalamus queue.
func (th *Thalamus) Finish() error {
	return th.Queue.Finish()
}
