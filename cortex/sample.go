// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cortex

import (
	"fmt"

	"github.com/emer/cortex/compute"
	"github.com/emer/cortex/layermap"
	"github.com/emer/cortex/thalamus"
)

// Sample copies the state selected by kind into a new frame. Errors are
// reported in the frame. The area's queue must be idle.
func (ar *CorticalArea) Sample(kind thalamus.SamplerKind) *thalamus.SampleFrame {
	sf := &thalamus.SampleFrame{Area: ar.Name, Tick: ar.Time.Tick, Kind: kind}
	if err := ar.sample(sf); err != nil {
		sf.Err = fmt.Errorf("area %s sample %v: %w", ar.Name, kind.Type, err)
	}
	return sf
}

func readU8(q *compute.Queue, bf *compute.Buffer[uint8], off, n int) ([]byte, error) {
	d := make([]byte, n)
	return d, compute.ReadBlocking(q, bf, off, d, nil)
}

func readI8(q *compute.Queue, bf *compute.Buffer[int8], off, n int) ([]byte, error) {
	v := make([]int8, n)
	if err := compute.ReadBlocking(q, bf, off, v, nil); err != nil {
		return nil, err
	}
	d := make([]byte, n)
	for i, x := range v {
		d[i] = byte(x)
	}
	return d, nil
}

func (ar *CorticalArea) sample(sf *thalamus.SampleFrame) error {
	q := ar.Graph.Queue
	kind := sf.Kind
	if kind.Type == thalamus.Axons {
		return ar.sampleAxons(sf)
	}
	if kind.Addr == nil {
		return fmt.Errorf("%w: no layer address", thalamus.ErrTractMismatch)
	}
	li, err := ar.Map.LayerContainingTags(kind.Addr.Tags)
	if err != nil {
		return err
	}
	dl, err := ar.DataLayer(li.Name)
	if err != nil {
		return err
	}
	cd := dl.Dims()
	cells := []int{int(cd.Depth), int(cd.VSize), int(cd.USize)}
	cellNms := []string{"Slc", "V", "U"}
	sm := dl.Soma()
	switch kind.Type {
	case thalamus.SomaStates, thalamus.SomaEnergies, thalamus.SomaActivities, thalamus.SomaFlagSets:
		bf := map[thalamus.SamplerType]*compute.Buffer[uint8]{
			thalamus.SomaStates: sm.States, thalamus.SomaEnergies: sm.Energies,
			thalamus.SomaActivities: sm.Activities, thalamus.SomaFlagSets: sm.FlagSets,
		}[kind.Type]
		sf.Shape.SetShape(cells, nil, cellNms)
		sf.Range = [2]uint32{0, uint32(bf.Len())}
		sf.Data, err = readU8(q, bf, 0, bf.Len())
		return err
	}

	tt := dl.Tufts()
	if kind.Tuft < 0 || kind.Tuft >= len(tt.Tufts) {
		return fmt.Errorf("%w: layer %s has no tuft %d", thalamus.ErrTractMismatch, li.Name, kind.Tuft)
	}
	tf := tt.Tufts[kind.Tuft]
	tg := &tf.Geom
	switch kind.Type {
	case thalamus.TuftStates, thalamus.TuftBestDenIds, thalamus.TuftBestDenStatesRaw, thalamus.TuftBestDenStates,
		thalamus.TuftPrevBestDenIds, thalamus.TuftPrevBestDenStatesRaw, thalamus.TuftPrevBestDenStates:
		bf := map[thalamus.SamplerType]*compute.Buffer[uint8]{
			thalamus.TuftStates: tt.States, thalamus.TuftBestDenIds: tt.BestDenIds,
			thalamus.TuftBestDenStatesRaw: tt.BestDenStatesRaw, thalamus.TuftBestDenStates: tt.BestDenStates,
			thalamus.TuftPrevBestDenIds: tt.PrevBestDenIds, thalamus.TuftPrevBestDenStatesRaw: tt.PrevBestDenStatesRaw,
			thalamus.TuftPrevBestDenStates: tt.PrevBestDenStates,
		}[kind.Type]
		off, n := kind.Tuft*int(tt.NCells), int(tt.NCells)
		sf.Shape.SetShape(cells, nil, cellNms)
		sf.Range = [2]uint32{uint32(off), uint32(off + n)}
		sf.Data, err = readU8(q, bf, off, n)
		return err
	case thalamus.DenStates, thalamus.DenStatesRaw, thalamus.DenEnergies, thalamus.DenActivities, thalamus.DenThresholds:
		dn := tt.Dens
		bf := map[thalamus.SamplerType]*compute.Buffer[uint8]{
			thalamus.DenStates: dn.States, thalamus.DenStatesRaw: dn.StatesRaw, thalamus.DenEnergies: dn.Energies,
			thalamus.DenActivities: dn.Activities, thalamus.DenThresholds: dn.Thresholds,
		}[kind.Type]
		off, n := int(tg.DenIdz), int(tg.NDens())
		sf.Shape.SetShape(append(cells, int(tg.Dens)), nil, append(cellNms, "Den"))
		sf.Range = [2]uint32{uint32(off), uint32(off + n)}
		sf.Data, err = readU8(q, bf, off, n)
		return err
	}

	sy := tt.Dens.Syns
	off, n := int(tg.SynIdz), int(tg.NSyns())
	sf.Shape.SetShape(append(cells, int(tg.Dens), int(tg.Syns)), nil, append(cellNms, "Den", "Syn"))
	sf.Range = [2]uint32{uint32(off), uint32(off + n)}
	switch kind.Type {
	case thalamus.SynStates:
		sf.Data, err = readU8(q, sy.States, off, n)
	case thalamus.SynSrcSlcIds:
		sf.Data, err = readU8(q, sy.SrcSlcIds, off, n)
	case thalamus.SynFlagSets:
		sf.Data, err = readU8(q, sy.FlagSets, off, n)
	case thalamus.SynStrengths:
		sf.Data, err = readI8(q, sy.Strengths, off, n)
	case thalamus.SynSrcColVOffs:
		sf.Data, err = readI8(q, sy.SrcColVOffs, off, n)
	case thalamus.SynSrcColUOffs:
		sf.Data, err = readI8(q, sy.SrcColUOffs, off, n)
	default:
		err = fmt.Errorf("%w: unknown sampler type %v", thalamus.ErrTractMismatch, kind.Type)
	}
	return err
}

// sampleAxons copies the whole axon space, or the slices of one layer.
func (ar *CorticalArea) sampleAxons(sf *thalamus.SampleFrame) error {
	r := layermap.Range{Z: 0, N: ar.Map.NSlices}
	var li *layermap.LayerInfo
	if sf.Kind.Addr != nil {
		var err error
		if li, err = ar.Map.LayerContainingTags(sf.Kind.Addr.Tags); err != nil {
			return err
		}
		r = li.SlcRange
	}
	st, n, err := ar.Axons.Range(r)
	if err != nil {
		return err
	}
	if li != nil && !li.IsInput() {
		sf.Shape.SetShape([]int{int(li.Depth), int(ar.Map.VSize), int(ar.Map.USize)}, nil, []string{"Slc", "V", "U"})
	} else {
		sf.Shape.SetShape([]int{int(n)}, nil, []string{"Axon"})
	}
	sf.Range = [2]uint32{st, st + n}
	sf.Data, err = readU8(ar.Graph.Queue, ar.Axons.Axons, int(st), int(n))
	return err
}
