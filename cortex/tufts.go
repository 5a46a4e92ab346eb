// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cortex

import (
	"fmt"

	"github.com/emer/cortex/compute"
	"github.com/emer/cortex/layermap"
	"github.com/emer/cortex/rnd"
)

// Tuft is one group of dendrites of every cell of a layer, fed by the same
// source layers.
type Tuft struct {
	Idx    int
	Scheme *layermap.TuftScheme
	Geom   TuftGeom
	Gen    *SynSrcGen
	Thresh uint8

	synCycle *Step
	synFlags *Step
	denCycle *Step
	best     *Step
}

// Tufts holds the tufts of a data layer with their dendrites, and the per
// cell reductions of each tuft. Per cell buffers are laid out tuft major:
// tuft * NCells + cell.
type Tufts struct {
	Layer  string
	Tufts  []*Tuft
	NCells uint32
	Dens   *Dendrites

	// best dendrite state of each tuft
	States *compute.Buffer[uint8]

	BestDenIds       *compute.Buffer[uint8]
	BestDenStatesRaw *compute.Buffer[uint8]
	BestDenStates    *compute.Buffer[uint8]

	// values of the previous cycle
	PrevBestDenIds       *compute.Buffer[uint8]
	PrevBestDenStatesRaw *compute.Buffer[uint8]
	PrevBestDenStates    *compute.Buffer[uint8]
}

// NewTufts lays out the tufts of layer li and resolves their sources.
func NewTufts(dv *compute.Device, am *layermap.AreaMap, li *layermap.LayerInfo) (*Tufts, error) {
	if li.Cell == nil || len(li.Cell.Tufts) == 0 {
		return nil, fmt.Errorf("%w: area %s layer %s has no tufts", layermap.ErrLayerResolution, am.Name, li.Name)
	}
	tt := &Tufts{Layer: li.Name, NCells: li.Depth * am.VSize * am.USize}
	var denIdz, synIdz uint32
	for i := range li.Cell.Tufts {
		ts := &li.Cell.Tufts[i]
		if err := ts.Validate(); err != nil {
			return nil, fmt.Errorf("area %s layer %s tuft %d: %w", am.Name, li.Name, i, err)
		}
		gen, err := NewSynSrcGen(ts, am)
		if err != nil {
			return nil, err
		}
		tf := &Tuft{Idx: i, Scheme: ts, Gen: gen, Thresh: ts.Thresh,
			Geom: TuftGeom{DenIdz: denIdz, SynIdz: synIdz, Depth: li.Depth, VSize: am.VSize, USize: am.USize,
				Dens: ts.DensPerTft, Syns: ts.SynsPerDen}}
		if tf.Thresh == 0 {
			tf.Thresh = DenThreshInit
		}
		denIdz += tf.Geom.NDens()
		synIdz += tf.Geom.NSyns()
		tt.Tufts = append(tt.Tufts, tf)
	}
	name := am.Name + ":" + li.Name
	tt.Dens = NewDendrites(dv, name, int(denIdz), int(synIdz))
	for _, tf := range tt.Tufts {
		tt.Dens.initThresholds(&tf.Geom, tf.Thresh)
	}
	n := len(tt.Tufts) * int(tt.NCells)
	tt.States = compute.NewBuffer[uint8](dv, name+":tft_states", n)
	tt.BestDenIds = compute.NewBuffer[uint8](dv, name+":tft_best_den_ids", n)
	tt.BestDenStatesRaw = compute.NewBuffer[uint8](dv, name+":tft_best_den_states_raw", n)
	tt.BestDenStates = compute.NewBuffer[uint8](dv, name+":tft_best_den_states", n)
	tt.PrevBestDenIds = compute.NewBuffer[uint8](dv, name+":tft_prev_best_den_ids", n)
	tt.PrevBestDenStatesRaw = compute.NewBuffer[uint8](dv, name+":tft_prev_best_den_states_raw", n)
	tt.PrevBestDenStates = compute.NewBuffer[uint8](dv, name+":tft_prev_best_den_states", n)
	return tt, nil
}

// Block returns the block of tuft ti in a per cell tuft buffer.
func (tt *Tufts) Block(bf *compute.Buffer[uint8], ti int) compute.MemBlock {
	return bf.Block(ti*int(tt.NCells), int(tt.NCells))
}

// Bytes returns the device memory used.
func (tt *Tufts) Bytes() int {
	return 7*tt.States.Len() + tt.Dens.Bytes()
}

// build adds the synapse, flag, dendrite and best dendrite kernels of
// every tuft.
func (tt *Tufts) build(ag *AreaGraph, ax *AxonSpace) error {
	var err error
	for _, tf := range tt.Tufts {
		if tf.synCycle, err = tt.Dens.Syns.buildCycle(ag, tf, ax); err != nil {
			return err
		}
		if tf.synFlags, err = tt.Dens.Syns.buildFlags(ag, tf); err != nil {
			return err
		}
		if tf.denCycle, err = tt.Dens.buildCycle(ag, tf); err != nil {
			return err
		}
		if tf.best, err = tt.buildBest(ag, tf); err != nil {
			return err
		}
	}
	return nil
}

// buildBest adds the kernel selecting the best dendrite of each cell in a
// tuft, after saving the previous selection. Ties go to the lowest id.
func (tt *Tufts) buildBest(ag *AreaGraph, tf *Tuft) (*Step, error) {
	tg := &tf.Geom
	dst, draw := tt.Dens.States.Data, tt.Dens.StatesRaw.Data
	ts := tt.States.Data
	ids, raws, sts := tt.BestDenIds.Data, tt.BestDenStatesRaw.Data, tt.BestDenStates.Data
	pids, praws, psts := tt.PrevBestDenIds.Data, tt.PrevBestDenStatesRaw.Data, tt.PrevBestDenStates.Data
	tz := uint32(tf.Idx) * tt.NCells
	kn, err := ag.NewKernel(fmt.Sprintf("%s:tft%d:best_den", tt.Dens.Name, tf.Idx), 0, func(v, u uint32, args []uint32) {
		for slc := uint32(0); slc < tg.Depth; slc++ {
			ci := tz + tg.CellIdx(slc, v, u)
			pids[ci], praws[ci], psts[ci] = ids[ci], raws[ci], sts[ci]
			d0 := tg.DenIdx(slc, v, u, 0)
			best := uint32(0)
			for d := uint32(1); d < tg.Dens; d++ {
				if dst[d0+d] > dst[d0+best] {
					best = d
				}
			}
			ids[ci] = uint8(best)
			raws[ci] = draw[d0+best]
			sts[ci] = dst[d0+best]
			ts[ci] = sts[ci]
		}
	})
	if err != nil {
		return nil, err
	}
	srcs := []compute.MemBlock{tt.Dens.block(tt.Dens.States, tg), tt.Dens.block(tt.Dens.StatesRaw, tg)}
	var tgts []compute.MemBlock
	for _, bf := range []*compute.Buffer[uint8]{tt.States, tt.BestDenIds, tt.BestDenStatesRaw, tt.BestDenStates,
		tt.PrevBestDenIds, tt.PrevBestDenStatesRaw, tt.PrevBestDenStates} {
		tgts = append(tgts, tt.Block(bf, tf.Idx))
	}
	return ag.AddKernel(kn, srcs, tgts)
}

// cycle runs every tuft: synapses, flags, dendrites, best dendrite. The
// dendrite kernels get a fresh seed from rng each call.
func (tt *Tufts) cycle(ag *AreaGraph, rng *rnd.XorShift) error {
	for _, tf := range tt.Tufts {
		if err := ag.Run(tf.synCycle); err != nil {
			return err
		}
		if err := ag.Run(tf.synFlags); err != nil {
			return err
		}
		tf.denCycle.Kn.SetArg(0, rng.Next())
		if err := ag.Run(tf.denCycle); err != nil {
			return err
		}
		if err := ag.Run(tf.best); err != nil {
			return err
		}
	}
	return nil
}

// Regrow regrows the synapses of every tuft. The queue must be idle.
func (tt *Tufts) Regrow(q *compute.Queue, init bool, rng *rnd.XorShift) (int, error) {
	total := 0
	for _, tf := range tt.Tufts {
		n, err := tt.Dens.Syns.Regrow(q, tf, init, rng)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// SynBlocks returns every synapse attribute block of every tuft.
func (tt *Tufts) SynBlocks() []compute.MemBlock {
	var bl []compute.MemBlock
	for _, tf := range tt.Tufts {
		bl = append(bl, tt.Dens.Syns.AllBlocks(&tf.Geom)...)
	}
	return bl
}
