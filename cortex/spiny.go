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

// SpinyStellate is the proximal, feedforward driven population. Its soma is
// the best tuft state; an inhibition layer usually decides which somas
// reach the axons.
type SpinyStellate struct {
	dataCells
}

// NewSpinyStellate lays out a spiny stellate layer.
func NewSpinyStellate(dv *compute.Device, am *layermap.AreaMap, li *layermap.LayerInfo, ax *AxonSpace) (*SpinyStellate, error) {
	ss := &SpinyStellate{}
	if err := ss.init(dv, am, li, ax); err != nil {
		return nil, err
	}
	return ss, nil
}

// buildCycle adds the tuft kernels and the soma kernel.
func (ss *SpinyStellate) buildCycle(ag *AreaGraph) error {
	tt := ss.tufts
	if err := tt.build(ag, ss.ax); err != nil {
		return err
	}
	cd := ss.cd
	nt := uint32(len(tt.Tufts))
	tst := tt.States.Data
	soma, en, act := ss.soma.States.Data, ss.soma.Energies.Data, ss.soma.Activities.Data
	axons := ss.ax.Axons.Data
	axz := ss.axz
	kn, err := ag.NewKernel(ss.info.Name+":soma", 0, func(v, u uint32, args []uint32) {
		for slc := uint32(0); slc < cd.Depth; slc++ {
			ci := ss.cellIdx(slc, v, u)
			best := uint8(0)
			for t := uint32(0); t < nt; t++ {
				if s := tst[t*tt.NCells+ci]; s > best {
					best = s
				}
			}
			if axons[axz+ci] > 0 {
				en[ci] = 0
			} else if e := int(en[ci]) + CellEnergyInc; e > 255 {
				en[ci] = 255
			} else {
				en[ci] = uint8(e)
			}
			soma[ci] = best
			act[ci] = uint8((7*int(act[ci]) + int(best)) >> ActivityShift)
			axons[axz+ci] = best
		}
	})
	if err != nil {
		return err
	}
	srcs := []compute.MemBlock{tt.States.All()}
	tgts := []compute.MemBlock{ss.soma.States.All(), ss.soma.Energies.All(), ss.soma.Activities.All(), ss.axBlk}
	ss.somaStep, err = ag.AddKernel(kn, srcs, tgts)
	return err
}

// buildLearn adds one learn kernel per tuft: a cell whose axon fired
// promotes the active synapses of its best dendrite and demotes the rest.
func (ss *SpinyStellate) buildLearn(ag *AreaGraph) error {
	tt := ss.tufts
	sy := tt.Dens.Syns
	axons := ss.ax.Axons.Data
	axz := ss.axz
	for _, tf := range tt.Tufts {
		tg := &tf.Geom
		tz := uint32(tf.Idx) * tt.NCells
		ids := tt.BestDenIds.Data
		kn, err := ag.NewKernel(fmt.Sprintf("%s:tft%d:learn", ss.info.Name, tf.Idx), 0, func(v, u uint32, args []uint32) {
			for slc := uint32(0); slc < tg.Depth; slc++ {
				ci := tg.CellIdx(slc, v, u)
				if axons[axz+ci] == 0 {
					continue
				}
				di := tg.DenIdx(slc, v, u, uint32(ids[tz+ci]))
				sy.learnByState(tg.DenSynIdz(di), tg.Syns)
			}
		})
		if err != nil {
			return err
		}
		off, n := int(tg.SynIdz), int(tg.NSyns())
		srcs := []compute.MemBlock{ss.axBlk, tt.Block(tt.BestDenIds, tf.Idx), sy.States.Block(off, n)}
		st, err := ag.AddKernel(kn, srcs, []compute.MemBlock{sy.Strengths.Block(off, n)})
		if err != nil {
			return err
		}
		ss.learnSteps = append(ss.learnSteps, st)
	}
	return nil
}

// Cycle runs the tufts and the soma.
func (ss *SpinyStellate) Cycle(ag *AreaGraph, rng *rnd.XorShift) error {
	if err := ss.tufts.cycle(ag, rng); err != nil {
		return err
	}
	return ag.Run(ss.somaStep)
}

// Learn runs the learn kernels.
func (ss *SpinyStellate) Learn(ag *AreaGraph) error {
	return ss.runLearn(ag)
}
