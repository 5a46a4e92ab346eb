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

// Pyramidal is the distal, sequence learning population. Its soma is the
// best tuft state, and a cell whose distal tuft is active is predictive.
// Minicolumns choose the winners when present; otherwise every cell with a
// dendrite over threshold wins.
type Pyramidal struct {
	dataCells

	// minicolumn flags read by learning, nil without minicolumns
	mcolFlags *compute.Buffer[uint8]
}

// NewPyramidal lays out a pyramidal layer.
func NewPyramidal(dv *compute.Device, am *layermap.AreaMap, li *layermap.LayerInfo, ax *AxonSpace) (*Pyramidal, error) {
	py := &Pyramidal{}
	if err := py.init(dv, am, li, ax); err != nil {
		return nil, err
	}
	return py, nil
}

// buildCycle adds the tuft kernels and the soma kernel. Argument 0 of the
// soma kernel is 1 when the layer selects its own winners.
func (py *Pyramidal) buildCycle(ag *AreaGraph) error {
	tt := py.tufts
	if err := tt.build(ag, py.ax); err != nil {
		return err
	}
	cd := py.cd
	nt := uint32(len(tt.Tufts))
	distal := make([]bool, nt)
	thresh := make([]uint8, nt)
	for i, tf := range tt.Tufts {
		distal[i] = tf.Scheme.DenKind == layermap.Distal
		thresh[i] = tf.Thresh
	}
	bst, braw := tt.BestDenStates.Data, tt.BestDenStatesRaw.Data
	soma, act, flags := py.soma.States.Data, py.soma.Activities.Data, py.soma.FlagSets.Data
	axons := py.ax.Axons.Data
	axz := py.axz
	kn, err := ag.NewKernel(py.info.Name+":soma", 1, func(v, u uint32, args []uint32) {
		selfWin := args[0] != 0
		for slc := uint32(0); slc < cd.Depth; slc++ {
			ci := py.cellIdx(slc, v, u)
			best := uint8(0)
			pred := false
			win := false
			for t := uint32(0); t < nt; t++ {
				ti := t*tt.NCells + ci
				if bst[ti] > best {
					best = bst[ti]
				}
				if distal[t] && bst[ti] > 0 {
					pred = true
				}
				if braw[ti] >= thresh[t] && braw[ti] > 0 {
					win = true
				}
			}
			fl := flags[ci] &^ (CellFlagPredictive | CellFlagPrevPredictive)
			if flags[ci]&CellFlagPredictive != 0 {
				fl |= CellFlagPrevPredictive
			}
			if pred {
				fl |= CellFlagPredictive
			}
			if selfWin {
				fl &^= CellFlagWinner
				if win {
					fl |= CellFlagWinner
				}
			}
			flags[ci] = fl
			soma[ci] = best
			act[ci] = uint8((7*int(act[ci]) + int(best)) >> ActivityShift)
			axons[axz+ci] = best
		}
	})
	if err != nil {
		return err
	}
	srcs := []compute.MemBlock{tt.BestDenStates.All(), tt.BestDenStatesRaw.All()}
	tgts := []compute.MemBlock{py.soma.States.All(), py.soma.Activities.All(), py.soma.FlagSets.All(), py.axBlk}
	py.somaStep, err = ag.AddKernel(kn, srcs, tgts)
	return err
}

// buildLearn adds one learn kernel per tuft. Winners promote the active
// synapses of their best dendrite and demote the rest; predictive cells of
// inactive minicolumns demote the active synapses of their best dendrite.
func (py *Pyramidal) buildLearn(ag *AreaGraph, mc *Minicolumns) error {
	tt := py.tufts
	sy := tt.Dens.Syns
	flags := py.soma.FlagSets.Data
	var mflags []uint8
	if mc != nil {
		py.mcolFlags = mc.Flags
		mflags = mc.Flags.Data
	}
	ucols := py.cd.USize
	for _, tf := range tt.Tufts {
		tg := &tf.Geom
		tz := uint32(tf.Idx) * tt.NCells
		ids := tt.BestDenIds.Data
		kn, err := ag.NewKernel(fmt.Sprintf("%s:tft%d:learn", py.info.Name, tf.Idx), 1, func(v, u uint32, args []uint32) {
			useMcols := args[0] != 0 && mflags != nil
			colActive := useMcols && mflags[v*ucols+u]&McolFlagActive != 0
			for slc := uint32(0); slc < tg.Depth; slc++ {
				ci := tg.CellIdx(slc, v, u)
				fl := flags[ci]
				di := tg.DenIdx(slc, v, u, uint32(ids[tz+ci]))
				switch {
				case fl&CellFlagWinner != 0:
					sy.learnByFlag(tg.DenSynIdz(di), tg.Syns)
				case useMcols && !colActive && fl&CellFlagPredictive != 0:
					sy.punishActive(tg.DenSynIdz(di), tg.Syns)
				}
			}
		})
		if err != nil {
			return err
		}
		off, n := int(tg.SynIdz), int(tg.NSyns())
		srcs := []compute.MemBlock{py.soma.FlagSets.All(), tt.Block(tt.BestDenIds, tf.Idx), sy.FlagSets.Block(off, n)}
		if mc != nil {
			srcs = append(srcs, mc.Flags.All())
		}
		st, err := ag.AddKernel(kn, srcs, []compute.MemBlock{sy.Strengths.Block(off, n)})
		if err != nil {
			return err
		}
		py.learnSteps = append(py.learnSteps, st)
	}
	return nil
}

// Cycle runs the tufts and the soma, selecting winners itself.
func (py *Pyramidal) Cycle(ag *AreaGraph, rng *rnd.XorShift) error {
	return py.cycle(ag, rng, true)
}

// cycle runs the tufts and the soma; selfWin is false when minicolumns
// select the winners.
func (py *Pyramidal) cycle(ag *AreaGraph, rng *rnd.XorShift, selfWin bool) error {
	if err := py.tufts.cycle(ag, rng); err != nil {
		return err
	}
	py.somaStep.Kn.SetArg(0, boolArg(selfWin))
	return ag.Run(py.somaStep)
}

// Learn runs the learn kernels, with minicolumn feedback when the area's
// minicolumns are enabled.
func (py *Pyramidal) Learn(ag *AreaGraph) error {
	return py.learn(ag, py.mcolFlags != nil)
}

func (py *Pyramidal) learn(ag *AreaGraph, useMcols bool) error {
	for _, st := range py.learnSteps {
		st.Kn.SetArg(0, boolArg(useMcols))
	}
	return py.runLearn(ag)
}

func boolArg(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
