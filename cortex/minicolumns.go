// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cortex

import (
	"github.com/emer/cortex/compute"
	"github.com/emer/cortex/rnd"
)

// Minicolumns joins the spiny stellate and pyramidal cells of each column.
// A column is active when one of its spiny stellate cells survived
// inhibition. Active columns pick winners among their pyramidal cells;
// winners fire with the column state, and a column without one bursts.
type Minicolumns struct {
	Name  string
	VSize uint32
	USize uint32

	// max spiny stellate soma of the column
	States *compute.Buffer[uint8]

	// McolFlagActive and McolFlagBurst
	Flags *compute.Buffer[uint8]

	// max pyramidal soma of the column
	BestDenStates *compute.Buffer[uint8]

	Ssts *SpinyStellate
	Pyrs *Pyramidal

	activate *Step
	output   *Step
}

// NewMinicolumns returns the minicolumns of an area joining ss and py.
func NewMinicolumns(dv *compute.Device, name string, ss *SpinyStellate, py *Pyramidal) *Minicolumns {
	cols := int(py.cd.Columns())
	return &Minicolumns{Name: name, VSize: py.cd.VSize, USize: py.cd.USize, Ssts: ss, Pyrs: py,
		States:        compute.NewBuffer[uint8](dv, name+":mcol_states", cols),
		Flags:         compute.NewBuffer[uint8](dv, name+":mcol_flags", cols),
		BestDenStates: compute.NewBuffer[uint8](dv, name+":mcol_best_den_states", cols),
	}
}

// buildActivate adds the activation kernel. Argument 0 is 1 when every
// pyramidal cell at the column max wins, argument 1 the tie-break seed.
func (mc *Minicolumns) buildActivate(ag *AreaGraph) error {
	ss, py := &mc.Ssts.dataCells, &mc.Pyrs.dataCells
	sdepth, pdepth := ss.cd.Depth, py.cd.Depth
	ssoma, saxons := ss.soma.States.Data, ss.ax.Axons.Data
	psoma, pflags := py.soma.States.Data, py.soma.FlagSets.Data
	ssz := ss.axz
	st, fl, bds := mc.States.Data, mc.Flags.Data, mc.BestDenStates.Data
	kn, err := ag.NewKernel(mc.Name+":activate", 2, func(v, u uint32, args []uint32) {
		all := args[0] != 0
		seed := args[1]
		col := v*mc.USize + u
		cs := uint8(0)
		active := false
		for slc := uint32(0); slc < sdepth; slc++ {
			ci := ss.cellIdx(slc, v, u)
			if ssoma[ci] > cs {
				cs = ssoma[ci]
			}
			if saxons[ssz+ci] > 0 {
				active = true
			}
		}
		best := uint8(0)
		for slc := uint32(0); slc < pdepth; slc++ {
			if s := psoma[py.cellIdx(slc, v, u)]; s > best {
				best = s
			}
		}
		st[col], bds[col] = cs, best
		for slc := uint32(0); slc < pdepth; slc++ {
			pflags[py.cellIdx(slc, v, u)] &^= CellFlagWinner
		}
		nwin := 0
		if active && best > 0 {
			if all {
				for slc := uint32(0); slc < pdepth; slc++ {
					ci := py.cellIdx(slc, v, u)
					if psoma[ci] == best {
						pflags[ci] |= CellFlagWinner
						nwin++
					}
				}
			} else {
				win := ^uint32(0)
				var wh uint32
				for slc := uint32(0); slc < pdepth; slc++ {
					ci := py.cellIdx(slc, v, u)
					if psoma[ci] != best {
						continue
					}
					if h := rnd.Hash(seed, ci); win == ^uint32(0) || h > wh {
						win, wh = ci, h
					}
				}
				pflags[win] |= CellFlagWinner
				nwin = 1
			}
		}
		f := uint8(0)
		if active {
			f |= McolFlagActive
			if nwin == 0 {
				f |= McolFlagBurst
			}
		}
		fl[col] = f
	})
	if err != nil {
		return err
	}
	srcs := []compute.MemBlock{ss.soma.States.All(), ss.axBlk, py.soma.States.All()}
	tgts := []compute.MemBlock{mc.States.All(), mc.Flags.All(), mc.BestDenStates.All(), py.soma.FlagSets.All()}
	mc.activate, err = ag.AddKernel(kn, srcs, tgts)
	return err
}

// buildOutput adds the kernel writing the pyramidal axons: in an active
// column winners fire with the column state, or every cell when it bursts;
// inactive columns are silent.
func (mc *Minicolumns) buildOutput(ag *AreaGraph) error {
	py := &mc.Pyrs.dataCells
	pdepth := py.cd.Depth
	pflags, axons := py.soma.FlagSets.Data, py.ax.Axons.Data
	pz := py.axz
	st, fl := mc.States.Data, mc.Flags.Data
	kn, err := ag.NewKernel(mc.Name+":output", 0, func(v, u uint32, args []uint32) {
		col := v*mc.USize + u
		f := fl[col]
		for slc := uint32(0); slc < pdepth; slc++ {
			ci := py.cellIdx(slc, v, u)
			switch {
			case f&McolFlagActive == 0:
				axons[pz+ci] = 0
			case f&McolFlagBurst != 0 || pflags[ci]&CellFlagWinner != 0:
				axons[pz+ci] = st[col]
			default:
				axons[pz+ci] = 0
			}
		}
	})
	if err != nil {
		return err
	}
	srcs := []compute.MemBlock{mc.States.All(), mc.Flags.All(), py.soma.FlagSets.All()}
	mc.output, err = ag.AddKernel(kn, srcs, []compute.MemBlock{py.axBlk})
	return err
}

// Activate computes column states and selects winners.
func (mc *Minicolumns) Activate(ag *AreaGraph, bypass bool, rng *rnd.XorShift) error {
	mc.activate.Kn.SetArg(0, boolArg(bypass))
	mc.activate.Kn.SetArg(1, rng.Next())
	return ag.Run(mc.activate)
}

// Output writes the pyramidal axons from the column selection.
func (mc *Minicolumns) Output(ag *AreaGraph) error {
	return ag.Run(mc.output)
}
