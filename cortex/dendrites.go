// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cortex

import (
	"fmt"

	"github.com/emer/cortex/compute"
	"github.com/emer/cortex/rnd"
)

// Dendrites holds the dendrites of all tufts of one data layer, indexed by
// TuftGeom.DenIdx, and owns their synapses.
type Dendrites struct {
	Name string

	// thresholded state: raw if raw >= threshold, else the energy boost
	States *compute.Buffer[uint8]

	// strength-weighted mean of synapse states
	StatesRaw *compute.Buffer[uint8]

	// builds up while the dendrite stays below threshold
	Energies *compute.Buffer[uint8]

	// running average of States
	Activities *compute.Buffer[uint8]

	// per dendrite threshold
	Thresholds *compute.Buffer[uint8]

	Syns *Synapses
}

// NewDendrites allocates n dendrites with nSyns synapses in total.
func NewDendrites(dv *compute.Device, name string, n, nSyns int) *Dendrites {
	return &Dendrites{Name: name,
		States:     compute.NewBuffer[uint8](dv, name+":den_states", n),
		StatesRaw:  compute.NewBuffer[uint8](dv, name+":den_states_raw", n),
		Energies:   compute.NewBuffer[uint8](dv, name+":den_energies", n),
		Activities: compute.NewBuffer[uint8](dv, name+":den_activities", n),
		Thresholds: compute.NewBuffer[uint8](dv, name+":den_thresholds", n),
		Syns:       NewSynapses(dv, name, nSyns),
	}
}

// Len returns the number of dendrites.
func (dn *Dendrites) Len() int {
	return dn.States.Len()
}

// Bytes returns the device memory used, synapses included.
func (dn *Dendrites) Bytes() int {
	return 5*dn.Len() + dn.Syns.Bytes()
}

// initThresholds sets every dendrite of a tuft to thresh.
func (dn *Dendrites) initThresholds(tg *TuftGeom, thresh uint8) {
	d := dn.Thresholds.Data[tg.DenIdz : tg.DenIdz+tg.NDens()]
	for i := range d {
		d[i] = thresh
	}
}

// block returns a tuft's block of a dendrite buffer.
func (dn *Dendrites) block(bf *compute.Buffer[uint8], tg *TuftGeom) compute.MemBlock {
	return bf.Block(int(tg.DenIdz), int(tg.NDens()))
}

// buildCycle adds the kernel reducing synapse states into dendrite states.
// Argument 0 is the tick seed, mixed into the low bit of non-zero raw
// states to break ties between dendrites.
func (dn *Dendrites) buildCycle(ag *AreaGraph, tf *Tuft) (*Step, error) {
	tg := &tf.Geom
	sy := dn.Syns
	sst, sstr := sy.States.Data, sy.Strengths.Data
	st, raw, en, act, thr := dn.States.Data, dn.StatesRaw.Data, dn.Energies.Data, dn.Activities.Data, dn.Thresholds.Data
	kn, err := ag.NewKernel(fmt.Sprintf("%s:tft%d:den_cycle", dn.Name, tf.Idx), 1, func(v, u uint32, args []uint32) {
		seed := args[0]
		for slc := uint32(0); slc < tg.Depth; slc++ {
			d0 := tg.DenIdx(slc, v, u, 0)
			for di := d0; di < d0+tg.Dens; di++ {
				s0 := tg.DenSynIdz(di)
				sum := 0
				for s := s0; s < s0+tg.Syns; s++ {
					sum += (int(sst[s]) * (int(sstr[s]) + 128)) >> 7
				}
				r := sum / int(tg.Syns)
				if r > 255 {
					r = 255
				}
				if r > 0 {
					r = (r &^ 1) | int(rnd.Hash(seed, di)&1)
				}
				raw[di] = uint8(r)
				if r >= int(thr[di]) && r > 0 {
					st[di] = uint8(r)
					en[di] = 0
				} else {
					e := int(en[di]) + DenEnergyInc
					if e > 255 {
						e = 255
					}
					en[di] = uint8(e)
					st[di] = uint8(e >> DenEnergyShift)
				}
				act[di] = uint8((7*int(act[di]) + int(st[di])) >> ActivityShift)
			}
		}
	})
	if err != nil {
		return nil, err
	}
	off, n := int(tg.SynIdz), int(tg.NSyns())
	srcs := []compute.MemBlock{sy.States.Block(off, n), sy.Strengths.Block(off, n), dn.block(dn.Thresholds, tg)}
	tgts := []compute.MemBlock{dn.block(dn.States, tg), dn.block(dn.StatesRaw, tg), dn.block(dn.Energies, tg), dn.block(dn.Activities, tg)}
	return ag.AddKernel(kn, srcs, tgts)
}
