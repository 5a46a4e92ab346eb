// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cortex

import (
	"fmt"

	"github.com/emer/cortex/compute"
	"github.com/emer/cortex/dims"
	"github.com/emer/cortex/layermap"
	"github.com/emer/cortex/rnd"
)

// Inhib applies competition to the somas of a target data layer and
// writes the result to the target's axons. In InhibSimple mode a cell
// keeps its soma only if it beats every cell of its slice within the hex
// radius; in InhibPassthrough mode, or when bypassed, somas pass unchanged.
type Inhib struct {
	Name   string
	Mode   layermap.InhibMode
	Radius int
	Target DataCellLayer

	// hex neighborhood, without the center
	offs []dims.Offset
	step *Step
}

// NewInhib returns the inhibition layer li acting on target.
func NewInhib(li *layermap.LayerInfo, target DataCellLayer) *Inhib {
	ih := &Inhib{Name: li.Name, Mode: li.Cell.InhibMode, Radius: int(li.Cell.InhibRadius), Target: target}
	for _, o := range dims.HexOffsets(ih.Radius) {
		if o.V != 0 || o.U != 0 {
			ih.offs = append(ih.offs, o)
		}
	}
	return ih
}

// beats reports whether cell a beats cell b: higher soma, then higher
// energy, then higher hash, then lower index.
func beats(soma, en []uint8, seed, a, b uint32) bool {
	if soma[a] != soma[b] {
		return soma[a] > soma[b]
	}
	if en[a] != en[b] {
		return en[a] > en[b]
	}
	ha, hb := rnd.Hash(seed, a), rnd.Hash(seed, b)
	if ha != hb {
		return ha > hb
	}
	return a < b
}

// build adds the inhibition kernel. Argument 0 is 1 to pass somas through,
// argument 1 is the tie-break seed.
func (ih *Inhib) build(ag *AreaGraph, dc *dataCells) error {
	cd := dc.cd
	soma, en := dc.soma.States.Data, dc.soma.Energies.Data
	axons := dc.ax.Axons.Data
	axz := dc.axz
	offs := ih.offs
	pass := ih.Mode == layermap.InhibPassthrough
	kn, err := ag.NewKernel(ih.Name+":inhib", 2, func(v, u uint32, args []uint32) {
		bypass := pass || args[0] != 0
		seed := args[1]
		for slc := uint32(0); slc < cd.Depth; slc++ {
			ci := dc.cellIdx(slc, v, u)
			if bypass || soma[ci] == 0 {
				axons[axz+ci] = soma[ci]
				continue
			}
			win := true
			for _, o := range offs {
				nv, nu := int(v)+int(o.V), int(u)+int(o.U)
				if nv < 0 || nu < 0 || nv >= int(cd.VSize) || nu >= int(cd.USize) {
					continue
				}
				ni := dc.cellIdx(slc, uint32(nv), uint32(nu))
				if beats(soma, en, seed, ni, ci) {
					win = false
					break
				}
			}
			if win {
				axons[axz+ci] = soma[ci]
			} else {
				axons[axz+ci] = 0
			}
		}
	})
	if err != nil {
		return err
	}
	srcs := []compute.MemBlock{dc.soma.States.All(), dc.soma.Energies.All()}
	ih.step, err = ag.AddKernel(kn, srcs, []compute.MemBlock{dc.axBlk})
	return err
}

// Cycle runs inhibition, or copies somas to axons when bypass is set.
func (ih *Inhib) Cycle(ag *AreaGraph, bypass bool, rng *rnd.XorShift) error {
	if ih.step == nil {
		return fmt.Errorf("%w: inhibition %s is not built", compute.ErrCommandUnsatisfied, ih.Name)
	}
	ih.step.Kn.SetArg(0, boolArg(bypass))
	ih.step.Kn.SetArg(1, rng.Next())
	return ag.Run(ih.step)
}
