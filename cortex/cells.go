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

// Soma holds the per cell state of a data layer, indexed by
// TuftGeom.CellIdx.
type Soma struct {
	States     *compute.Buffer[uint8]
	Energies   *compute.Buffer[uint8]
	Activities *compute.Buffer[uint8]
	FlagSets   *compute.Buffer[uint8]
}

func newSoma(dv *compute.Device, name string, n int) *Soma {
	return &Soma{
		States:     compute.NewBuffer[uint8](dv, name+":soma_states", n),
		Energies:   compute.NewBuffer[uint8](dv, name+":soma_energies", n),
		Activities: compute.NewBuffer[uint8](dv, name+":soma_activities", n),
		FlagSets:   compute.NewBuffer[uint8](dv, name+":soma_flag_sets", n),
	}
}

// DataCellLayer is a layer of cells with dendrites: spiny stellate or
// pyramidal.
type DataCellLayer interface {
	Name() string
	Tags() layermap.LayerTags
	Dims() dims.CorticalDims

	// AxonSlices is the slice range of the layer's axons.
	AxonSlices() layermap.Range

	Soma() *Soma
	Tufts() *Tufts

	// Cycle runs synapses, dendrites and somas for one tick.
	Cycle(ag *AreaGraph, rng *rnd.XorShift) error

	// Learn adjusts synapse strengths from this tick's winners.
	Learn(ag *AreaGraph) error

	// Regrow redraws weak synapses, or every synapse with init. The
	// area's queue must be idle.
	Regrow(ag *AreaGraph, init bool, rng *rnd.XorShift) (int, error)
}

// dataCells is the state shared by data cell layers.
type dataCells struct {
	info  *layermap.LayerInfo
	cd    dims.CorticalDims
	soma  *Soma
	tufts *Tufts
	ax    *AxonSpace

	// first axon of the layer; cell idx maps to axz + idx
	axz   uint32
	axBlk compute.MemBlock

	somaStep   *Step
	learnSteps []*Step
}

func (dc *dataCells) init(dv *compute.Device, am *layermap.AreaMap, li *layermap.LayerInfo, ax *AxonSpace) error {
	if li.Depth == 0 {
		return fmt.Errorf("%w: area %s data layer %s has zero depth", dims.ErrDimensionMismatch, am.Name, li.Name)
	}
	dc.info = li
	dc.cd = am.LayerDims(li)
	dc.ax = ax
	tt, err := NewTufts(dv, am, li)
	if err != nil {
		return err
	}
	dc.tufts = tt
	dc.soma = newSoma(dv, am.Name+":"+li.Name, int(dc.cd.Cells()))
	st, n, err := ax.Range(li.SlcRange)
	if err != nil {
		return err
	}
	if n != dc.cd.Cells() {
		return fmt.Errorf("%w: layer %s has %d axons for %d cells", dims.ErrDimensionMismatch, li.Name, n, dc.cd.Cells())
	}
	dc.axz = st
	dc.axBlk = ax.Axons.Block(int(st), int(n))
	return nil
}

func (dc *dataCells) Name() string               { return dc.info.Name }
func (dc *dataCells) Tags() layermap.LayerTags   { return dc.info.Tags }
func (dc *dataCells) Dims() dims.CorticalDims    { return dc.cd }
func (dc *dataCells) AxonSlices() layermap.Range { return dc.info.SlcRange }
func (dc *dataCells) Soma() *Soma                { return dc.soma }
func (dc *dataCells) Tufts() *Tufts              { return dc.tufts }

// Bytes returns the device memory used by the layer.
func (dc *dataCells) Bytes() int {
	return 4*dc.soma.States.Len() + dc.tufts.Bytes()
}

// Regrow redraws the layer's synapses.
func (dc *dataCells) Regrow(ag *AreaGraph, init bool, rng *rnd.XorShift) (int, error) {
	return dc.tufts.Regrow(ag.Queue, init, rng)
}

// runLearn runs the learn kernels.
func (dc *dataCells) runLearn(ag *AreaGraph) error {
	for _, st := range dc.learnSteps {
		if err := ag.Run(st); err != nil {
			return err
		}
	}
	return nil
}

// cellIdx is the layer-local index of cell (slc, v, u).
func (dc *dataCells) cellIdx(slc, v, u uint32) uint32 {
	return (slc*dc.cd.VSize+v)*dc.cd.USize + u
}

// base gives package code access to the shared state of either layer kind.
func (dc *dataCells) base() *dataCells { return dc }
