// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cortex

import (
	"fmt"

	"github.com/emer/cortex/dims"
)

// TuftGeom locates one tuft inside its layer's dendrite and synapse arrays.
// Order within a tuft is slice, cell (v, u), dendrite, synapse.
type TuftGeom struct {
	DenIdz uint32
	SynIdz uint32
	Depth  uint32
	VSize  uint32
	USize  uint32
	Dens   uint32
	Syns   uint32
}

// Cols returns the number of columns.
func (tg *TuftGeom) Cols() uint32 { return tg.VSize * tg.USize }

// NCells returns the number of cells.
func (tg *TuftGeom) NCells() uint32 { return tg.Depth * tg.Cols() }

// NDens returns the number of dendrites in the tuft.
func (tg *TuftGeom) NDens() uint32 { return tg.NCells() * tg.Dens }

// NSyns returns the number of synapses in the tuft.
func (tg *TuftGeom) NSyns() uint32 { return tg.NDens() * tg.Syns }

// CellIdx is the layer-local cell index.
func (tg *TuftGeom) CellIdx(slc, v, u uint32) uint32 {
	return slc*tg.Cols() + v*tg.USize + u
}

// DenIdx is the layer-wide dendrite index.
func (tg *TuftGeom) DenIdx(slc, v, u, den uint32) uint32 {
	return tg.DenIdz + tg.CellIdx(slc, v, u)*tg.Dens + den
}

// SynIdx is the layer-wide synapse index:
// syn_idz + slc*cols*dens*syns + (v*u_size + u)*dens*syns + den*syns + syn.
func (tg *TuftGeom) SynIdx(slc, v, u, den, syn uint32) uint32 {
	return tg.SynIdz + (tg.CellIdx(slc, v, u)*tg.Dens+den)*tg.Syns + syn
}

// DenSynIdz returns the first synapse of a dendrite given its layer-wide index.
func (tg *TuftGeom) DenSynIdz(denIdx uint32) uint32 {
	return tg.SynIdz + (denIdx-tg.DenIdz)*tg.Syns
}

// SynCoord decomposes a layer-wide synapse index.
func (tg *TuftGeom) SynCoord(idx uint32) (slc, v, u, den, syn uint32, err error) {
	if idx < tg.SynIdz || idx >= tg.SynIdz+tg.NSyns() {
		return 0, 0, 0, 0, 0, fmt.Errorf("%w: synapse %d outside tuft [%d, %d)", dims.ErrBadIndex, idx, tg.SynIdz, tg.SynIdz+tg.NSyns())
	}
	r := idx - tg.SynIdz
	syn = r % tg.Syns
	r /= tg.Syns
	den = r % tg.Dens
	cell := r / tg.Dens
	slc = cell / tg.Cols()
	col := cell % tg.Cols()
	return slc, col / tg.USize, col % tg.USize, den, syn, nil
}
