// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cortex

import (
	"fmt"

	"github.com/emer/cortex/compute"
	"github.com/emer/cortex/dims"
	"github.com/emer/cortex/layermap"
)

// AxonSpace is the flat axon buffer of an area: every slice stacked, each
// starting at its SliceMap Idz.
type AxonSpace struct {
	Axons  *compute.Buffer[uint8]
	Slices *layermap.SliceMap
}

// NewAxonSpace allocates the axons of an area.
func NewAxonSpace(dv *compute.Device, name string, sm *layermap.SliceMap) *AxonSpace {
	return &AxonSpace{Axons: compute.NewBuffer[uint8](dv, name+":axons", int(sm.AxonCount())), Slices: sm}
}

// Range returns the axon index range [start, start+n) of a slice range.
func (ax *AxonSpace) Range(r layermap.Range) (start, n uint32, err error) {
	st, ed, err := ax.Slices.AxonRange(r)
	if err != nil {
		return 0, 0, err
	}
	return st, ed - st, nil
}

// Block returns the memory block of a slice range.
func (ax *AxonSpace) Block(r layermap.Range) (compute.MemBlock, error) {
	st, n, err := ax.Range(r)
	if err != nil {
		return compute.MemBlock{}, err
	}
	return ax.Axons.Block(int(st), int(n)), nil
}

// SliceBlocks returns one block per listed slice.
func (ax *AxonSpace) SliceBlocks(slcs []uint8) []compute.MemBlock {
	bl := make([]compute.MemBlock, 0, len(slcs))
	for _, s := range slcs {
		bl = append(bl, ax.Axons.Block(int(ax.Slices.Idzs[s]), int(ax.Slices.Dims[s].Columns())))
	}
	return bl
}

// Write enqueues a host write of vals into slice slc. vals must hold one
// value per column of the slice.
func (ax *AxonSpace) Write(q *compute.Queue, slc uint32, vals []uint8, wait compute.EventList) (*compute.Event, error) {
	idz, err := ax.Slices.Idz(slc)
	if err != nil {
		return nil, err
	}
	if n := ax.Slices.Dims[slc].Columns(); uint32(len(vals)) != n {
		return nil, fmt.Errorf("%w: %d values for slice %d of %d columns", dims.ErrDimensionMismatch, len(vals), slc, n)
	}
	return compute.EnqueueWrite(q, ax.Axons, int(idz), vals, wait)
}
