// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package layermap

import (
	"fmt"

	"github.com/emer/cortex/dims"
)

// SliceMap is the per-slice geometry of an area's axon space. All lookups
// are constant time.
type SliceMap struct {
	Dims     []dims.SliceDims `json:"dims"`
	Idzs     []uint32         `json:"idzs"`
	LayerIds []int            `json:"layer_ids"`

	// per slice: index into the owning layer's Sources, or -1
	SrcIdxs []int `json:"src_idxs"`

	axonCount uint32
	am        *AreaMap
}

// NewSliceMap computes slice geometry for a frozen area map.
func NewSliceMap(am *AreaMap) (*SliceMap, error) {
	n := am.NSlices
	sm := &SliceMap{am: am,
		Dims:     make([]dims.SliceDims, n),
		Idzs:     make([]uint32, n),
		LayerIds: make([]int, n),
		SrcIdxs:  make([]int, n),
	}
	for _, li := range am.Layers {
		if !li.IsInput() {
			for s := li.SlcRange.Z; s < li.SlcRange.N; s++ {
				sm.Dims[s] = dims.NewLocalSlice(am.VSize, am.USize)
				sm.LayerIds[s] = li.Id
				sm.SrcIdxs[s] = -1
			}
			continue
		}
		for si := range li.Sources {
			src := &li.Sources[si]
			var sd dims.SliceDims
			var err error
			switch li.Topology {
			case AxonNonspatial:
				sd, err = dims.NewNonspatialSlice(src.Dims.VSize, src.Dims.USize)
			default:
				sd, err = dims.NewSpatialSlice(src.Dims.VSize, src.Dims.USize, am.VSize, am.USize)
			}
			if err != nil {
				return nil, fmt.Errorf("area %s layer %s source %s.%s: %w", am.Name, li.Name, src.AreaName, src.LayerName, err)
			}
			for s := src.SlcRange.Z; s < src.SlcRange.N; s++ {
				sm.Dims[s] = sd
				sm.LayerIds[s] = li.Id
				sm.SrcIdxs[s] = si
			}
		}
	}
	var idz uint32
	for s := range sm.Dims {
		sm.Idzs[s] = idz
		idz += sm.Dims[s].Columns()
	}
	sm.axonCount = idz
	return sm, nil
}

// Depth returns the number of slices.
func (sm *SliceMap) Depth() uint32 {
	return uint32(len(sm.Dims))
}

// AxonCount returns the total number of axons in the area.
func (sm *SliceMap) AxonCount() uint32 {
	return sm.axonCount
}

// Idz returns the first axon index of slice slc.
func (sm *SliceMap) Idz(slc uint32) (uint32, error) {
	if slc >= sm.Depth() {
		return 0, fmt.Errorf("%w: slice %d of %d", dims.ErrBadIndex, slc, sm.Depth())
	}
	return sm.Idzs[slc], nil
}

// SliceDims returns the geometry of slice slc.
func (sm *SliceMap) SliceDims(slc uint32) (dims.SliceDims, error) {
	if slc >= sm.Depth() {
		return dims.SliceDims{}, fmt.Errorf("%w: slice %d of %d", dims.ErrBadIndex, slc, sm.Depth())
	}
	return sm.Dims[slc], nil
}

// AxonRange returns the half-open axon index range [start, end) covering the
// given slice range.
func (sm *SliceMap) AxonRange(r Range) (start, end uint32, err error) {
	if r.N < r.Z || r.N > sm.Depth() {
		return 0, 0, fmt.Errorf("%w: slice range [%d, %d) of %d", dims.ErrBadIndex, r.Z, r.N, sm.Depth())
	}
	if r.Z == r.N {
		return 0, 0, nil
	}
	start = sm.Idzs[r.Z]
	last := r.N - 1
	end = sm.Idzs[last] + sm.Dims[last].Columns()
	return start, end, nil
}

// AxnIdx returns the axon index reached from cell (v, u) through the given
// offsets into slice slc.
func (sm *SliceMap) AxnIdx(slc, v, u uint32, vOfs, uOfs int8) (uint32, error) {
	if slc >= sm.Depth() {
		return 0, fmt.Errorf("%w: slice %d of %d", dims.ErrBadIndex, slc, sm.Depth())
	}
	return sm.Dims[slc].AxnIdx(sm.Idzs[slc], v, u, vOfs, uOfs)
}

// SlcLayer returns the layer owning slice slc.
func (sm *SliceMap) SlcLayer(slc uint32) (*LayerInfo, error) {
	if slc >= sm.Depth() {
		return nil, fmt.Errorf("%w: slice %d of %d", dims.ErrBadIndex, slc, sm.Depth())
	}
	return sm.am.Layers[sm.LayerIds[slc]], nil
}

// SrcLayerInfo returns the source bound to input slice slc. The owning
// layer must mesh with tags.
func (sm *SliceMap) SrcLayerInfo(slc uint32, tags LayerTags) (*SourceLayerInfo, error) {
	li, err := sm.SlcLayer(slc)
	if err != nil {
		return nil, err
	}
	if !li.Tags.Meshes(tags) {
		return nil, fmt.Errorf("%w: slice %d belongs to layer %s, not %v", ErrLayerResolution, slc, li.Name, tags)
	}
	si := sm.SrcIdxs[slc]
	if si < 0 {
		return nil, fmt.Errorf("%w: slice %d of layer %s has no source", ErrLayerResolution, slc, li.Name)
	}
	return &li.Sources[si], nil
}

// LayerContainingTags returns the first layer whose tags mesh with tags.
func (sm *SliceMap) LayerContainingTags(tags LayerTags) (*LayerInfo, error) {
	return sm.am.LayerContainingTags(tags)
}
