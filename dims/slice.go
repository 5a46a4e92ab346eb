// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dims

import "fmt"

// SliceDims is the geometry of one axon slice, as seen from the cells of the
// area that owns the slice. A target cell at (v, u) addresses source axon
// ((v * VScale) >> 4 + VMid + vOfs, (u * UScale) >> 4 + UMid + uOfs).
//
// Spatial slices carry a fixed-point scale (ScaleOne = 16 is 1:1) and zero
// mids. Non-spatial slices have zero scale and a mid at the slice center, so
// every cell sees the same window of offsets.
type SliceDims struct {
	VSize  uint32 `json:"v_size"`
	USize  uint32 `json:"u_size"`
	VScale uint32 `json:"v_scale"`
	UScale uint32 `json:"u_scale"`
	VMid   uint32 `json:"v_mid"`
	UMid   uint32 `json:"u_mid"`
}

// CalcScale returns the fixed-point scale mapping local cell coordinates onto
// a source axis of size src.
func CalcScale(src, local uint32) (uint32, error) {
	if src == 0 || local == 0 {
		return 0, fmt.Errorf("%w: scale of %d over %d", ErrDimensionMismatch, src, local)
	}
	if src > local*ScaleOne {
		return 0, fmt.Errorf("%w: source size %d exceeds %dx local size %d", ErrScaleOutOfRange, src, ScaleOne, local)
	}
	s := (src * ScaleOne) / local
	if s < 1 {
		s = 1
	}
	if s > MaxScale {
		s = MaxScale
	}
	return s, nil
}

// NewSpatialSlice returns the geometry of a spatially mapped source slice of
// size (srcV, srcU) read by a local layer of size (locV, locU).
func NewSpatialSlice(srcV, srcU, locV, locU uint32) (SliceDims, error) {
	vs, err := CalcScale(srcV, locV)
	if err != nil {
		return SliceDims{}, err
	}
	us, err := CalcScale(srcU, locU)
	if err != nil {
		return SliceDims{}, err
	}
	return SliceDims{VSize: srcV, USize: srcU, VScale: vs, UScale: us}, nil
}

// NewNonspatialSlice returns the geometry of a horizontal slice whose axons
// are reachable from every cell. Each axis must be even and at most MaxHrz.
func NewNonspatialSlice(vSize, uSize uint32) (SliceDims, error) {
	if vSize == 0 || uSize == 0 || vSize > MaxHrz || uSize > MaxHrz {
		return SliceDims{}, fmt.Errorf("%w: non-spatial slice %d x %d (max %d)", ErrDimensionMismatch, vSize, uSize, MaxHrz)
	}
	if vSize%2 != 0 || uSize%2 != 0 {
		return SliceDims{}, fmt.Errorf("%w: non-spatial slice %d x %d must be even", ErrDimensionMismatch, vSize, uSize)
	}
	return SliceDims{VSize: vSize, USize: uSize, VMid: vSize / 2, UMid: uSize / 2}, nil
}

// NewLocalSlice returns a 1:1 slice for a layer inside the owning area.
func NewLocalSlice(vSize, uSize uint32) SliceDims {
	return SliceDims{VSize: vSize, USize: uSize, VScale: ScaleOne, UScale: ScaleOne}
}

// Spatial reports whether the slice maps cell coordinates.
func (sd SliceDims) Spatial() bool {
	return sd.VScale != 0 || sd.UScale != 0
}

// Columns returns the number of axons in the slice.
func (sd SliceDims) Columns() uint32 {
	return sd.VSize * sd.USize
}

// AxnIdxOk is the unchecked-error form of AxnIdx used in kernel loops.
func (sd SliceDims) AxnIdxOk(idz, v, u uint32, vOfs, uOfs int8) (uint32, bool) {
	av := int64((v*sd.VScale)>>ScaleShift) + int64(sd.VMid) + int64(vOfs)
	au := int64((u*sd.UScale)>>ScaleShift) + int64(sd.UMid) + int64(uOfs)
	if av < 0 || au < 0 || av >= int64(sd.VSize) || au >= int64(sd.USize) {
		return 0, false
	}
	return idz + uint32(av)*sd.USize + uint32(au), true
}

// AxnIdx returns the flat axon index for the cell at (v, u) reaching through
// the given offsets into this slice, which starts at axon idz.
func (sd SliceDims) AxnIdx(idz, v, u uint32, vOfs, uOfs int8) (uint32, error) {
	idx, ok := sd.AxnIdxOk(idz, v, u, vOfs, uOfs)
	if !ok {
		return 0, fmt.Errorf("%w: cell (%d, %d) offset (%d, %d) in slice %d x %d", ErrAxonOutOfBounds, v, u, vOfs, uOfs, sd.VSize, sd.USize)
	}
	return idx, nil
}

// ScaleOffs converts an offset in local cell units into source axon units.
func (sd SliceDims) ScaleOffs(ofs Offset) (Offset, error) {
	v, err := scaleReach(int32(ofs.V), sd.VScale)
	if err != nil {
		return Offset{}, err
	}
	u, err := scaleReach(int32(ofs.U), sd.UScale)
	if err != nil {
		return Offset{}, err
	}
	return Offset{V: v, U: u}, nil
}
