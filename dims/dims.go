// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package dims provides the coordinate algebra shared by every part of a
cortical area: layer dimensions, axon slice geometry with fixed-point scales,
axon index arithmetic, and the hexagonal-axial offset templates that define a
synapse's reach.

All bounds violations are returned as errors wrapping one of the sentinel
errors below, so callers can test with errors.Is.
*/
package dims

import (
	"errors"
	"fmt"
)

var (
	// ErrBadIndex is returned for a slice, layer or cell index outside its range.
	ErrBadIndex = errors.New("index out of range")

	// ErrAxonOutOfBounds is returned when an offset axon coordinate leaves its slice.
	ErrAxonOutOfBounds = errors.New("axon coordinate out of bounds")

	// ErrDimensionMismatch is returned for zero or incompatible dimensions.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrScaleOutOfRange is returned when a scale or scaled reach does not fit its type.
	ErrScaleOutOfRange = errors.New("scale out of range")
)

const (
	// ScaleOne is the fixed-point representation of a 1:1 scale.
	ScaleOne = 16

	// ScaleShift converts a fixed-point scaled coordinate back to integer.
	ScaleShift = 4

	// MaxScale is the largest representable slice scale.
	MaxScale = 255

	// MaxHrz is the largest non-spatial (horizontal) slice axis.
	MaxHrz = 254

	// SynReachMin and SynReachMax bound a synapse offset on either axis.
	// The range is symmetric, so negating an offset never leaves it.
	SynReachMin = -127
	SynReachMax = 127
)

// CorticalDims are the dimensions of a cell layer, tract or area:
// Depth slices of VSize x USize hexagonally arranged columns.
type CorticalDims struct {
	Depth uint32 `json:"depth" yaml:"depth"`
	VSize uint32 `json:"v_size" yaml:"v_size"`
	USize uint32 `json:"u_size" yaml:"u_size"`
}

// NewCorticalDims returns validated dimensions.
func NewCorticalDims(depth, vSize, uSize uint32) (CorticalDims, error) {
	cd := CorticalDims{Depth: depth, VSize: vSize, USize: uSize}
	return cd, cd.Validate()
}

// Validate checks that all dimensions are non-zero.
func (cd CorticalDims) Validate() error {
	if cd.Depth == 0 || cd.VSize == 0 || cd.USize == 0 {
		return fmt.Errorf("%w: cortical dims must be non-zero: %v", ErrDimensionMismatch, cd)
	}
	return nil
}

// Columns returns the number of columns in one slice.
func (cd CorticalDims) Columns() uint32 {
	return cd.VSize * cd.USize
}

// Cells returns the total number of cells (or axons) over all slices.
func (cd CorticalDims) Cells() uint32 {
	return cd.Depth * cd.VSize * cd.USize
}

// WithDepth returns a copy with a different depth.
func (cd CorticalDims) WithDepth(depth uint32) CorticalDims {
	cd.Depth = depth
	return cd
}

// SameHrz reports whether two dims share the horizontal (v, u) sizes.
func (cd CorticalDims) SameHrz(o CorticalDims) bool {
	return cd.VSize == o.VSize && cd.USize == o.USize
}

// CellIdx returns the flat index of the cell at (slc, v, u).
func (cd CorticalDims) CellIdx(slc, v, u uint32) (uint32, error) {
	if slc >= cd.Depth || v >= cd.VSize || u >= cd.USize {
		return 0, fmt.Errorf("%w: cell (%d, %d, %d) in %v", ErrBadIndex, slc, v, u, cd)
	}
	return (slc*cd.VSize+v)*cd.USize + u, nil
}

// CellCoord is the inverse of CellIdx.
func (cd CorticalDims) CellCoord(idx uint32) (slc, v, u uint32, err error) {
	if idx >= cd.Cells() {
		return 0, 0, 0, fmt.Errorf("%w: cell %d of %d", ErrBadIndex, idx, cd.Cells())
	}
	cols := cd.Columns()
	slc = idx / cols
	col := idx % cols
	return slc, col / cd.USize, col % cd.USize, nil
}

func (cd CorticalDims) String() string {
	return fmt.Sprintf("[%d x %d x %d]", cd.Depth, cd.VSize, cd.USize)
}
