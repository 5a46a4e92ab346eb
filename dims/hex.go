// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dims

import (
	"fmt"

	"github.com/goki/ki/ints"
)

// Offset is a (v, u) displacement in hexagonal-axial coordinates.
type Offset struct {
	V int8 `json:"v"`
	U int8 `json:"u"`
}

// HexDist returns the hexagonal distance of an axial offset from the origin.
func HexDist(v, u int) int {
	return ints.MaxInt(absInt(v), ints.MaxInt(absInt(u), absInt(v+u)))
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// HexTileCount returns the number of cells within radius of a center cell,
// center included.
func HexTileCount(radius int) int {
	return 1 + 3*radius*(radius+1)
}

// HexOffsets returns all unscaled offsets within radius, in v-major order.
func HexOffsets(radius int) []Offset {
	if radius < 0 {
		return nil
	}
	offs := make([]Offset, 0, HexTileCount(radius))
	for v := -radius; v <= radius; v++ {
		uMin := ints.MaxInt(-radius, -v-radius)
		uMax := ints.MinInt(radius, -v+radius)
		for u := uMin; u <= uMax; u++ {
			offs = append(offs, Offset{V: int8(v), U: int8(u)})
		}
	}
	return offs
}

// extra fractional bits carried while scaling offsets
const hexPrecBits = 8

// scaleReach scales one axis of an offset with symmetric rounding, so that
// scale(-x) == -scale(x).
func scaleReach(x int32, scale uint32) (int8, error) {
	neg := x < 0
	if neg {
		x = -x
	}
	fx := (int64(x) << hexPrecBits) * int64(scale) / ScaleOne
	r := (fx + (1 << (hexPrecBits - 1))) >> hexPrecBits
	if neg {
		r = -r
	}
	if r < SynReachMin || r > SynReachMax {
		return 0, fmt.Errorf("%w: reach %d at scale %d", ErrScaleOutOfRange, r, scale)
	}
	return int8(r), nil
}

// GenSynOffs returns the de-duplicated hexagonal tile of synapse offsets for
// the given reach, scaled by a source slice's scales. Scaling is symmetric, so
// the returned set is balanced: both axes sum to zero.
func GenSynOffs(radius int, vScale, uScale uint32) ([]Offset, error) {
	if radius < 0 || radius > SynReachMax {
		return nil, fmt.Errorf("%w: reach %d", ErrScaleOutOfRange, radius)
	}
	base := HexOffsets(radius)
	seen := make(map[Offset]struct{}, len(base))
	offs := make([]Offset, 0, len(base))
	for _, o := range base {
		v, err := scaleReach(int32(o.V), vScale)
		if err != nil {
			return nil, err
		}
		u, err := scaleReach(int32(o.U), uScale)
		if err != nil {
			return nil, err
		}
		so := Offset{V: v, U: u}
		if _, has := seen[so]; has {
			continue
		}
		seen[so] = struct{}{}
		offs = append(offs, so)
	}
	return offs, nil
}
