// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cortex

import (
	"fmt"

	"github.com/emer/cortex/dims"
	"github.com/emer/cortex/layermap"
	"github.com/emer/cortex/rnd"
)

// SynSrc is a generated synapse source and initial strength.
type SynSrc struct {
	Slc      uint8
	VOfs     int8
	UOfs     int8
	Strength int8
}

// Key returns the packed duplicate-cache key of the source.
func (ss SynSrc) Key() uint32 {
	return SrcKey(ss.Slc, ss.VOfs, ss.UOfs)
}

// SrcKey packs a source as (slc << 16) | (v_ofs << 8) | u_ofs.
func SrcKey(slc uint8, vOfs, uOfs int8) uint32 {
	return uint32(slc)<<16 | uint32(uint8(vOfs))<<8 | uint32(uint8(uOfs))
}

// slcSrc is the precomputed source template for one slice.
type slcSrc struct {
	slc        uint8
	offs       []dims.Offset
	nonspatial bool
	vSize      int
	uSize      int
	reachV     int
	reachU     int
}

// SynSrcGen draws synapse sources for one tuft.
type SynSrcGen struct {
	slcs []slcSrc

	// indexes into slcs, each slice repeated by its layer's prevalence
	pool []int
}

// NewSynSrcGen precomputes source templates for every slice of every
// source layer of a tuft.
func NewSynSrcGen(ts *layermap.TuftScheme, am *layermap.AreaMap) (*SynSrcGen, error) {
	sg := &SynSrcGen{}
	for _, tsl := range ts.SrcLyrs {
		li := am.Layer(tsl.Name)
		if li == nil {
			return nil, fmt.Errorf("%w: area %s: unknown tuft source layer %q", layermap.ErrLayerResolution, am.Name, tsl.Name)
		}
		prev := int(tsl.Prevalence)
		if prev == 0 {
			prev = 1
		}
		for s := li.SlcRange.Z; s < li.SlcRange.N; s++ {
			sd := am.Slices.Dims[s]
			ss := slcSrc{slc: uint8(s)}
			if !sd.Spatial() {
				if tsl.SynReach != 0 {
					return nil, fmt.Errorf("%w: area %s layer %s: non-spatial source must have zero reach", layermap.ErrLayerResolution, am.Name, tsl.Name)
				}
				ss = nonspatialSrc(uint8(s), sd)
				if ss.vSize*ss.uSize < int(ts.SynsPerDen) {
					return nil, fmt.Errorf("%w: area %s layer %s: not enough distinct sources (%d < %d)", layermap.ErrLayerResolution, am.Name, tsl.Name, ss.vSize*ss.uSize, ts.SynsPerDen)
				}
			} else {
				offs, err := dims.GenSynOffs(int(tsl.SynReach), sd.VScale, sd.UScale)
				if err != nil {
					return nil, fmt.Errorf("area %s layer %s: %w", am.Name, tsl.Name, err)
				}
				if len(offs) < int(ts.SynsPerDen) {
					return nil, fmt.Errorf("%w: area %s layer %s: not enough distinct sources (%d < %d)", layermap.ErrLayerResolution, am.Name, tsl.Name, len(offs), ts.SynsPerDen)
				}
				reach, err := sd.ScaleOffs(dims.Offset{V: int8(tsl.SynReach), U: int8(tsl.SynReach)})
				if err != nil {
					return nil, err
				}
				ss.offs = offs
				ss.reachV, ss.reachU = int(reach.V), int(reach.U)
			}
			idx := len(sg.slcs)
			sg.slcs = append(sg.slcs, ss)
			for p := 0; p < prev; p++ {
				sg.pool = append(sg.pool, idx)
			}
		}
	}
	if len(sg.pool) == 0 {
		return nil, fmt.Errorf("%w: area %s: tuft has no source slices", layermap.ErrLayerResolution, am.Name)
	}
	return sg, nil
}

// nonspatialSrc is the template of a non-spatial slice. Offsets span the
// whole window, and the half extents stand in for the reach, so strength
// falls off from the window center as it does from a cell's own column.
func nonspatialSrc(slc uint8, sd dims.SliceDims) slcSrc {
	vs, us := int(sd.VSize), int(sd.USize)
	return slcSrc{slc: slc, nonspatial: true, vSize: vs, uSize: us, reachV: vs / 2, reachU: us / 2}
}

// Slices returns the source slice ids of the tuft.
func (sg *SynSrcGen) Slices() []uint8 {
	sl := make([]uint8, len(sg.slcs))
	for i := range sg.slcs {
		sl[i] = sg.slcs[i].slc
	}
	return sl
}

// GenSrc draws a source slice from the pool, an offset from its template
// and a strength of intensity * Uniform[-3, 4).
func (sg *SynSrcGen) GenSrc(rng *rnd.XorShift) SynSrc {
	ss := &sg.slcs[sg.pool[rng.Intn(len(sg.pool))]]
	src := SynSrc{Slc: ss.slc}
	if ss.nonspatial {
		src.VOfs = int8(rng.Range(-ss.vSize/2, ss.vSize/2))
		src.UOfs = int8(rng.Range(-ss.uSize/2, ss.uSize/2))
	} else {
		o := ss.offs[rng.Intn(len(ss.offs))]
		src.VOfs, src.UOfs = o.V, o.U
	}
	intensity := ((ss.reachV - absInt(int(src.VOfs))) + (ss.reachU - absInt(int(src.UOfs)))) >> 3
	if intensity < 0 {
		intensity = 0
	}
	src.Strength = int8(intensity * rng.Range(-3, 4))
	return src
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// DupCache holds the source keys of each dendrite's synapses, so regrowth
// can keep every dendrite's sources distinct.
type DupCache struct {
	keys [][]uint32
}

// NewDupCache returns a cache for nDens dendrites.
func NewDupCache(nDens int) *DupCache {
	return &DupCache{keys: make([][]uint32, nDens)}
}

// Reset empties one dendrite's set.
func (dc *DupCache) Reset(den int) {
	dc.keys[den] = dc.keys[den][:0]
}

// Has reports whether key is in den's set.
func (dc *DupCache) Has(den int, key uint32) bool {
	for _, k := range dc.keys[den] {
		if k == key {
			return true
		}
	}
	return false
}

// Add appends key to den's set unconditionally.
func (dc *DupCache) Add(den int, key uint32) {
	dc.keys[den] = append(dc.keys[den], key)
}

// Insert replaces one occurrence of old with new in den's set, or adds new
// when old is absent. It fails, changing nothing, if new is already present.
func (dc *DupCache) Insert(den int, old, new uint32) bool {
	ks := dc.keys[den]
	for _, k := range ks {
		if k == new {
			return false
		}
	}
	for i, k := range ks {
		if k == old {
			ks[i] = new
			return true
		}
	}
	dc.keys[den] = append(ks, new)
	return true
}

// Len returns the size of den's set.
func (dc *DupCache) Len(den int) int {
	return len(dc.keys[den])
}
