// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package layermap

import (
	"fmt"

	"github.com/emer/cortex/dims"
)

// Range is a half-open range of slice ids [Z, N).
type Range struct {
	Z uint32 `json:"z"`
	N uint32 `json:"n"`
}

// Len returns the number of slices in the range.
func (r Range) Len() uint32 { return r.N - r.Z }

// Contains reports whether slc lies in the range.
func (r Range) Contains(slc uint32) bool { return slc >= r.Z && slc < r.N }

// LayerAddr identifies a layer across the whole cortex: the area that owns it
// and its tags. Tracts are keyed by the address of their producing layer.
type LayerAddr struct {
	AreaId uint32    `json:"area_id"`
	Tags   LayerTags `json:"tags"`
}

func (la LayerAddr) String() string {
	return fmt.Sprintf("area %d %v", la.AreaId, la.Tags)
}

// SourceLayerInfo is one source bound to an input layer.
type SourceLayerInfo struct {
	AreaId    uint32 `json:"area_id"`
	AreaName  string `json:"area_name"`
	LayerName string `json:"layer_name"`

	// tags of the source (output) layer
	Tags LayerTags `json:"tags"`

	// dims of the source layer's axons
	Dims dims.CorticalDims `json:"dims"`

	// slices the source occupies in the receiving area
	SlcRange Range `json:"slc_range"`
}

// Addr is the address of the tract carrying this source.
func (si *SourceLayerInfo) Addr() LayerAddr {
	return LayerAddr{AreaId: si.AreaId, Tags: si.Tags}
}

// LayerInfo is a frozen layer of one area.
type LayerInfo struct {
	Name     string       `json:"name"`
	Id       int          `json:"id"`
	Tags     LayerTags    `json:"tags"`
	Topology AxonTopology `json:"topology"`

	// axon depth: own depth, or the sum of source depths for input layers
	Depth    uint32      `json:"depth"`
	Cell     *CellScheme `json:"cell,omitempty"`
	SlcRange Range       `json:"slc_range"`

	// bound sources, input layers only
	Sources []SourceLayerInfo `json:"sources,omitempty"`
}

// IsInput is true for input layers.
func (li *LayerInfo) IsInput() bool { return li.Tags.IsInput() }

// AreaMap is the frozen layer map of one area.
type AreaMap struct {
	Name     string `json:"name"`
	Id       uint32 `json:"id"`
	VSize    uint32 `json:"v_size"`
	USize    uint32 `json:"u_size"`
	External bool   `json:"external"`

	// efferent and afferent area names
	Eff []string `json:"eff"`
	Aff []string `json:"aff"`

	Layers  []*LayerInfo   `json:"layers"`
	Filters []FilterScheme `json:"filters,omitempty"`

	// total number of axon slices
	NSlices uint32 `json:"n_slices"`

	// per-slice geometry
	Slices *SliceMap `json:"-"`

	layerMap map[string]*LayerInfo
}

// Layer returns the named layer or nil.
func (am *AreaMap) Layer(name string) *LayerInfo {
	return am.layerMap[name]
}

// LayerDims returns the cell / axon dims of a layer in this area.
func (am *AreaMap) LayerDims(li *LayerInfo) dims.CorticalDims {
	return dims.CorticalDims{Depth: li.Depth, VSize: am.VSize, USize: am.USize}
}

// OutputLayers returns the layers tagged Output.
func (am *AreaMap) OutputLayers() []*LayerInfo {
	var ol []*LayerInfo
	for _, li := range am.Layers {
		if li.Tags.IsOutput() {
			ol = append(ol, li)
		}
	}
	return ol
}

// InputLayers returns the layers tagged Input.
func (am *AreaMap) InputLayers() []*LayerInfo {
	var il []*LayerInfo
	for _, li := range am.Layers {
		if li.Tags.IsInput() {
			il = append(il, li)
		}
	}
	return il
}

// LayerContainingTags returns the first layer whose tags mesh with tags.
func (am *AreaMap) LayerContainingTags(tags LayerTags) (*LayerInfo, error) {
	for _, li := range am.Layers {
		if li.Tags.Meshes(tags) {
			return li, nil
		}
	}
	return nil, fmt.Errorf("%w: area %s has no layer with tags %v", ErrLayerResolution, am.Name, tags)
}

// BuildAreaMaps freezes the given area schemes against their layer maps.
// Area ids follow the order of the area scheme list.
func BuildAreaMaps(lms LayerMapSchemeList, areas AreaSchemeList) ([]*AreaMap, error) {
	ams := make([]*AreaMap, len(areas))
	byName := make(map[string]*AreaMap, len(areas))
	for i := range areas {
		as := &areas[i]
		if _, has := byName[as.Name]; has {
			return nil, fmt.Errorf("%w: duplicate area name %q", ErrLayerResolution, as.Name)
		}
		if as.VSize == 0 || as.USize == 0 {
			return nil, fmt.Errorf("%w: area %s: %v", ErrLayerResolution, as.Name, dims.ErrDimensionMismatch)
		}
		lm := lms.ByName(as.LayerMap)
		if lm == nil {
			return nil, fmt.Errorf("%w: area %s: unknown layer map %q", ErrLayerResolution, as.Name, as.LayerMap)
		}
		am := &AreaMap{Name: as.Name, Id: uint32(i), VSize: as.VSize, USize: as.USize, External: as.External,
			Eff: append([]string(nil), as.Eff...), Filters: as.Filters}
		am.layerMap = make(map[string]*LayerInfo, len(lm.Layers))
		for li := range lm.Layers {
			ls := &lm.Layers[li]
			if _, has := am.layerMap[ls.Name]; has {
				return nil, fmt.Errorf("%w: area %s: duplicate layer %q", ErrLayerResolution, as.Name, ls.Name)
			}
			ly := &LayerInfo{Name: ls.Name, Id: li, Tags: ls.Tags, Topology: ls.Topology, Depth: ls.Depth, Cell: ls.Cell}
			am.Layers = append(am.Layers, ly)
			am.layerMap[ly.Name] = ly
		}
		ams[i] = am
		byName[am.Name] = am
	}
	for _, am := range ams {
		for _, eff := range am.Eff {
			ea, has := byName[eff]
			if !has {
				return nil, fmt.Errorf("%w: area %s: unknown efferent area %q", ErrLayerResolution, am.Name, eff)
			}
			ea.Aff = append(ea.Aff, am.Name)
		}
	}
	for _, am := range ams {
		if err := am.checkOutputs(); err != nil {
			return nil, err
		}
	}
	for _, am := range ams {
		if err := am.assignSlices(ams, byName); err != nil {
			return nil, err
		}
		sm, err := NewSliceMap(am)
		if err != nil {
			return nil, err
		}
		am.Slices = sm
	}
	return ams, nil
}

// checkOutputs rejects output layers that could not be told apart by address.
func (am *AreaMap) checkOutputs() error {
	ol := am.OutputLayers()
	for i, a := range ol {
		for _, b := range ol[i+1:] {
			if a.Tags == b.Tags {
				return fmt.Errorf("%w: area %s: output layers %s and %s share tags %v", ErrLayerResolution, am.Name, a.Name, b.Name, a.Tags)
			}
		}
	}
	return nil
}

// assignSlices gives non-input layers their slices in declared order, then
// resolves and assigns input layers.
func (am *AreaMap) assignSlices(ams []*AreaMap, byName map[string]*AreaMap) error {
	var ctr uint32
	for _, li := range am.Layers {
		if li.IsInput() {
			continue
		}
		li.SlcRange = Range{Z: ctr, N: ctr + li.Depth}
		ctr += li.Depth
	}
	for _, li := range am.Layers {
		if !li.IsInput() {
			continue
		}
		cands, err := am.sourceAreas(li, ams, byName)
		if err != nil {
			return err
		}
		want := li.Tags.MirrorIO()
		z := ctr
		li.Sources = nil
		for _, sa := range cands {
			var match *LayerInfo
			for _, sl := range sa.Layers {
				if !sl.Tags.Meshes(want) {
					continue
				}
				if match != nil {
					return fmt.Errorf("%w: area %s layer %s: ambiguous sources %s and %s in area %s", ErrLayerResolution, am.Name, li.Name, match.Name, sl.Name, sa.Name)
				}
				match = sl
			}
			if match == nil || match.Depth == 0 {
				continue
			}
			li.Sources = append(li.Sources, SourceLayerInfo{
				AreaId: sa.Id, AreaName: sa.Name, LayerName: match.Name, Tags: match.Tags,
				Dims:     sa.LayerDims(match),
				SlcRange: Range{Z: ctr, N: ctr + match.Depth},
			})
			ctr += match.Depth
		}
		if len(li.Sources) == 0 && li.Tags.Has(Specific) {
			return fmt.Errorf("%w: area %s layer %s: no source layers found", ErrLayerResolution, am.Name, li.Name)
		}
		li.SlcRange = Range{Z: z, N: ctr}
		li.Depth = ctr - z
	}
	if ctr > MaxSlices {
		return fmt.Errorf("%w: area %s: %d slices exceeds %d", ErrLayerResolution, am.Name, ctr, MaxSlices)
	}
	am.NSlices = ctr
	return nil
}

// sourceAreas returns the candidate source areas of an input layer.
func (am *AreaMap) sourceAreas(li *LayerInfo, ams []*AreaMap, byName map[string]*AreaMap) ([]*AreaMap, error) {
	var names []string
	switch {
	case li.Tags.Has(Nonspecific):
		var sa []*AreaMap
		for _, a := range ams {
			if a != am {
				sa = append(sa, a)
			}
		}
		return sa, nil
	case li.Tags.Has(Feedforward):
		names = am.Aff
	case li.Tags.Has(Feedback):
		names = am.Eff
	default:
		return nil, fmt.Errorf("%w: area %s layer %s: input needs Feedforward, Feedback or Nonspecific", ErrLayerResolution, am.Name, li.Name)
	}
	sa := make([]*AreaMap, 0, len(names))
	for _, nm := range names {
		sa = append(sa, byName[nm])
	}
	return sa, nil
}
