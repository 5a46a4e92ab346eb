// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package layermap

import (
	"fmt"

	"github.com/goki/ki/kit"
)

// AxonTopology determines how a layer's axons are seen by receiving cells.
type AxonTopology int

//go:generate stringer -type=AxonTopology

var KiT_AxonTopology = kit.Enums.AddEnum(AxonTopologyN, kit.NotBitFlag, nil)

func (ev AxonTopology) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *AxonTopology) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }
func (ev *AxonTopology) UnmarshalText(b []byte) error { return ev.FromString(string(b)) }

const (
	// AxonSpatial axons keep their (v, u) position, scaled to the receiver.
	AxonSpatial AxonTopology = iota

	// AxonNonspatial axons form a window visible to every receiving cell.
	AxonNonspatial

	// AxonNone layers have no externally visible topology.
	AxonNone

	AxonTopologyN
)

// DenClass is the anatomical class of a dendritic tuft.
type DenClass int

//go:generate stringer -type=DenClass

var KiT_DenClass = kit.Enums.AddEnum(DenClassN, kit.NotBitFlag, nil)

func (ev DenClass) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *DenClass) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }
func (ev *DenClass) UnmarshalText(b []byte) error { return ev.FromString(string(b)) }

const (
	Basal DenClass = iota
	Apical
	DenClassN
)

// DenKind selects which source layers feed a tuft.
type DenKind int

//go:generate stringer -type=DenKind

var KiT_DenKind = kit.Enums.AddEnum(DenKindN, kit.NotBitFlag, nil)

func (ev DenKind) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *DenKind) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }
func (ev *DenKind) UnmarshalText(b []byte) error { return ev.FromString(string(b)) }

const (
	// Proximal tufts drive the cell directly.
	Proximal DenKind = iota

	// Distal tufts carry lateral / contextual predictions.
	Distal

	DenKindN
)

// CellKind is the kind of cell population a layer holds.
type CellKind int

//go:generate stringer -type=CellKind

var KiT_CellKind = kit.Enums.AddEnum(CellKindN, kit.NotBitFlag, nil)

func (ev CellKind) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *CellKind) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }
func (ev *CellKind) UnmarshalText(b []byte) error { return ev.FromString(string(b)) }

const (
	// SpinyStellate is the proximal spatial pooling population.
	SpinyStellate CellKind = iota

	// Pyramidal is the distal sequence / prediction population.
	Pyramidal

	// Inhibitory is a control layer applying competition to a data layer.
	Inhibitory

	// Minicolumns is the control layer combining SS and pyramidal layers.
	Minicolumns

	CellKindN
)

// IsData is true for cell kinds that own dendrites and synapses.
func (ck CellKind) IsData() bool {
	return ck == SpinyStellate || ck == Pyramidal
}

// InhibMode selects the inhibition algorithm of an Inhibitory layer.
type InhibMode int

//go:generate stringer -type=InhibMode

var KiT_InhibMode = kit.Enums.AddEnum(InhibModeN, kit.NotBitFlag, nil)

func (ev InhibMode) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *InhibMode) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }
func (ev *InhibMode) UnmarshalText(b []byte) error { return ev.FromString(string(b)) }

const (
	// InhibSimple keeps only the local maximum within a hex neighborhood.
	InhibSimple InhibMode = iota

	// InhibPassthrough copies soma to axon unchanged.
	InhibPassthrough

	InhibModeN
)

// TuftSourceLayer names a layer feeding a tuft, how far its synapses reach
// and how often its slices are chosen relative to other sources.
type TuftSourceLayer struct {
	Name       string `json:"name" yaml:"name"`
	SynReach   uint8  `json:"syn_reach" yaml:"syn_reach"`
	Prevalence uint8  `json:"prevalence" yaml:"prevalence"`
}

// TuftScheme describes one dendritic tuft of a data cell.
type TuftScheme struct {
	DenClass DenClass `json:"den_class" yaml:"den_class"`
	DenKind  DenKind  `json:"den_kind" yaml:"den_kind"`

	// number of dendrites per cell on this tuft
	DensPerTft uint32 `json:"dens_per_tft" yaml:"dens_per_tft"`

	// number of synapses per dendrite
	SynsPerDen uint32 `json:"syns_per_den" yaml:"syns_per_den"`

	// initial dendrite threshold, applied to the raw state
	Thresh uint8 `json:"thresh" yaml:"thresh"`

	SrcLyrs []TuftSourceLayer `json:"src_lyrs" yaml:"src_lyrs"`
}

// Validate checks counts.
func (ts *TuftScheme) Validate() error {
	if ts.DensPerTft == 0 || ts.DensPerTft > 256 {
		return fmt.Errorf("%w: dens_per_tft %d must be in [1, 256]", ErrLayerResolution, ts.DensPerTft)
	}
	if ts.SynsPerDen == 0 || ts.SynsPerDen > 256 {
		return fmt.Errorf("%w: syns_per_den %d must be in [1, 256]", ErrLayerResolution, ts.SynsPerDen)
	}
	if len(ts.SrcLyrs) == 0 {
		return fmt.Errorf("%w: tuft has no source layers", ErrLayerResolution)
	}
	return nil
}

// CellScheme describes the cells of a layer.
type CellScheme struct {
	Kind  CellKind     `json:"kind" yaml:"kind"`
	Tufts []TuftScheme `json:"tufts" yaml:"tufts,omitempty"`

	// for control layers: the data layer they act on
	Target string `json:"target" yaml:"target,omitempty"`

	// for Inhibitory layers
	InhibMode   InhibMode `json:"inhib_mode" yaml:"inhib_mode,omitempty"`
	InhibRadius uint8     `json:"inhib_radius" yaml:"inhib_radius,omitempty"`
}

// LayerScheme describes one layer of a layer map.
type LayerScheme struct {
	Name     string       `json:"name" yaml:"name"`
	Tags     LayerTags    `json:"tags" yaml:"tags"`
	Topology AxonTopology `json:"topology" yaml:"topology"`

	// axon (and cell) depth; input layers take their depth from their sources
	Depth uint32      `json:"depth" yaml:"depth"`
	Cell  *CellScheme `json:"cell,omitempty" yaml:"cell,omitempty"`
}

// LayerMapScheme is a named, reusable list of layers.
type LayerMapScheme struct {
	Name   string        `json:"name" yaml:"name"`
	Layers []LayerScheme `json:"layers" yaml:"layers"`
}

// Layer returns the named layer scheme or nil.
func (lm *LayerMapScheme) Layer(name string) *LayerScheme {
	for i := range lm.Layers {
		if lm.Layers[i].Name == name {
			return &lm.Layers[i]
		}
	}
	return nil
}

// LayerMapSchemeList is a list of layer map schemes.
type LayerMapSchemeList []LayerMapScheme

// ByName returns the named layer map scheme or nil.
func (ll LayerMapSchemeList) ByName(name string) *LayerMapScheme {
	for i := range ll {
		if ll[i].Name == name {
			return &ll[i]
		}
	}
	return nil
}

// FilterScheme describes one stage of an input layer's sensory filter chain.
type FilterScheme struct {
	// input layer the filter applies to
	Layer string `json:"layer" yaml:"layer"`

	// filter kind: Threshold, Invert or HexBlur
	Kind string `json:"kind" yaml:"kind"`

	Param float32 `json:"param" yaml:"param,omitempty"`
}

// AreaScheme describes one area.
type AreaScheme struct {
	Name     string `json:"name" yaml:"name"`
	VSize    uint32 `json:"v_size" yaml:"v_size"`
	USize    uint32 `json:"u_size" yaml:"u_size"`
	LayerMap string `json:"layer_map" yaml:"layer_map"`

	// names of areas receiving this area's feedforward output
	Eff []string `json:"eff" yaml:"eff,omitempty"`

	Filters []FilterScheme `json:"filters" yaml:"filters,omitempty"`

	// external areas are fed by subcortical nuclei and have no cells
	External bool `json:"external" yaml:"external,omitempty"`
}

// AreaSchemeList is an ordered list of area schemes.
type AreaSchemeList []AreaScheme

// ByName returns the named area scheme or nil.
func (al AreaSchemeList) ByName(name string) *AreaScheme {
	for i := range al {
		if al[i].Name == name {
			return &al[i]
		}
	}
	return nil
}
