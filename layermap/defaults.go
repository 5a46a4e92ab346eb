// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package layermap

// Names of the layer maps returned by DefaultLayerMaps.
const (
	CorticalMapName = "cortical"
	ThalamicMapName = "thalamic"
)

// Names of the layers in the default cortical map.
const (
	AffInName = "aff_in"
	IVName    = "iv"
	InhibName = "iv_inhib"
	IIIName   = "iii"
	McolsName = "mcols"
	ThalOut   = "out"
)

// DefaultLayerMaps returns a cortical map (feedforward input, spiny stellate
// layer with inhibition, pyramidal output layer, minicolumns) and a
// thalamic map (a single feedforward output layer) for external areas.
func DefaultLayerMaps() LayerMapSchemeList {
	return LayerMapSchemeList{CorticalLayerMap(), ThalamicLayerMap()}
}

// CorticalLayerMap returns the default cortical layer map.
func CorticalLayerMap() LayerMapScheme {
	return LayerMapScheme{
		Name: CorticalMapName,
		Layers: []LayerScheme{
			{Name: AffInName, Tags: FFIn, Topology: AxonSpatial},
			{Name: IVName, Tags: PSAL, Topology: AxonSpatial, Depth: 1,
				Cell: &CellScheme{Kind: SpinyStellate, Tufts: []TuftScheme{{
					DenClass: Basal, DenKind: Proximal, DensPerTft: 1, SynsPerDen: 32, Thresh: 8,
					SrcLyrs: []TuftSourceLayer{{Name: AffInName, SynReach: 4, Prevalence: 1}},
				}}}},
			{Name: InhibName, Topology: AxonNone,
				Cell: &CellScheme{Kind: Inhibitory, Target: IVName, InhibMode: InhibSimple, InhibRadius: 2}},
			{Name: IIIName, Tags: PTAL.Union(FFOut), Topology: AxonSpatial, Depth: 1,
				Cell: &CellScheme{Kind: Pyramidal, Tufts: []TuftScheme{{
					DenClass: Basal, DenKind: Distal, DensPerTft: 4, SynsPerDen: 16, Thresh: 32,
					SrcLyrs: []TuftSourceLayer{{Name: IIIName, SynReach: 3, Prevalence: 1}},
				}}}},
			{Name: McolsName, Topology: AxonNone,
				Cell: &CellScheme{Kind: Minicolumns, Target: IIIName}},
		},
	}
}

// ThalamicLayerMap returns the layer map of an external input area.
func ThalamicLayerMap() LayerMapScheme {
	return LayerMapScheme{
		Name: ThalamicMapName,
		Layers: []LayerScheme{
			{Name: ThalOut, Tags: FFOut.With(Primary), Topology: AxonSpatial, Depth: 1},
		},
	}
}
