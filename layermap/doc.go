// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package layermap describes the layers of each cortical area and resolves how
they connect.

A LayerMapScheme lists layers with their tags, axon topology and cell
scheme. An AreaScheme instantiates a layer map at a size and names the areas
it feeds. BuildAreaMaps freezes these descriptions: every layer that owns
axons gets a contiguous range of axon slices, and every input layer is bound
to the output layers of other areas whose tags mesh with its own (Feedforward
inputs look at afferent areas, Feedback inputs at efferent areas, and
Nonspecific inputs at every area, by uid).

The frozen AreaMap then yields a SliceMap, the per-slice geometry used by the
axon space and the synapse kernels.
*/
package layermap

import "errors"

// ErrLayerResolution is returned when layer or pathway resolution fails.
var ErrLayerResolution = errors.New("layer resolution failed")

// MaxSlices is the number of axon slices an area may hold; slice ids are
// stored in a byte.
const MaxSlices = 255
