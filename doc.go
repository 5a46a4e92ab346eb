// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package cortex is the overall repository for a columnar model of neocortex:
areas of spiny stellate, pyramidal, inhibitory and minicolumn cell layers
with 8-bit state, growing and pruning synapses, connected by thalamic
tracts and ticked as kernels on a host compute device.

This top-level of the repository has no functional code -- everything is organized
into the following sub-packages:

* dims, rnd: cortical and slice dimensions with hex geometry, and the xor-shift
generator every random choice in an area is drawn from.

* layermap: layer map and area schemes, layer tags, and resolution of layers
and axon slices across areas.

* compute: the host device, buffers, queues, events and kernels that all cell
updates run through.

* thalamus: tracts between areas, subcortical nuclei, and samplers of area state.

* cortex: cortical areas, their cell layers and execution graphs, snapshots,
and the Cortex that ticks them all.

* encode, store, flywheel: input encoders and the IDX image format, sqlite
snapshot storage, and the command loop that runs a cortex.

* examples: these compile into runnable programs. examples/stripes is the
place to start, with a single area learning drifting stripes.
*/
package cortex
