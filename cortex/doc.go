// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package cortex implements cortical areas and the Cortex that ticks them.

An area holds one flat axon space (stacked byte slices), data cell layers
(spiny stellate and pyramidal cells, each with tufts of dendrites of
synapses) and control layers (inhibition and minicolumns). Every tick runs
the same pipeline of device kernels, each a command of the area's execution
graph:

	intake FF / NS  -> psal cycle -> inhibition -> psal learn
	-> minicolumn activate -> intake FB -> ptal learn -> ptal cycle
	-> minicolumn output -> regrow (periodic) -> output FF

Synapses read axons at (source slice, v + v_ofs, u + u_ofs), dendrites
reduce synapse states weighted by strength, somas take the best dendrite,
and inhibition and minicolumns select winners. Learning nudges strengths up
or down; synapses that fall to the strength floor are periodically regrown
to new, distinct sources.

Areas never reference each other: axons arrive and leave through thalamus
tracts. All state lives in compute buffers; the host keeps only indices,
the random generators and small staging vectors.

Logging goes through archivist; programs initialize it with archivist.Init.
*/
package cortex
