// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package encode provides subcortical nuclei that feed the cortex from outside
and read its outputs back: synthetic encoders (Stripes, GaussBlob), an
encoder stepping through the items of an IDX file (IdxNucleus), and Probe,
which copies an output tract to the host after every cycle.

Encoders write into the output tract of an external area, addressed by its
tags, through a thalamus Sender; every slice of the tract gets the same
frame.

The IDX loader reads the unsigned byte variant of the format (magic 0 0,
dtype 0x08, ndims, big-endian uint32 sizes, raw bytes), gzip compressed when
the file name ends in .gz.
*/
package encode
