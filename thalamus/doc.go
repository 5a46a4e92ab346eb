// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package thalamus routes axon frames between cortical areas and the outside
world.

Every output layer of every area owns a Tract: a device byte buffer the size
of the layer plus the event of its latest write. A tract moves through the
states Empty, Writing, Ready and Reading. Readers (areas taking input, host
probes) consume a Ready frame; writers wait for pending reads at the device
level, and with backpressure enabled a writer parks until the previous frame
has been consumed. Without backpressure a new frame simply replaces an
unread one.

Subcortical nuclei (encoders, probes, motor readers) are registered in
order and are called before and after each cortical cycle. Samplers deliver
copies of area state (axons, somas, tufts, dendrites, synapses) to host
consumers over channels.
*/
package thalamus

import "errors"

var (
	// ErrTractMismatch is returned for unknown tract addresses or frames whose
	// size does not match their tract.
	ErrTractMismatch = errors.New("tract mismatch")

	// ErrTractBusy is returned by non-blocking writes that would have to park.
	ErrTractBusy = errors.New("tract busy")
)
