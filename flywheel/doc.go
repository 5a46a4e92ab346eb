// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package flywheel is the outer control loop of a cortex.

A Flywheel owns the host side of ticking: it waits on a command channel,
runs Iterate(n) ticks one Cortex.Cycle at a time, and broadcasts Responses
to every subscriber. Stop aborts a loop between ticks; Exit broadcasts a
final idle Status followed by Exiting and returns from Run.

Each tick produces a Status and a CurrentIter response, a Motor response
when a motor tract is configured, and a SampleProgress response for every
sampler that received a frame. AreaInfo responses carry soma statistics
every InfoInterval ticks, and are also recorded in the Log table.
*/
package flywheel
