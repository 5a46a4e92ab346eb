// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cortex

import "github.com/emer/emergent/v2/etime"

// Time counts the ticks of an area and schedules its synapse regrowth.
type Time struct {

	// ticks the area has run, restored from snapshots
	Tick uint64

	// ticks since the last synapse regrowth
	SinceRegrow int

	// number of regrowths run
	Regrows int

	// ticks between regrowths
	RegrowInterval int `def:"400"`

	// Train enables synapse learning; any other mode only infers
	Mode etime.Modes
}

// NewTime returns a Time in Train mode, regrowing every
// SynapseRegrowthInterval ticks.
func NewTime() *Time {
	tm := &Time{}
	tm.Defaults()
	return tm
}

// Defaults restores the regrowth interval and Train mode.
func (tm *Time) Defaults() {
	tm.RegrowInterval = SynapseRegrowthInterval
	tm.Mode = etime.Train
}

// Reset zeroes the tick and regrowth counters. A zero interval is
// restored to its default.
func (tm *Time) Reset() {
	tm.Tick = 0
	tm.SinceRegrow = 0
	tm.Regrows = 0
	if tm.RegrowInterval == 0 {
		tm.Defaults()
	}
}

// TickInc increments the tick counters and reports whether a regrowth is
// due on this tick.
func (tm *Time) TickInc() bool {
	tm.Tick++
	tm.SinceRegrow++
	if tm.RegrowInterval > 0 && tm.SinceRegrow >= tm.RegrowInterval {
		tm.SinceRegrow = 0
		tm.Regrows++
		return true
	}
	return false
}

// Learning reports whether the mode allows learning.
func (tm *Time) Learning() bool {
	return tm.Mode == etime.Train
}
