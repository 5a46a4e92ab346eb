// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cortex

import "errors"

// ErrRegrowExhausted is returned when a dendrite cannot find a free source.
var ErrRegrowExhausted = errors.New("synapse regrowth exhausted")

const (
	// SynapseRegrowthInterval is the default number of ticks between regrowths.
	SynapseRegrowthInterval = 400

	// SynStrengthFloor is the strength at or below which a synapse is regrown.
	SynStrengthFloor = -25

	// SynStrengthMax and SynStrengthMin bound learned strengths.
	SynStrengthMax = 127
	SynStrengthMin = -128

	// SynLTPInc and SynLTDDec are the per-tick learning steps.
	SynLTPInc = 1
	SynLTDDec = 1

	// SlcNone marks a synapse without a source.
	SlcNone = 255

	// DenThreshInit is the dendrite threshold used when a tuft gives none.
	DenThreshInit = 32

	// DenEnergyInc is added to a silent dendrite's energy each cycle.
	DenEnergyInc = 4

	// DenEnergyShift converts dendrite energy into a boost state.
	DenEnergyShift = 4

	// CellEnergyInc is added to a losing cell's energy each cycle.
	CellEnergyInc = 2

	// ActivityShift sets the time constant of the activity averages.
	ActivityShift = 3

	// LocalSize is the local work-group size on both axes.
	LocalSize = 8

	// RegrowMaxAttempts bounds the source draws for one synapse.
	RegrowMaxAttempts = 1 << 12
)

// Synapse flag bits.
const (
	// SynFlagActive is set when the synapse state was non-zero last cycle.
	SynFlagActive uint8 = 1 << iota

	// SynFlagPrevActive holds SynFlagActive of the cycle before.
	SynFlagPrevActive
)

// Cell flag bits.
const (
	// CellFlagPredictive marks a pyramidal cell predicted by a distal tuft.
	CellFlagPredictive uint8 = 1 << iota

	// CellFlagWinner marks a cell selected to fire in an active column.
	CellFlagWinner

	// CellFlagPrevPredictive holds CellFlagPredictive of the previous cycle.
	CellFlagPrevPredictive
)

// Minicolumn flag bits.
const (
	// McolFlagActive marks a column with a surviving spiny stellate cell.
	McolFlagActive uint8 = 1 << iota

	// McolFlagBurst marks an active column without a predicted cell.
	McolFlagBurst
)
