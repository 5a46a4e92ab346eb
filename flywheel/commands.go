// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package flywheel

import (
	"time"

	"github.com/emer/etable/v2/minmax"
	"github.com/goki/ki/kit"
)

// Cmds are the commands a flywheel accepts.
type Cmds int32

//go:generate stringer -type=Cmds

var KiT_Cmds = kit.Enums.AddEnum(CmdsN, kit.NotBitFlag, nil)

func (ev Cmds) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *Cmds) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }

const (
	// None does nothing; it wakes an idle loop.
	None Cmds = iota

	// Iterate runs N more ticks.
	Iterate

	// Stop aborts the running loop before its next tick.
	Stop

	// Exit stops and tears down the loop.
	Exit

	CmdsN
)

// Command is one message on the control channel.
type Command struct {
	Cmd Cmds

	// ticks to run, for Iterate
	N uint32
}

// IterateCmd returns the command to run n ticks.
func IterateCmd(n uint32) Command {
	return Command{Cmd: Iterate, N: n}
}

// Responses are the kinds of response a flywheel broadcasts.
type Responses int32

//go:generate stringer -type=Responses

var KiT_Responses = kit.Enums.AddEnum(ResponsesN, kit.NotBitFlag, nil)

func (ev Responses) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *Responses) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }

const (
	// Status is sent after every tick and whenever the loop goes idle.
	Status Responses = iota

	// CurrentIter reports the ticks done in the running loop.
	CurrentIter

	// AreaInfo carries per area soma statistics.
	AreaInfo

	// SampleProgress reports frames delivered to one sampler.
	SampleProgress

	// Exiting is the last response before Run returns.
	Exiting

	// Motor carries the frame read from the motor tract.
	Motor

	ResponsesN
)

// StatusInfo is the state of the loop.
type StatusInfo struct {
	// start of the running loop, nil when idle
	CurStartTime *time.Time

	// ticks left in the running loop
	Remaining uint32
}

// Running reports whether a loop is in progress.
func (si *StatusInfo) Running() bool {
	return si.CurStartTime != nil
}

// LayerStats are the soma statistics of one data layer.
type LayerStats struct {
	Layer string

	// mean and max of soma states, with the cell index of the max
	Soma minmax.AvgMax32

	// lowest soma state
	Min float32

	// cells with non-zero soma state
	NActive int
}

// AreaStats are the statistics of one cortical area.
type AreaStats struct {
	Area   string
	Tick   uint64
	Layers []LayerStats
}

// ProgressInfo is the delivery count of one sampler.
type ProgressInfo struct {
	Area      string
	Kind      string
	Delivered uint64
	Dropped   uint64
}

// Response is one broadcast message. Type selects which fields are set.
type Response struct {
	Type Responses

	// cortex tick when the response was made
	Tick uint64

	Status   *StatusInfo
	Iter     uint32
	Areas    []AreaStats
	Progress *ProgressInfo
	Motor    []byte

	// recoverable error of this tick; the loop continues
	Err error
}
