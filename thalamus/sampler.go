// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package thalamus

import (
	"context"
	"sync/atomic"

	"github.com/emer/cortex/layermap"
	"github.com/emer/etable/v2/etensor"
	"github.com/goki/ki/kit"
)

// SamplerType is the area state a sampler copies out.
type SamplerType int

//go:generate stringer -type=SamplerType

var KiT_SamplerType = kit.Enums.AddEnum(SamplerTypeN, kit.NotBitFlag, nil)

func (ev SamplerType) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *SamplerType) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }

const (
	// Axons samples the whole axon space, or one layer's slices.
	Axons SamplerType = iota

	SomaStates
	SomaEnergies
	SomaActivities
	SomaFlagSets
	TuftStates
	TuftBestDenIds
	TuftBestDenStatesRaw
	TuftBestDenStates
	TuftPrevBestDenIds
	TuftPrevBestDenStatesRaw
	TuftPrevBestDenStates
	DenStates
	DenStatesRaw
	DenEnergies
	DenActivities
	DenThresholds
	SynStates
	SynStrengths
	SynSrcSlcIds
	SynSrcColVOffs
	SynSrcColUOffs
	SynFlagSets

	SamplerTypeN
)

// IsTuft is true for types sampled from one tuft of a data layer.
func (st SamplerType) IsTuft() bool {
	return st >= TuftStates
}

// Signed is true for types holding signed 8-bit values.
func (st SamplerType) Signed() bool {
	return st == SynStrengths || st == SynSrcColVOffs || st == SynSrcColUOffs
}

// SamplerKind selects what a sampler copies. Addr selects the layer, and is
// optional for Axons only; Tuft selects the tuft for tuft, dendrite and
// synapse types.
type SamplerKind struct {
	Type SamplerType
	Addr *layermap.LayerAddr
	Tuft int
}

// SamplerBufferKind sets how many frames a sampler buffers.
type SamplerBufferKind int

//go:generate stringer -type=SamplerBufferKind

var KiT_SamplerBufferKind = kit.Enums.AddEnum(SamplerBufferKindN, kit.NotBitFlag, nil)

func (ev SamplerBufferKind) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *SamplerBufferKind) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }

const (
	// SingleBuffer holds the latest frame only.
	SingleBuffer SamplerBufferKind = iota

	// DoubleBuffer holds two frames, so a consumer may lag one tick.
	DoubleBuffer

	SamplerBufferKindN
)

// Capacity returns the channel capacity for the kind.
func (bk SamplerBufferKind) Capacity() int {
	if bk == DoubleBuffer {
		return 2
	}
	return 1
}

// SampleFrame is one delivered copy of area state.
type SampleFrame struct {
	Area string
	Tick uint64
	Kind SamplerKind

	// shape of Data with dimension names
	Shape etensor.Shape

	// raw 8-bit values; signed types are two's complement
	Data []byte

	// element range of Data within its source buffer
	Range [2]uint32

	// set when the sample could not be taken this tick
	Err error
}

// Int8s returns Data reinterpreted as signed values.
func (sf *SampleFrame) Int8s() []int8 {
	v := make([]int8, len(sf.Data))
	for i, b := range sf.Data {
		v[i] = int8(b)
	}
	return v
}

// Sampler is a registered consumer of one kind of area state.
type Sampler struct {
	Area         string
	AreaId       uint32
	Kind         SamplerKind
	BufKind      SamplerBufferKind
	Backpressure bool

	// frames dropped to make room, without backpressure
	Dropped atomic.Uint64

	// frames delivered
	Delivered atomic.Uint64

	ch     chan *SampleFrame
	closed atomic.Bool
}

// Deliver hands a frame to the consumer. With backpressure it blocks until
// there is room or ctx is done; otherwise the oldest buffered frame is
// dropped.
func (sm *Sampler) Deliver(ctx context.Context, sf *SampleFrame) error {
	if sm.closed.Load() {
		return nil
	}
	if sm.Backpressure {
		select {
		case sm.ch <- sf:
			sm.Delivered.Add(1)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	for {
		select {
		case sm.ch <- sf:
			sm.Delivered.Add(1)
			return nil
		default:
		}
		select {
		case <-sm.ch:
			sm.Dropped.Add(1)
		default:
		}
	}
}

// Receiver is the consumer side of a sampler.
type Receiver struct {
	C <-chan *SampleFrame

	sm *Sampler
	th *Thalamus
}

// Recv waits for the next frame.
func (rc *Receiver) Recv(ctx context.Context) (*SampleFrame, error) {
	select {
	case sf := <-rc.C:
		return sf, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Sampler returns the producer side, for statistics.
func (rc *Receiver) Sampler() *Sampler {
	return rc.sm
}

// Close unregisters the sampler. Buffered frames remain readable.
func (rc *Receiver) Close() {
	rc.sm.closed.Store(true)
	rc.th.removeSampler(rc.sm)
}
