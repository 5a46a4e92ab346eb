// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package encode

import (
	"context"
	"fmt"

	"github.com/emer/cortex/dims"
	"github.com/emer/cortex/layermap"
	"github.com/emer/cortex/thalamus"
)

// Pathway addresses the tract an encoder writes into.
type Pathway struct {

	// external area fed by the encoder
	Area string

	// tags of the area's output layer; zero means layermap.FFOut
	Tags layermap.LayerTags

	// park the encoder until the previous frame is consumed
	Backpressure bool
}

// encoder is the state shared by the nuclei that write frames into a tract.
type encoder struct {
	name   string
	path   Pathway
	sender *thalamus.Sender
	cd     dims.CorticalDims
	frame  []byte

	// frames sent
	sent uint64
}

func (en *encoder) Name() string { return en.name }

// Dims returns the dims of the target tract, valid after CreatePathways.
func (en *encoder) Dims() dims.CorticalDims { return en.cd }

// Sent returns the number of frames sent.
func (en *encoder) Sent() uint64 { return en.sent }

// Frame returns the last frame sent.
func (en *encoder) Frame() []byte { return en.frame }

func (en *encoder) open(th *thalamus.Thalamus) error {
	tags := en.path.Tags
	if tags.Bits == 0 {
		tags = layermap.FFOut
	}
	addr, err := th.Addr(en.path.Area, tags)
	if err != nil {
		return err
	}
	sd, err := th.InputPathway(addr, en.path.Backpressure)
	if err != nil {
		return err
	}
	en.sender = sd
	en.cd = sd.Dims()
	en.frame = make([]byte, en.cd.Cells())
	return nil
}

// send copies the first slice of the frame into the other slices, then
// writes the frame.
func (en *encoder) send(ctx context.Context) error {
	if en.sender == nil {
		return fmt.Errorf("%w: encoder %s has no pathway", thalamus.ErrTractMismatch, en.name)
	}
	cols := int(en.cd.Columns())
	for s := 1; s < int(en.cd.Depth); s++ {
		copy(en.frame[s*cols:(s+1)*cols], en.frame[:cols])
	}
	// a host write is enqueued, so each frame needs its own bytes
	fr := append([]byte(nil), en.frame...)
	if err := en.sender.Send(ctx, fr); err != nil {
		return err
	}
	en.sent++
	return nil
}

func (en *encoder) PostCycle(ctx context.Context, th *thalamus.Thalamus) error { return nil }
