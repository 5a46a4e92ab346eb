// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package encode

import (
	"context"
	"sync"

	"github.com/emer/cortex/dims"
	"github.com/emer/cortex/layermap"
	"github.com/emer/cortex/thalamus"
)

// Probe copies an output tract to the host after every cycle.
type Probe struct {
	name string
	area string
	tags layermap.LayerTags
	addr layermap.LayerAddr
	cd   dims.CorticalDims

	mu    sync.Mutex
	last  []byte
	fresh bool

	// frames read, and how many of them were fresh
	Reads uint64
	Fresh uint64
}

// NewProbe returns a probe of the output layer of area with tags.
func NewProbe(name, area string, tags layermap.LayerTags) *Probe {
	return &Probe{name: name, area: area, tags: tags}
}

func (pb *Probe) Name() string { return pb.name }

// Dims returns the dims of the probed tract.
func (pb *Probe) Dims() dims.CorticalDims { return pb.cd }

func (pb *Probe) CreatePathways(th *thalamus.Thalamus) error {
	addr, err := th.Addr(pb.area, pb.tags)
	if err != nil {
		return err
	}
	tr, err := th.Tract(addr)
	if err != nil {
		return err
	}
	pb.addr = addr
	pb.cd = tr.Dims
	pb.last = make([]byte, tr.Buf.Len())
	return nil
}

func (pb *Probe) PreCycle(ctx context.Context, th *thalamus.Thalamus) error { return nil }

func (pb *Probe) PostCycle(ctx context.Context, th *thalamus.Thalamus) error {
	rg, err := th.OutputFrame(pb.addr)
	if err != nil {
		return err
	}
	defer rg.Release()
	pb.mu.Lock()
	defer pb.mu.Unlock()
	if err := rg.CopyTo(pb.last); err != nil {
		return err
	}
	pb.fresh = rg.Fresh
	pb.Reads++
	if rg.Fresh {
		pb.Fresh++
	}
	return nil
}

// Last returns a copy of the last frame read, and whether it was fresh.
func (pb *Probe) Last() ([]byte, bool) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return append([]byte(nil), pb.last...), pb.fresh
}
