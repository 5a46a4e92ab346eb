// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package thalamus

import (
	"context"
	"fmt"
	"sync"

	"github.com/emer/cortex/compute"
	"github.com/emer/cortex/dims"
	"github.com/emer/cortex/layermap"
	"github.com/goki/ki/kit"
	"github.com/voodooEntity/archivist"
)

// TractState is the readiness state of a tract's current frame.
type TractState int32

//go:generate stringer -type=TractState

var KiT_TractState = kit.Enums.AddEnum(TractStateN, kit.NotBitFlag, nil)

func (ev TractState) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *TractState) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }

const (
	// TractEmpty has no unread frame.
	TractEmpty TractState = iota

	// TractWriting is being written.
	TractWriting

	// TractReady holds a frame not yet consumed.
	TractReady

	// TractReading is held by a host reader.
	TractReading

	TractStateN
)

// Tract is the buffer carrying one layer's axons out of its area.
type Tract struct {
	Addr layermap.LayerAddr
	Name string
	Dims dims.CorticalDims
	Buf  *compute.Buffer[uint8]

	// if true, writers park until the previous frame is consumed
	Backpressure bool

	// number of frames written
	Frames uint64

	// number of frames replaced before being read
	Overwrites uint64

	mu      sync.Mutex
	state   TractState
	changed chan struct{}
	ready   *compute.Event
	reads   compute.EventList
	holds   int
}

func newTract(dv *compute.Device, addr layermap.LayerAddr, name string, cd dims.CorticalDims) *Tract {
	return &Tract{Addr: addr, Name: name, Dims: cd,
		Buf:     compute.NewBuffer[uint8](dv, "tract:"+name, int(cd.Cells())),
		changed: make(chan struct{}),
	}
}

// State returns the current state.
func (tr *Tract) State() TractState {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.state
}

// SetBackpressure turns writer parking on or off.
func (tr *Tract) SetBackpressure(on bool) {
	tr.mu.Lock()
	tr.Backpressure = on
	tr.notify()
	tr.mu.Unlock()
}

// notify wakes parked writers. mu must be held.
func (tr *Tract) notify() {
	close(tr.changed)
	tr.changed = make(chan struct{})
}

// mustPark reports whether a writer has to wait. mu must be held.
func (tr *Tract) mustPark() bool {
	return tr.state == TractReading || (tr.state == TractReady && tr.Backpressure)
}

// WriteFunc enqueues a write of buf that waits on wait, returning the
// write's completion event.
type WriteFunc func(buf *compute.Buffer[uint8], wait compute.EventList) (*compute.Event, error)

// Write produces a new frame through fn, parking first if required. The
// context cancels parking only.
func (tr *Tract) Write(ctx context.Context, fn WriteFunc) error {
	tr.mu.Lock()
	for tr.mustPark() {
		ch := tr.changed
		tr.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
		tr.mu.Lock()
	}
	defer tr.mu.Unlock()
	return tr.write(fn)
}

// TryWrite is Write that returns ErrTractBusy instead of parking.
func (tr *Tract) TryWrite(fn WriteFunc) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tr.mustPark() {
		return fmt.Errorf("%w: %s is %v", ErrTractBusy, tr.Name, tr.state)
	}
	return tr.write(fn)
}

func (tr *Tract) write(fn WriteFunc) error {
	prev := tr.state
	if prev == TractReady {
		tr.Overwrites++
		archivist.Debug("tract frame overwritten before read", tr.Name)
	}
	tr.state = TractWriting
	wait := append(compute.EventList(nil), tr.reads...)
	wait.Add(tr.ready)
	ev, err := fn(tr.Buf, wait)
	if err != nil {
		tr.state = prev
		return err
	}
	tr.ready = ev
	tr.reads.Clear()
	tr.state = TractReady
	tr.Frames++
	tr.notify()
	return nil
}

// ReadFunc enqueues a read of buf that waits on wait, returning the read's
// completion event.
type ReadFunc func(buf *compute.Buffer[uint8], wait compute.EventList) (*compute.Event, error)

// Read consumes the current frame on the device through fn. fresh reports
// whether the frame had not been consumed before; stale frames can still be
// read.
func (tr *Tract) Read(fn ReadFunc) (fresh bool, err error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	fresh = tr.state == TractReady
	var wait compute.EventList
	wait.Add(tr.ready)
	ev, err := fn(tr.Buf, wait)
	if err != nil {
		return false, err
	}
	tr.reads.Add(ev)
	if fresh {
		tr.state = TractEmpty
		tr.notify()
	}
	return fresh, nil
}

// BeginRead holds the tract for a host read until the guard is released.
func (tr *Tract) BeginRead() *ReadGuard {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	fresh := tr.state == TractReady
	tr.state = TractReading
	tr.holds++
	return &ReadGuard{tr: tr, Fresh: fresh, ready: tr.ready}
}

func (tr *Tract) endRead() {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.holds--
	if tr.holds > 0 {
		return
	}
	tr.state = TractEmpty
	tr.notify()
}

// ReadGuard is a host read of a tract frame. The data stays valid until
// Release.
type ReadGuard struct {
	// true if this read consumed a new frame
	Fresh bool

	tr       *Tract
	ready    *compute.Event
	released bool
}

// Wait blocks until the frame is written and returns its bytes.
func (rg *ReadGuard) Wait() ([]byte, error) {
	if rg.ready != nil {
		if err := rg.ready.Wait(); err != nil {
			return nil, err
		}
	}
	return rg.tr.Buf.Data, nil
}

// CopyTo waits for the frame and copies it into dst.
func (rg *ReadGuard) CopyTo(dst []byte) error {
	if len(dst) != rg.tr.Buf.Len() {
		return fmt.Errorf("%w: %s holds %d bytes, destination %d", ErrTractMismatch, rg.tr.Name, rg.tr.Buf.Len(), len(dst))
	}
	data, err := rg.Wait()
	if err != nil {
		return err
	}
	copy(dst, data)
	return nil
}

// Release ends the read.
func (rg *ReadGuard) Release() {
	if rg.released {
		return
	}
	rg.released = true
	rg.tr.endRead()
}
