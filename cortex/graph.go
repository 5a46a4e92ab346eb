// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cortex

import (
	"fmt"

	"github.com/emer/cortex/compute"
	"github.com/emer/cortex/dims"
)

// Step is one command of an area's execution graph, with the kernel it
// runs if it is a kernel command.
type Step struct {
	Name string
	Cmd  compute.CmdIdx
	Kn   *compute.Kernel
}

// AreaGraph bundles the queue and execution graph of one area. Every
// device command of the area goes through it.
type AreaGraph struct {
	Name  string
	VSize uint32
	USize uint32
	Dev   *compute.Device
	Queue *compute.Queue
	Graph *compute.ExecGraph
}

// NewAreaGraph returns an empty graph for an area of v x u columns, which
// must both be multiples of LocalSize.
func NewAreaGraph(dv *compute.Device, name string, vSize, uSize uint32) (*AreaGraph, error) {
	if vSize == 0 || uSize == 0 || vSize%LocalSize != 0 || uSize%LocalSize != 0 {
		return nil, fmt.Errorf("%w: area %s is %dx%d, sizes must be multiples of %d", dims.ErrDimensionMismatch, name, vSize, uSize, LocalSize)
	}
	return &AreaGraph{Name: name, VSize: vSize, USize: uSize, Dev: dv,
		Queue: compute.NewQueue(dv, name),
		Graph: compute.NewExecGraph(),
	}, nil
}

// NewKernel returns a kernel over the area's columns, with 8x8 local groups.
func (ag *AreaGraph) NewKernel(name string, nargs int, fn compute.KernelFunc) (*compute.Kernel, error) {
	return compute.NewKernel(ag.Name+":"+name, [2]uint32{ag.VSize, ag.USize}, [2]uint32{LocalSize, LocalSize}, nargs, fn)
}

// AddKernel adds a kernel command reading srcs and writing tgts.
func (ag *AreaGraph) AddKernel(kn *compute.Kernel, srcs, tgts []compute.MemBlock) (*Step, error) {
	ci, err := ag.Graph.AddCommand(kn.Name, srcs, tgts)
	if err != nil {
		return nil, err
	}
	return &Step{Name: kn.Name, Cmd: ci, Kn: kn}, nil
}

// AddStep adds a non-kernel command: copies, tract transfers, host work.
func (ag *AreaGraph) AddStep(name string, srcs, tgts []compute.MemBlock) (*Step, error) {
	ci, err := ag.Graph.AddCommand(ag.Name+":"+name, srcs, tgts)
	if err != nil {
		return nil, err
	}
	return &Step{Name: ag.Name + ":" + name, Cmd: ci}, nil
}

// Run enqueues a kernel step after its prerequisites.
func (ag *AreaGraph) Run(st *Step) error {
	return ag.RunWith(st, func(wait compute.EventList) (*compute.Event, error) {
		return ag.Queue.EnqueueKernel(st.Kn, wait)
	})
}

// RunWith enqueues a step through enq, which receives the step's
// prerequisites and returns its completion event.
func (ag *AreaGraph) RunWith(st *Step, enq func(wait compute.EventList) (*compute.Event, error)) error {
	wait, err := ag.Graph.Prereqs(st.Cmd)
	if err != nil {
		return err
	}
	ev, err := compute.Retry(ag.Queue, func() (*compute.Event, error) { return enq(wait) })
	if err != nil {
		return fmt.Errorf("%s: %w", st.Name, err)
	}
	ag.Graph.SetEvent(st.Cmd, ev)
	return nil
}

// Finish waits for every command of the area.
func (ag *AreaGraph) Finish() error {
	return ag.Queue.Finish()
}

// Begin returns the prerequisites of a step whose enqueue the caller does
// itself, such as a tract transfer. End records its event.
func (ag *AreaGraph) Begin(st *Step) (compute.EventList, error) {
	return ag.Graph.Prereqs(st.Cmd)
}

// End records the completion event of a step started with Begin.
func (ag *AreaGraph) End(st *Step, ev *compute.Event) {
	ag.Graph.SetEvent(st.Cmd, ev)
}
