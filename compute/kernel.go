// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compute

import "fmt"

// KernelFunc computes one work item at global position (v, u). Scalar
// arguments are those captured when the kernel was enqueued.
type KernelFunc func(v, u uint32, args []uint32)

// Kernel is a function over a 2D global range split into local work groups.
type Kernel struct {
	Name       string
	GlobalSize [2]uint32
	LocalSize  [2]uint32
	Fn         KernelFunc

	// scalar arguments, copied at enqueue time
	Args []uint32
}

// NewKernel returns a kernel, checking that the global size is a multiple of
// the local size on both axes.
func NewKernel(name string, global, local [2]uint32, nargs int, fn KernelFunc) (*Kernel, error) {
	for i := 0; i < 2; i++ {
		if global[i] == 0 || local[i] == 0 || global[i]%local[i] != 0 {
			return nil, fmt.Errorf("%w: kernel %s global size %v is not a multiple of local size %v", ErrAccelerator, name, global, local)
		}
	}
	return &Kernel{Name: name, GlobalSize: global, LocalSize: local, Fn: fn, Args: make([]uint32, nargs)}, nil
}

// SetArg sets scalar argument i.
func (kn *Kernel) SetArg(i int, val uint32) {
	kn.Args[i] = val
}

// NGroups returns the number of work groups.
func (kn *Kernel) NGroups() int {
	return int((kn.GlobalSize[0] / kn.LocalSize[0]) * (kn.GlobalSize[1] / kn.LocalSize[1]))
}

// runGroups executes work groups [st, ed) with the given argument snapshot.
func (kn *Kernel) runGroups(st, ed int, args []uint32) {
	gu := int(kn.GlobalSize[1] / kn.LocalSize[1])
	for g := st; g < ed; g++ {
		v0 := uint32(g/gu) * kn.LocalSize[0]
		u0 := uint32(g%gu) * kn.LocalSize[1]
		for lv := uint32(0); lv < kn.LocalSize[0]; lv++ {
			for lu := uint32(0); lu < kn.LocalSize[1]; lu++ {
				kn.Fn(v0+lv, u0+lu, args)
			}
		}
	}
}
