// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package compute is a small accelerator abstraction modeled on OpenCL:
a Device owns worker threads, Buffers hold typed device memory, Kernels run a
function over a 2D range of work items split into local work groups, and a
Queue accepts commands that complete asynchronously, each signalling an
Event. Commands only start once every Event in their wait list is complete.

The host implementation runs kernels on the Device's worker goroutines, so
the same event discipline that would order GPU work orders CPU work here.

ExecGraph records, once at build time, which buffer regions each command of
a tick reads and writes. Commands that touch overlapping regions with at
least one write are ordered (read-after-write, write-after-read,
write-after-write), and at run time each command's wait list is the set of
latest events of the commands it conflicts with, including those enqueued
on the previous tick.
*/
package compute

import "errors"

var (
	// ErrAccelerator wraps any failure of the device, queue or a kernel.
	ErrAccelerator = errors.New("accelerator error")

	// ErrDeviceBusy is a transient error returned when a queue has too many
	// commands in flight. Callers drain the queue and retry.
	ErrDeviceBusy = errors.New("device busy")

	// ErrExecGraphCycle is returned when explicit ordering creates a cycle.
	ErrExecGraphCycle = errors.New("execution graph cycle")

	// ErrCommandUnsatisfied is returned when commands are requested out of
	// their established order within a tick.
	ErrCommandUnsatisfied = errors.New("command requested out of order")
)
