// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compute

import "fmt"

// Mem is the untyped view of a Buffer used by the execution graph.
type Mem interface {
	BufId() uint32
	BufName() string
	Len() int
}

// Buffer is a block of device memory holding elements of type T.
// Kernels index Data directly; the host goes through the queue.
type Buffer[T any] struct {
	Name string
	Data []T
	id   uint32
}

// NewBuffer allocates a zeroed buffer of n elements on dv.
func NewBuffer[T any](dv *Device, name string, n int) *Buffer[T] {
	return &Buffer[T]{Name: name, Data: make([]T, n), id: dv.newBufId()}
}

// NewBufferFrom allocates a buffer initialized with a copy of vals.
func NewBufferFrom[T any](dv *Device, name string, vals []T) *Buffer[T] {
	bf := NewBuffer[T](dv, name, len(vals))
	copy(bf.Data, vals)
	return bf
}

func (bf *Buffer[T]) BufId() uint32   { return bf.id }
func (bf *Buffer[T]) BufName() string { return bf.Name }
func (bf *Buffer[T]) Len() int        { return len(bf.Data) }

// Block returns the memory block covering [off, off+n).
func (bf *Buffer[T]) Block(off, n int) MemBlock {
	return MemBlock{Buf: bf.id, Off: off, Len: n}
}

// All returns the memory block covering the whole buffer.
func (bf *Buffer[T]) All() MemBlock {
	return MemBlock{Buf: bf.id, Off: 0, Len: len(bf.Data)}
}

func (bf *Buffer[T]) checkRange(off, n int) error {
	if off < 0 || n < 0 || off+n > len(bf.Data) {
		return fmt.Errorf("%w: buffer %s range [%d, %d) of %d", ErrAccelerator, bf.Name, off, off+n, len(bf.Data))
	}
	return nil
}

// MemBlock is a region of one buffer.
type MemBlock struct {
	Buf uint32
	Off int
	Len int
}

// Overlaps reports whether two blocks share any element.
func (mb MemBlock) Overlaps(o MemBlock) bool {
	if mb.Buf != o.Buf || mb.Len == 0 || o.Len == 0 {
		return false
	}
	return mb.Off < o.Off+o.Len && o.Off < mb.Off+mb.Len
}

// Blocks is a convenience for building block lists.
func Blocks(mems ...Mem) []MemBlock {
	bl := make([]MemBlock, len(mems))
	for i, m := range mems {
		bl[i] = MemBlock{Buf: m.BufId(), Off: 0, Len: m.Len()}
	}
	return bl
}
