// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compute

import (
	"errors"
	"fmt"
	"sync"
)

// Queue accepts commands for a device. Enqueue never blocks: each command
// waits for its wait list on its own goroutine, then runs and completes its
// event.
type Queue struct {
	Name string
	Dev  *Device

	mu       sync.Mutex
	idle     *sync.Cond
	inflight int
	lastErr  error
}

// NewQueue returns a queue on dv.
func NewQueue(dv *Device, name string) *Queue {
	q := &Queue{Name: name, Dev: dv}
	q.idle = sync.NewCond(&q.mu)
	return q
}

// InFlight returns the number of commands not yet complete.
func (q *Queue) InFlight() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.inflight
}

func (q *Queue) submit(name string, wait EventList, run func() error) (*Event, error) {
	q.mu.Lock()
	if q.inflight >= q.Dev.MaxInFlight {
		n := q.inflight
		q.mu.Unlock()
		return nil, fmt.Errorf("%w: queue %s has %d commands in flight", ErrDeviceBusy, q.Name, n)
	}
	q.inflight++
	q.mu.Unlock()

	ev := NewEvent(name)
	wl := append(EventList(nil), wait...)
	go func() {
		err := wl.Wait()
		if err == nil {
			q.Dev.FunTimerStart(name)
			err = run()
			q.Dev.FunTimerStop(name)
		}
		q.mu.Lock()
		q.inflight--
		if err != nil && q.lastErr == nil {
			q.lastErr = err
		}
		if q.inflight == 0 {
			q.idle.Broadcast()
		}
		q.mu.Unlock()
		ev.Complete(err)
	}()
	return ev, nil
}

// Finish blocks until every enqueued command has completed, and returns and
// clears the first error any of them produced.
func (q *Queue) Finish() error {
	q.mu.Lock()
	for q.inflight > 0 {
		q.idle.Wait()
	}
	err := q.lastErr
	q.lastErr = nil
	q.mu.Unlock()
	return err
}

// EnqueueKernel runs kn over its global range once wait completes. Scalar
// arguments are captured now.
func (q *Queue) EnqueueKernel(kn *Kernel, wait EventList) (*Event, error) {
	args := append([]uint32(nil), kn.Args...)
	ng := kn.NGroups()
	return q.submit(kn.Name, wait, func() error {
		q.Dev.ThrFun(ng, func(st, ed int) {
			kn.runGroups(st, ed, args)
		})
		return nil
	})
}

// EnqueueHost runs a host function as a queue command.
func (q *Queue) EnqueueHost(name string, fn func() error, wait EventList) (*Event, error) {
	return q.submit(name, wait, fn)
}

// EnqueueRead copies bf[off:off+len(dst)] into dst.
func EnqueueRead[T any](q *Queue, bf *Buffer[T], off int, dst []T, wait EventList) (*Event, error) {
	if err := bf.checkRange(off, len(dst)); err != nil {
		return nil, err
	}
	return q.submit("read:"+bf.Name, wait, func() error {
		copy(dst, bf.Data[off:off+len(dst)])
		return nil
	})
}

// EnqueueWrite copies src into bf at off. src is copied at enqueue time and
// may be reused by the caller immediately.
func EnqueueWrite[T any](q *Queue, bf *Buffer[T], off int, src []T, wait EventList) (*Event, error) {
	if err := bf.checkRange(off, len(src)); err != nil {
		return nil, err
	}
	cp := append([]T(nil), src...)
	return q.submit("write:"+bf.Name, wait, func() error {
		copy(bf.Data[off:], cp)
		return nil
	})
}

// EnqueueCopy copies n elements between buffers.
func EnqueueCopy[T any](q *Queue, src *Buffer[T], srcOff int, dst *Buffer[T], dstOff, n int, wait EventList) (*Event, error) {
	if err := src.checkRange(srcOff, n); err != nil {
		return nil, err
	}
	if err := dst.checkRange(dstOff, n); err != nil {
		return nil, err
	}
	return q.submit("copy:"+src.Name+">"+dst.Name, wait, func() error {
		copy(dst.Data[dstOff:dstOff+n], src.Data[srcOff:srcOff+n])
		return nil
	})
}

// EnqueueFill sets n elements from off to val.
func EnqueueFill[T any](q *Queue, bf *Buffer[T], val T, off, n int, wait EventList) (*Event, error) {
	if err := bf.checkRange(off, n); err != nil {
		return nil, err
	}
	return q.submit("fill:"+bf.Name, wait, func() error {
		d := bf.Data[off : off+n]
		for i := range d {
			d[i] = val
		}
		return nil
	})
}

// ReadBlocking enqueues a read and waits for it.
func ReadBlocking[T any](q *Queue, bf *Buffer[T], off int, dst []T, wait EventList) error {
	ev, err := Retry(q, func() (*Event, error) { return EnqueueRead(q, bf, off, dst, wait) })
	if err != nil {
		return err
	}
	return ev.Wait()
}

// WriteBlocking enqueues a write and waits for it.
func WriteBlocking[T any](q *Queue, bf *Buffer[T], off int, src []T, wait EventList) error {
	ev, err := Retry(q, func() (*Event, error) { return EnqueueWrite(q, bf, off, src, wait) })
	if err != nil {
		return err
	}
	return ev.Wait()
}

// Retry calls enq, and on ErrDeviceBusy drains the queue and tries once more.
func Retry(q *Queue, enq func() (*Event, error)) (*Event, error) {
	ev, err := enq()
	if err == nil || !errors.Is(err, ErrDeviceBusy) {
		return ev, err
	}
	if ferr := q.Finish(); ferr != nil {
		return nil, ferr
	}
	return enq()
}
