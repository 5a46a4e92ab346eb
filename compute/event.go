// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compute

import "sync"

// Event signals completion of one enqueued command.
type Event struct {
	Name string

	done chan struct{}
	once sync.Once
	err  error
}

// NewEvent returns a pending event.
func NewEvent(name string) *Event {
	return &Event{Name: name, done: make(chan struct{})}
}

// CompletedEvent returns an event that is already complete.
func CompletedEvent(name string) *Event {
	ev := NewEvent(name)
	ev.Complete(nil)
	return ev
}

// Complete marks the event done with an optional error. Later calls are
// ignored.
func (ev *Event) Complete(err error) {
	ev.once.Do(func() {
		ev.err = err
		close(ev.done)
	})
}

// Wait blocks until the event completes and returns its error.
func (ev *Event) Wait() error {
	<-ev.done
	return ev.err
}

// Done returns a channel closed on completion.
func (ev *Event) Done() <-chan struct{} {
	return ev.done
}

// IsComplete reports completion without blocking.
func (ev *Event) IsComplete() bool {
	select {
	case <-ev.done:
		return true
	default:
		return false
	}
}

// EventList is a wait list of events.
type EventList []*Event

// Add appends ev if it is non-nil and still pending.
func (el *EventList) Add(ev *Event) {
	if ev == nil || ev.IsComplete() && ev.err == nil {
		return
	}
	for _, e := range *el {
		if e == ev {
			return
		}
	}
	*el = append(*el, ev)
}

// Merge adds every event of o.
func (el *EventList) Merge(o EventList) {
	for _, ev := range o {
		el.Add(ev)
	}
}

// Wait waits for all events and returns the first error.
func (el EventList) Wait() error {
	var first error
	for _, ev := range el {
		if err := ev.Wait(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Clear empties the list, keeping capacity.
func (el *EventList) Clear() {
	*el = (*el)[:0]
}
