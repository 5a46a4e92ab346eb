// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compute

import (
	"fmt"
	"sort"
)

// CmdIdx identifies a command of an ExecGraph.
type CmdIdx int

// Command is one node of an execution graph: the buffer regions it reads
// and writes, and the event of its most recent execution.
type Command struct {
	Name string
	Srcs []MemBlock
	Tgts []MemBlock

	// event of the latest execution
	Event *Event

	// commands this one must wait for: hazards and explicit edges
	Deps []CmdIdx

	// position in the established order
	Pos int
}

// ExecGraph orders the commands of one tick. Commands are added during
// build, then Populate establishes the order and the dependencies. Each tick
// starts with TickStart; the host then asks for Prereqs of each command it
// runs, in order, and records the resulting event with SetEvent.
type ExecGraph struct {
	Cmds  []*Command
	Order []CmdIdx

	edges   map[CmdIdx][]CmdIdx
	locked  bool
	lastPos int
}

// NewExecGraph returns an empty graph.
func NewExecGraph() *ExecGraph {
	return &ExecGraph{edges: make(map[CmdIdx][]CmdIdx), lastPos: -1}
}

// AddCommand registers a command with the regions it reads and writes.
func (eg *ExecGraph) AddCommand(name string, srcs, tgts []MemBlock) (CmdIdx, error) {
	if eg.locked {
		return -1, fmt.Errorf("%w: exec graph is populated, cannot add %s", ErrAccelerator, name)
	}
	eg.Cmds = append(eg.Cmds, &Command{Name: name, Srcs: srcs, Tgts: tgts})
	return CmdIdx(len(eg.Cmds) - 1), nil
}

// AddEdge requires from to run before to, in addition to memory hazards.
func (eg *ExecGraph) AddEdge(from, to CmdIdx) error {
	if eg.locked {
		return fmt.Errorf("%w: exec graph is populated", ErrAccelerator)
	}
	if !eg.valid(from) || !eg.valid(to) {
		return fmt.Errorf("%w: edge %d -> %d", ErrAccelerator, from, to)
	}
	eg.edges[from] = append(eg.edges[from], to)
	return nil
}

func (eg *ExecGraph) valid(ci CmdIdx) bool {
	return ci >= 0 && int(ci) < len(eg.Cmds)
}

func blocksOverlap(a, b []MemBlock) bool {
	for _, x := range a {
		for _, y := range b {
			if x.Overlaps(y) {
				return true
			}
		}
	}
	return false
}

// conflicts reports a read-after-write, write-after-read or
// write-after-write hazard between two commands.
func conflicts(a, b *Command) bool {
	return blocksOverlap(a.Tgts, b.Srcs) || blocksOverlap(a.Srcs, b.Tgts) || blocksOverlap(a.Tgts, b.Tgts)
}

// Populate derives hazard edges between commands in insertion order, adds
// explicit edges and topologically sorts the result. Ties keep insertion
// order. A cycle returns ErrExecGraphCycle.
func (eg *ExecGraph) Populate() error {
	n := len(eg.Cmds)
	succ := make([][]CmdIdx, n)
	indeg := make([]int, n)
	add := func(f, t CmdIdx) {
		for _, s := range succ[f] {
			if s == t {
				return
			}
		}
		succ[f] = append(succ[f], t)
		indeg[t]++
	}
	for i := 0; i < n; i++ {
		eg.Cmds[i].Deps = eg.Cmds[i].Deps[:0]
		for j := i + 1; j < n; j++ {
			if conflicts(eg.Cmds[i], eg.Cmds[j]) {
				add(CmdIdx(i), CmdIdx(j))
			}
		}
	}
	for f, tos := range eg.edges {
		for _, t := range tos {
			add(f, t)
		}
	}

	var ready []CmdIdx
	for i := 0; i < n; i++ {
		if indeg[i] == 0 {
			ready = append(ready, CmdIdx(i))
		}
	}
	order := make([]CmdIdx, 0, n)
	for len(ready) > 0 {
		sort.Slice(ready, func(a, b int) bool { return ready[a] < ready[b] })
		c := ready[0]
		ready = ready[1:]
		order = append(order, c)
		for _, s := range succ[c] {
			indeg[s]--
			if indeg[s] == 0 {
				ready = append(ready, s)
			}
		}
	}
	if len(order) != n {
		var stuck []string
		for i := 0; i < n; i++ {
			if indeg[i] > 0 {
				stuck = append(stuck, eg.Cmds[i].Name)
			}
		}
		return fmt.Errorf("%w: commands %v", ErrExecGraphCycle, stuck)
	}
	eg.Order = order
	for pos, c := range order {
		eg.Cmds[c].Pos = pos
	}

	// every conflicting command is a runtime dependency, whichever side of
	// the tick boundary its latest execution falls on
	for i := 0; i < n; i++ {
		ci := eg.Cmds[i]
		for j := 0; j < n; j++ {
			if i == j || conflicts(ci, eg.Cmds[j]) {
				ci.Deps = append(ci.Deps, CmdIdx(j))
			}
		}
	}
	for f, tos := range eg.edges {
		for _, t := range tos {
			ct := eg.Cmds[t]
			has := false
			for _, d := range ct.Deps {
				if d == f {
					has = true
					break
				}
			}
			if !has {
				ct.Deps = append(ct.Deps, f)
			}
		}
	}
	eg.locked = true
	return nil
}

// TickStart begins a new tick of requests.
func (eg *ExecGraph) TickStart() {
	eg.lastPos = -1
}

// Prereqs returns the wait list for command ci: the latest pending events
// of every command it depends on. Commands may be skipped, but must be
// requested in the established order within a tick.
func (eg *ExecGraph) Prereqs(ci CmdIdx) (EventList, error) {
	if !eg.locked {
		return nil, fmt.Errorf("%w: exec graph not populated", ErrCommandUnsatisfied)
	}
	if !eg.valid(ci) {
		return nil, fmt.Errorf("%w: command %d", ErrCommandUnsatisfied, ci)
	}
	cmd := eg.Cmds[ci]
	if cmd.Pos <= eg.lastPos {
		return nil, fmt.Errorf("%w: %s requested after %s", ErrCommandUnsatisfied, cmd.Name, eg.Cmds[eg.Order[eg.lastPos]].Name)
	}
	eg.lastPos = cmd.Pos
	var wl EventList
	for _, d := range cmd.Deps {
		wl.Add(eg.Cmds[d].Event)
	}
	return wl, nil
}

// SetEvent records the event of command ci's latest execution.
func (eg *ExecGraph) SetEvent(ci CmdIdx, ev *Event) {
	eg.Cmds[ci].Event = ev
}

// Events returns the pending events of commands writing any of the given
// blocks, for readers outside the graph.
func (eg *ExecGraph) Events(blks []MemBlock) EventList {
	var wl EventList
	for _, c := range eg.Cmds {
		if blocksOverlap(c.Tgts, blks) {
			wl.Add(c.Event)
		}
	}
	return wl
}

// AllEvents returns every pending event in the graph.
func (eg *ExecGraph) AllEvents() EventList {
	var wl EventList
	for _, c := range eg.Cmds {
		wl.Add(c.Event)
	}
	return wl
}
