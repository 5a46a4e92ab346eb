// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cortex

import (
	"fmt"

	"github.com/emer/cortex/compute"
	"github.com/emer/cortex/rnd"
)

// Synapses holds the synapse attributes of all tufts of one data layer, as
// parallel 8-bit arrays indexed by TuftGeom.SynIdx.
type Synapses struct {
	Name string

	// state read from the source axon on the last cycle
	States *compute.Buffer[uint8]

	// signed strength, weighting the state by (strength + 128) / 128
	Strengths *compute.Buffer[int8]

	// source slice, SlcNone if unconnected
	SrcSlcIds *compute.Buffer[uint8]

	// source column offsets, in source slice units
	SrcColVOffs *compute.Buffer[int8]
	SrcColUOffs *compute.Buffer[int8]

	// SynFlagActive and SynFlagPrevActive
	FlagSets *compute.Buffer[uint8]
}

// NewSynapses allocates n unconnected synapses.
func NewSynapses(dv *compute.Device, name string, n int) *Synapses {
	sy := &Synapses{Name: name,
		States:      compute.NewBuffer[uint8](dv, name+":syn_states", n),
		Strengths:   compute.NewBuffer[int8](dv, name+":syn_strengths", n),
		SrcSlcIds:   compute.NewBuffer[uint8](dv, name+":syn_src_slc_ids", n),
		SrcColVOffs: compute.NewBuffer[int8](dv, name+":syn_src_col_v_offs", n),
		SrcColUOffs: compute.NewBuffer[int8](dv, name+":syn_src_col_u_offs", n),
		FlagSets:    compute.NewBuffer[uint8](dv, name+":syn_flag_sets", n),
	}
	for i := range sy.SrcSlcIds.Data {
		sy.SrcSlcIds.Data[i] = SlcNone
	}
	return sy
}

// Len returns the number of synapses.
func (sy *Synapses) Len() int {
	return sy.States.Len()
}

// Bytes returns the device memory used.
func (sy *Synapses) Bytes() int {
	return 6 * sy.Len()
}

// SrcBlocks returns the source attribute blocks of a tuft.
func (sy *Synapses) SrcBlocks(tg *TuftGeom) []compute.MemBlock {
	off, n := int(tg.SynIdz), int(tg.NSyns())
	return []compute.MemBlock{sy.SrcSlcIds.Block(off, n), sy.SrcColVOffs.Block(off, n), sy.SrcColUOffs.Block(off, n)}
}

// AllBlocks returns every attribute block of a tuft.
func (sy *Synapses) AllBlocks(tg *TuftGeom) []compute.MemBlock {
	off, n := int(tg.SynIdz), int(tg.NSyns())
	return append(sy.SrcBlocks(tg), sy.States.Block(off, n), sy.Strengths.Block(off, n), sy.FlagSets.Block(off, n))
}

// buildCycle adds the kernel reading every synapse's source axon.
func (sy *Synapses) buildCycle(ag *AreaGraph, tf *Tuft, ax *AxonSpace) (*Step, error) {
	tg := &tf.Geom
	sm := ax.Slices
	nslc := uint32(len(sm.Dims))
	axons := ax.Axons.Data
	states, slcs := sy.States.Data, sy.SrcSlcIds.Data
	vofs, uofs := sy.SrcColVOffs.Data, sy.SrcColUOffs.Data
	kn, err := ag.NewKernel(fmt.Sprintf("%s:tft%d:syn_cycle", sy.Name, tf.Idx), 0, func(v, u uint32, args []uint32) {
		n := tg.Dens * tg.Syns
		for slc := uint32(0); slc < tg.Depth; slc++ {
			s0 := tg.SynIdx(slc, v, u, 0, 0)
			for i := s0; i < s0+n; i++ {
				src := uint32(slcs[i])
				if src == SlcNone || src >= nslc {
					states[i] = 0
					continue
				}
				ai, ok := sm.Dims[src].AxnIdxOk(sm.Idzs[src], v, u, vofs[i], uofs[i])
				if !ok {
					states[i] = 0
					continue
				}
				states[i] = axons[ai]
			}
		}
	})
	if err != nil {
		return nil, err
	}
	srcs := append(ax.SliceBlocks(tf.Gen.Slices()), sy.SrcBlocks(tg)...)
	return ag.AddKernel(kn, srcs, []compute.MemBlock{sy.States.Block(int(tg.SynIdz), int(tg.NSyns()))})
}

// buildFlags adds the kernel shifting activity into the flag sets.
func (sy *Synapses) buildFlags(ag *AreaGraph, tf *Tuft) (*Step, error) {
	tg := &tf.Geom
	states, flags := sy.States.Data, sy.FlagSets.Data
	kn, err := ag.NewKernel(fmt.Sprintf("%s:tft%d:syn_flags", sy.Name, tf.Idx), 0, func(v, u uint32, args []uint32) {
		n := tg.Dens * tg.Syns
		for slc := uint32(0); slc < tg.Depth; slc++ {
			s0 := tg.SynIdx(slc, v, u, 0, 0)
			for i := s0; i < s0+n; i++ {
				fl := flags[i] &^ (SynFlagActive | SynFlagPrevActive)
				if flags[i]&SynFlagActive != 0 {
					fl |= SynFlagPrevActive
				}
				if states[i] > 0 {
					fl |= SynFlagActive
				}
				flags[i] = fl
			}
		}
	})
	if err != nil {
		return nil, err
	}
	off, n := int(tg.SynIdz), int(tg.NSyns())
	return ag.AddKernel(kn, []compute.MemBlock{sy.States.Block(off, n)}, []compute.MemBlock{sy.FlagSets.Block(off, n)})
}

// satAdd adds d to a strength, saturating in the int8 range.
func satAdd(s int8, d int) int8 {
	r := int(s) + d
	switch {
	case r > SynStrengthMax:
		return SynStrengthMax
	case r < SynStrengthMin:
		return SynStrengthMin
	}
	return int8(r)
}

// learnByState promotes synapses of a dendrite with a non-zero state and
// demotes the others.
func (sy *Synapses) learnByState(s0, n uint32) {
	st, str := sy.States.Data, sy.Strengths.Data
	for i := s0; i < s0+n; i++ {
		if st[i] > 0 {
			str[i] = satAdd(str[i], SynLTPInc)
		} else {
			str[i] = satAdd(str[i], -SynLTDDec)
		}
	}
}

// learnByFlag promotes synapses of a dendrite flagged active and demotes
// the others.
func (sy *Synapses) learnByFlag(s0, n uint32) {
	fl, str := sy.FlagSets.Data, sy.Strengths.Data
	for i := s0; i < s0+n; i++ {
		if fl[i]&SynFlagActive != 0 {
			str[i] = satAdd(str[i], SynLTPInc)
		} else {
			str[i] = satAdd(str[i], -SynLTDDec)
		}
	}
}

// punishActive demotes the synapses of a dendrite flagged active.
func (sy *Synapses) punishActive(s0, n uint32) {
	fl, str := sy.FlagSets.Data, sy.Strengths.Data
	for i := s0; i < s0+n; i++ {
		if fl[i]&SynFlagActive != 0 {
			str[i] = satAdd(str[i], -SynLTDDec)
		}
	}
}

// synChunk is a host copy of the attributes of one cell slice of a tuft.
type synChunk struct {
	states, slcs, flags []uint8
	strs, vofs, uofs    []int8
}

func newSynChunk(n int) *synChunk {
	return &synChunk{
		states: make([]uint8, n), slcs: make([]uint8, n), flags: make([]uint8, n),
		strs: make([]int8, n), vofs: make([]int8, n), uofs: make([]int8, n),
	}
}

func (sy *Synapses) readChunk(q *compute.Queue, off int, ch *synChunk) error {
	if err := compute.ReadBlocking(q, sy.States, off, ch.states, nil); err != nil {
		return err
	}
	if err := compute.ReadBlocking(q, sy.Strengths, off, ch.strs, nil); err != nil {
		return err
	}
	if err := compute.ReadBlocking(q, sy.SrcSlcIds, off, ch.slcs, nil); err != nil {
		return err
	}
	if err := compute.ReadBlocking(q, sy.SrcColVOffs, off, ch.vofs, nil); err != nil {
		return err
	}
	if err := compute.ReadBlocking(q, sy.SrcColUOffs, off, ch.uofs, nil); err != nil {
		return err
	}
	return compute.ReadBlocking(q, sy.FlagSets, off, ch.flags, nil)
}

func (sy *Synapses) writeChunk(q *compute.Queue, off int, ch *synChunk) error {
	if err := compute.WriteBlocking(q, sy.States, off, ch.states, nil); err != nil {
		return err
	}
	if err := compute.WriteBlocking(q, sy.Strengths, off, ch.strs, nil); err != nil {
		return err
	}
	if err := compute.WriteBlocking(q, sy.SrcSlcIds, off, ch.slcs, nil); err != nil {
		return err
	}
	if err := compute.WriteBlocking(q, sy.SrcColVOffs, off, ch.vofs, nil); err != nil {
		return err
	}
	if err := compute.WriteBlocking(q, sy.SrcColUOffs, off, ch.uofs, nil); err != nil {
		return err
	}
	return compute.WriteBlocking(q, sy.FlagSets, off, ch.flags, nil)
}

// Regrow redraws the sources of one tuft's synapses, one cell slice at a
// time. With init every synapse is drawn; otherwise only those whose
// strength fell to SynStrengthFloor. Every dendrite ends up with distinct
// sources. The queue must be idle. Returns the number of synapses regrown.
func (sy *Synapses) Regrow(q *compute.Queue, tf *Tuft, init bool, rng *rnd.XorShift) (int, error) {
	tg := &tf.Geom
	perDen := int(tg.Syns)
	nDens := int(tg.Cols() * tg.Dens)
	ch := newSynChunk(nDens * perDen)
	dc := NewDupCache(nDens)
	regrown := 0
	for slc := uint32(0); slc < tg.Depth; slc++ {
		off := int(tg.SynIdx(slc, 0, 0, 0, 0))
		if err := sy.readChunk(q, off, ch); err != nil {
			return regrown, err
		}
		changed := false
		for d := 0; d < nDens; d++ {
			s0 := d * perDen
			dc.Reset(d)
			if !init {
				for s := s0; s < s0+perDen; s++ {
					if ch.slcs[s] != SlcNone {
						dc.Add(d, SrcKey(ch.slcs[s], ch.vofs[s], ch.uofs[s]))
					}
				}
			}
			for s := s0; s < s0+perDen; s++ {
				if !init && (ch.slcs[s] != SlcNone && ch.strs[s] > SynStrengthFloor) {
					continue
				}
				old := ^uint32(0)
				if !init && ch.slcs[s] != SlcNone {
					old = SrcKey(ch.slcs[s], ch.vofs[s], ch.uofs[s])
				}
				var src SynSrc
				ok := false
				for att := 0; att < RegrowMaxAttempts; att++ {
					src = tf.Gen.GenSrc(rng)
					if dc.Insert(d, old, src.Key()) {
						ok = true
						break
					}
				}
				if !ok {
					return regrown, fmt.Errorf("%w: %s tuft %d slice %d dendrite %d", ErrRegrowExhausted, sy.Name, tf.Idx, slc, d)
				}
				ch.slcs[s], ch.vofs[s], ch.uofs[s], ch.strs[s] = src.Slc, src.VOfs, src.UOfs, src.Strength
				ch.states[s], ch.flags[s] = 0, 0
				regrown++
				changed = true
			}
		}
		if changed {
			if err := sy.writeChunk(q, off, ch); err != nil {
				return regrown, err
			}
		}
	}
	return regrown, nil
}
