// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package rnd provides the small deterministic xor-shift generator that drives
every stochastic choice in a cortical area: synapse source selection during
regrowth, tie-break jitter passed to dendrite kernels, and inhibition hashes.

The state is a single exported uint32 so it can be saved with a snapshot and
restored to reproduce a run exactly.
*/
package rnd

// XorShift is a 32-bit Marsaglia xor-shift generator.
// The zero state is invalid and is replaced by DefaultSeed.
type XorShift struct {

	// current generator state, never zero
	State uint32 `json:"state"`
}

// DefaultSeed is used when a zero seed is given.
const DefaultSeed uint32 = 0x9E3779B9

// NewXorShift returns a generator seeded with seed.
func NewXorShift(seed uint32) *XorShift {
	xs := &XorShift{}
	xs.Seed(seed)
	return xs
}

// Seed resets the state.
func (xs *XorShift) Seed(seed uint32) {
	if seed == 0 {
		seed = DefaultSeed
	}
	xs.State = seed
}

// Next advances the generator and returns the new state.
func (xs *XorShift) Next() uint32 {
	x := xs.State
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	xs.State = x
	return x
}

// Intn returns a value in [0, n). n must be > 0.
func (xs *XorShift) Intn(n int) int {
	return int(uint64(xs.Next()) * uint64(n) >> 32)
}

// Range returns a value in [lo, hi). hi must be > lo.
func (xs *XorShift) Range(lo, hi int) int {
	return lo + xs.Intn(hi-lo)
}

// Hash mixes an index with a seed, without advancing any state.
// Used by kernels that need per-cell jitter from a single scalar.
func Hash(seed, idx uint32) uint32 {
	x := seed ^ (idx * 0x85EBCA6B)
	if x == 0 {
		x = DefaultSeed
	}
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	x ^= x >> 16
	return x
}
