// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package encode

import (
	"context"

	"github.com/emer/cortex/thalamus"
)

// StripesParams are the parameters of a stripe pattern
type StripesParams struct {

	// width of each stripe, in columns
	Width int `def:"8" min:"1"`

	// stripes run along v instead of u
	Vertical bool

	// columns the pattern moves each tick
	Speed int `def:"0"`

	// value of the on stripes
	On uint8 `def:"255"`
}

// Defaults sets default values
func (sp *StripesParams) Defaults() {
	sp.Width = 8
	sp.Speed = 0
	sp.On = 255
}

// Update fills in zero values that must not be zero
func (sp *StripesParams) Update() {
	if sp.Width <= 0 {
		sp.Width = 8
	}
	if sp.On == 0 {
		sp.On = 255
	}
}

// Stripes writes alternating bands of On and zero: band k of Width columns
// is on when k is even.
type Stripes struct {
	encoder
	Params StripesParams
	phase  int
}

// NewStripes returns a stripe encoder on pathway pw.
func NewStripes(name string, pw Pathway) *Stripes {
	st := &Stripes{encoder: encoder{name: name, path: pw}}
	st.Params.Defaults()
	return st
}

func (st *Stripes) CreatePathways(th *thalamus.Thalamus) error {
	st.Params.Update()
	return st.open(th)
}

// Fill writes the pattern at the current phase into the first slice.
func (st *Stripes) Fill() {
	sp := &st.Params
	vs, us := int(st.cd.VSize), int(st.cd.USize)
	for v := 0; v < vs; v++ {
		for u := 0; u < us; u++ {
			x := u
			if sp.Vertical {
				x = v
			}
			val := uint8(0)
			if ((x+st.phase)/sp.Width)%2 == 0 {
				val = sp.On
			}
			st.frame[v*us+u] = val
		}
	}
}

func (st *Stripes) PreCycle(ctx context.Context, th *thalamus.Thalamus) error {
	st.Fill()
	if err := st.send(ctx); err != nil {
		return err
	}
	if st.Params.Speed != 0 {
		period := 2 * st.Params.Width
		st.phase = ((st.phase+st.Params.Speed)%period + period) % period
	}
	return nil
}
