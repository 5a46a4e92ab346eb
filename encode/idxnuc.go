// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package encode

import (
	"context"
	"fmt"

	"github.com/emer/cortex/thalamus"
)

// IdxNucleus sends the items of an IDX file in order, each for Hold ticks,
// wrapping at the end. Two dimensional items are resampled to the tract's
// columns by nearest neighbor.
type IdxNucleus struct {
	encoder
	Idx *IdxFile

	// ticks each item is held
	Hold int `def:"1" min:"1"`

	// current item
	Cur int

	held int
	rows int
	cols int
}

// NewIdxNucleus returns an encoder stepping through ix on pathway pw.
func NewIdxNucleus(name string, pw Pathway, ix *IdxFile) *IdxNucleus {
	return &IdxNucleus{encoder: encoder{name: name, path: pw}, Idx: ix, Hold: 1}
}

func (in *IdxNucleus) CreatePathways(th *thalamus.Thalamus) error {
	if in.Hold < 1 {
		in.Hold = 1
	}
	id := in.Idx.ItemDims()
	switch len(id) {
	case 1:
		in.rows, in.cols = 1, id[0]
	case 2:
		in.rows, in.cols = id[0], id[1]
	default:
		return fmt.Errorf("%w: %s items have %d dimensions, want 1 or 2", ErrIdxFormat, in.name, len(id))
	}
	if in.Idx.NItems() == 0 || in.rows == 0 || in.cols == 0 {
		return fmt.Errorf("%w: %s has no data", ErrIdxFormat, in.name)
	}
	if err := in.open(th); err != nil {
		return err
	}
	if len(id) == 1 && in.cols != int(in.cd.Columns()) {
		return fmt.Errorf("%w: %s items of %d values for %d columns", thalamus.ErrTractMismatch, in.name, in.cols, in.cd.Columns())
	}
	return nil
}

// Fill writes item Cur into the first slice.
func (in *IdxNucleus) Fill() error {
	it, err := in.Idx.Item(in.Cur)
	if err != nil {
		return err
	}
	vs, us := int(in.cd.VSize), int(in.cd.USize)
	if in.rows == 1 {
		copy(in.frame[:vs*us], it)
		return nil
	}
	for v := 0; v < vs; v++ {
		r := v * in.rows / vs
		for u := 0; u < us; u++ {
			in.frame[v*us+u] = it[r*in.cols+u*in.cols/us]
		}
	}
	return nil
}

func (in *IdxNucleus) PreCycle(ctx context.Context, th *thalamus.Thalamus) error {
	if err := in.Fill(); err != nil {
		return err
	}
	if err := in.send(ctx); err != nil {
		return err
	}
	in.held++
	if in.held >= in.Hold {
		in.held = 0
		in.Cur = (in.Cur + 1) % in.Idx.NItems()
	}
	return nil
}
