// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package encode

import (
	"context"

	"github.com/emer/cortex/rnd"
	"github.com/emer/cortex/thalamus"
	"github.com/goki/mat32"
)

// BlobParams are the parameters of a moving gaussian blob
type BlobParams struct {

	// standard deviation of the blob, in columns
	Sigma float32 `def:"2" min:"0.1"`

	// maximum speed, in columns per tick
	Speed float32 `def:"0.5"`

	// values below this are written as zero
	Floor uint8 `def:"8"`

	// seed of the start position and velocity
	Seed uint32
}

// Defaults sets default values
func (bp *BlobParams) Defaults() {
	bp.Sigma = 2
	bp.Speed = 0.5
	bp.Floor = 8
}

// Update fills in zero values that must not be zero
func (bp *BlobParams) Update() {
	if bp.Sigma < 0.1 {
		bp.Sigma = 0.1
	}
	if bp.Seed == 0 {
		bp.Seed = rnd.DefaultSeed
	}
}

// GaussBlob writes a gaussian bump that drifts across the area and bounces
// off its edges.
type GaussBlob struct {
	encoder
	Params BlobParams

	// current center and velocity, in columns
	Pos mat32.Vec2
	Vel mat32.Vec2
}

// NewGaussBlob returns a blob encoder on pathway pw.
func NewGaussBlob(name string, pw Pathway) *GaussBlob {
	gb := &GaussBlob{encoder: encoder{name: name, path: pw}}
	gb.Params.Defaults()
	return gb
}

func (gb *GaussBlob) CreatePathways(th *thalamus.Thalamus) error {
	gb.Params.Update()
	if err := gb.open(th); err != nil {
		return err
	}
	rng := rnd.NewXorShift(gb.Params.Seed)
	unit := func() float32 { return float32(rng.Next()>>8) / float32(1<<24) }
	gb.Pos = mat32.Vec2{X: unit() * float32(gb.cd.USize-1), Y: unit() * float32(gb.cd.VSize-1)}
	sp := gb.Params.Speed
	gb.Vel = mat32.Vec2{X: (2*unit() - 1) * sp, Y: (2*unit() - 1) * sp}
	return nil
}

// Fill writes the blob at its current position into the first slice.
func (gb *GaussBlob) Fill() {
	vs, us := int(gb.cd.VSize), int(gb.cd.USize)
	s2 := 2 * gb.Params.Sigma * gb.Params.Sigma
	for v := 0; v < vs; v++ {
		dy := float32(v) - gb.Pos.Y
		for u := 0; u < us; u++ {
			dx := float32(u) - gb.Pos.X
			val := mat32.Round(255 * mat32.Exp(-(dx*dx+dy*dy)/s2))
			if val < float32(gb.Params.Floor) {
				val = 0
			}
			gb.frame[v*us+u] = uint8(val)
		}
	}
}

// Step moves the blob one tick, reflecting it at the edges.
func (gb *GaussBlob) Step() {
	gb.Pos.X, gb.Vel.X = bounce(gb.Pos.X+gb.Vel.X, gb.Vel.X, float32(gb.cd.USize-1))
	gb.Pos.Y, gb.Vel.Y = bounce(gb.Pos.Y+gb.Vel.Y, gb.Vel.Y, float32(gb.cd.VSize-1))
}

func bounce(x, vel, hi float32) (float32, float32) {
	switch {
	case x < 0:
		return -x, -vel
	case x > hi:
		return 2*hi - x, -vel
	}
	return x, vel
}

func (gb *GaussBlob) PreCycle(ctx context.Context, th *thalamus.Thalamus) error {
	gb.Fill()
	if err := gb.send(ctx); err != nil {
		return err
	}
	gb.Step()
	return nil
}
