// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cortex

import (
	"fmt"
	"strings"

	"github.com/emer/cortex/compute"
	"github.com/emer/cortex/dims"
	"github.com/emer/cortex/layermap"
	"github.com/goki/mat32"
)

// Filter kinds accepted in FilterScheme.Kind.
const (
	// FilterThreshold sets values at or above Param (a fraction of 255) to
	// 255 and the rest to 0.
	FilterThreshold = "threshold"

	// FilterInvert replaces each value with 255 minus it.
	FilterInvert = "invert"

	// FilterHexBlur averages each value over the hex neighborhood of
	// radius Param (default 1).
	FilterHexBlur = "hexblur"
)

// filterChain runs the filters of one input source between two scratch
// buffers; the last filter writes into the area's axons.
type filterChain struct {
	name string
	sd   dims.SliceDims
	nslc uint32
	a, b *compute.Buffer[uint8]

	// axon range of the source
	axz uint32

	steps []*Step
}

// localFor returns the largest local size in {8, 4, 2, 1} dividing n.
func localFor(n uint32) uint32 {
	for _, l := range []uint32{8, 4, 2} {
		if n%l == 0 {
			return l
		}
	}
	return 1
}

// newFilterChainBufs allocates the scratch buffers of a filter chain on
// one source of an input layer.
func newFilterChainBufs(ag *AreaGraph, ax *AxonSpace, src *layermap.SourceLayerInfo) (*filterChain, error) {
	axz, n, err := ax.Range(src.SlcRange)
	if err != nil {
		return nil, err
	}
	fc := &filterChain{name: fmt.Sprintf("%s.%s", src.AreaName, src.LayerName),
		sd: ax.Slices.Dims[src.SlcRange.Z], nslc: src.SlcRange.Len(), axz: axz,
		a: compute.NewBuffer[uint8](ag.Dev, ag.Name+":filter_a:"+src.AreaName, int(n)),
		b: compute.NewBuffer[uint8](ag.Dev, ag.Name+":filter_b:"+src.AreaName, int(n)),
	}
	return fc, nil
}

// build adds one kernel per filter, alternating between the scratch
// buffers; the last one writes the axons.
func (fc *filterChain) build(ag *AreaGraph, ax *AxonSpace, fss []layermap.FilterScheme) error {
	sd := fc.sd
	n := fc.a.Len()
	in, out := fc.a, fc.b
	for i := range fss {
		fs := &fss[i]
		fn, err := fc.filterFunc(fs)
		if err != nil {
			return err
		}
		dst, dz := out.Data, uint32(0)
		tgt := out.All()
		if i == len(fss)-1 {
			dst, dz = ax.Axons.Data, fc.axz
			tgt = ax.Axons.Block(int(fc.axz), n)
		}
		sdata := in.Data
		kn, err := compute.NewKernel(fmt.Sprintf("%s:filter%d:%s:%s", ag.Name, i, fs.Kind, fc.name),
			[2]uint32{sd.VSize, sd.USize}, [2]uint32{localFor(sd.VSize), localFor(sd.USize)}, 0,
			func(v, u uint32, args []uint32) {
				cols := sd.VSize * sd.USize
				for s := uint32(0); s < fc.nslc; s++ {
					z := s * cols
					dst[dz+z+v*sd.USize+u] = fn(sdata[z:z+cols], v, u)
				}
			})
		if err != nil {
			return err
		}
		st, err := ag.AddKernel(kn, []compute.MemBlock{in.All()}, []compute.MemBlock{tgt})
		if err != nil {
			return err
		}
		fc.steps = append(fc.steps, st)
		in, out = out, in
	}
	return nil
}

// filterFunc returns the per value function of a filter, given one slice
// of input.
func (fc *filterChain) filterFunc(fs *layermap.FilterScheme) (func(in []uint8, v, u uint32) uint8, error) {
	sd := fc.sd
	switch strings.ToLower(fs.Kind) {
	case FilterThreshold:
		th := mat32.Round(mat32.Max(fs.Param, 0) * 255)
		if th > 255 {
			th = 255
		}
		thr := uint8(th)
		return func(in []uint8, v, u uint32) uint8 {
			if in[v*sd.USize+u] >= thr {
				return 255
			}
			return 0
		}, nil
	case FilterInvert:
		return func(in []uint8, v, u uint32) uint8 {
			return 255 - in[v*sd.USize+u]
		}, nil
	case FilterHexBlur:
		rad := int(mat32.Round(fs.Param))
		if rad <= 0 {
			rad = 1
		}
		offs := dims.HexOffsets(rad)
		return func(in []uint8, v, u uint32) uint8 {
			sum, n := 0, 0
			for _, o := range offs {
				nv, nu := int(v)+int(o.V), int(u)+int(o.U)
				if nv < 0 || nu < 0 || nv >= int(sd.VSize) || nu >= int(sd.USize) {
					continue
				}
				sum += int(in[nv*int(sd.USize)+nu])
				n++
			}
			return uint8(sum / n)
		}, nil
	}
	return nil, fmt.Errorf("%w: unknown filter kind %q on %s", layermap.ErrLayerResolution, fs.Kind, fc.name)
}

// run enqueues every filter of the chain.
func (fc *filterChain) run(ag *AreaGraph) error {
	for _, st := range fc.steps {
		if err := ag.Run(st); err != nil {
			return err
		}
	}
	return nil
}
