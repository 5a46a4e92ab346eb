// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cortex

import (
	"context"
	"fmt"
	"strings"

	"github.com/c2h5oh/datasize"
	"github.com/emer/cortex/compute"
	"github.com/emer/cortex/layermap"
	"github.com/emer/cortex/thalamus"
	"github.com/emer/emergent/v2/etime"
	"github.com/voodooEntity/archivist"
)

// Cortex is the set of cortical areas with the thalamus connecting them.
// One Cycle ticks every area once.
type Cortex struct {
	Config *Config
	Dev    *compute.Device
	Thal   *thalamus.Thalamus
	Maps   []*layermap.AreaMap

	// cortical areas in area id order; external areas have none
	Areas []*CorticalArea

	// ticks run
	Tick uint64
}

// New builds a cortex from cf on a new device with nThreads worker
// threads.
func New(cf *Config, nThreads int) (*Cortex, error) {
	ams, err := layermap.BuildAreaMaps(cf.LayerMaps, cf.Areas)
	if err != nil {
		return nil, err
	}
	dv := compute.NewDevice("cortex", nThreads)
	th, err := thalamus.New(dv, ams)
	if err != nil {
		dv.Close()
		return nil, err
	}
	cx := &Cortex{Config: cf, Dev: dv, Thal: th, Maps: ams}
	for _, am := range ams {
		if am.External {
			continue
		}
		ar, err := NewCorticalArea(th, am, cf.AreaSettings(am.Name))
		if err != nil {
			dv.Close()
			return nil, err
		}
		cx.Areas = append(cx.Areas, ar)
	}
	archivist.Info("built cortex", fmt.Sprintf("areas %d tracts %d on %v", len(cx.Areas), len(th.Tracts()), dv.Info))
	return cx, nil
}

// Area returns the named cortical area.
func (cx *Cortex) Area(name string) (*CorticalArea, error) {
	for _, ar := range cx.Areas {
		if ar.Name == name {
			return ar, nil
		}
	}
	return nil, fmt.Errorf("%w: no cortical area %q", layermap.ErrLayerResolution, name)
}

// AddNucleus registers a subcortical nucleus with the thalamus.
func (cx *Cortex) AddNucleus(nuc thalamus.SubcorticalNucleus) error {
	return cx.Thal.AddNucleus(nuc)
}

// SetMode sets the mode of every area: learning happens in etime.Train only.
func (cx *Cortex) SetMode(mode etime.Modes) {
	for _, ar := range cx.Areas {
		ar.Time.Mode = mode
	}
}

// Cycle runs one tick: nuclei pre cycle, every area in id order, nuclei
// post cycle, then delivery of every sampler's frame.
func (cx *Cortex) Cycle(ctx context.Context) error {
	if err := cx.Thal.PreCycle(ctx); err != nil {
		return err
	}
	for _, ar := range cx.Areas {
		if err := ar.Cycle(ctx); err != nil {
			return fmt.Errorf("area %s: %w", ar.Name, err)
		}
	}
	if err := cx.Thal.PostCycle(ctx); err != nil {
		return err
	}
	cx.Tick++
	return cx.deliverSamples(ctx)
}

// deliverSamples hands each registered sampler its frame for this tick.
func (cx *Cortex) deliverSamples(ctx context.Context) error {
	for _, ar := range cx.Areas {
		sms := cx.Thal.SamplersFor(ar.Id)
		if len(sms) == 0 {
			continue
		}
		if err := ar.Graph.Finish(); err != nil {
			return fmt.Errorf("area %s: %w", ar.Name, err)
		}
		for _, sm := range sms {
			if err := sm.Deliver(ctx, ar.Sample(sm.Kind)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Finish waits for every queued command.
func (cx *Cortex) Finish() error {
	for _, ar := range cx.Areas {
		if err := ar.Graph.Finish(); err != nil {
			return err
		}
	}
	return cx.Thal.Finish()
}

// Close drains the queues and stops the device.
func (cx *Cortex) Close() error {
	err := cx.Finish()
	cx.Dev.Close()
	return err
}

// SizeReport returns a string reporting the size of each area and of the
// cortex overall.
func (cx *Cortex) SizeReport() string {
	var b strings.Builder
	tot, syns := 0, 0
	for _, ar := range cx.Areas {
		mem := ar.Bytes()
		tot += mem
		fmt.Fprintf(&b, "%14s:\t Slices: %d\t Axons: %d\t Mem: %v\n", ar.Name, ar.Map.NSlices, ar.Axons.Axons.Len(), (datasize.ByteSize)(mem).HumanReadable())
		for _, dl := range ar.DataLayers() {
			ns := dl.Tufts().Dens.Syns.Len()
			syns += ns
			fmt.Fprintf(&b, "\t%14s:\t Cells: %d\t Syns: %d\n", dl.Name(), dl.Dims().Cells(), ns)
		}
	}
	for _, tr := range cx.Thal.Tracts() {
		tot += tr.Buf.Len()
	}
	fmt.Fprintf(&b, "\n\n%14s:\t Tracts: %d\t Syns: %d\t Mem: %v\n", "cortex", len(cx.Thal.Tracts()), syns, (datasize.ByteSize)(tot).HumanReadable())
	return b.String()
}

// TimerReport reports the time spent in each kernel and area.
func (cx *Cortex) TimerReport() {
	cx.Dev.TimerReport()
}
