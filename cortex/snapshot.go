// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cortex

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/emer/cortex/compute"
	"github.com/emer/cortex/dims"
	"github.com/goki/ki/indent"
)

// LayerSnapshot is the learned state of one data layer: every synapse
// attribute that learning or regrowth changes.
type LayerSnapshot struct {
	Layer       string  `json:"layer"`
	Strengths   []int8  `json:"strengths"`
	SrcSlcIds   []uint8 `json:"src_slc_ids"`
	SrcColVOffs []int8  `json:"src_col_v_offs"`
	SrcColUOffs []int8  `json:"src_col_u_offs"`
}

// AreaSnapshot is the learned state of an area, with the random state
// needed to continue deterministically.
type AreaSnapshot struct {
	Area      string          `json:"area"`
	Tick      uint64          `json:"tick"`
	Rng       uint32          `json:"rng"`
	RegrowRng uint32          `json:"regrow_rng"`
	Layers    []LayerSnapshot `json:"layers"`
}

// Snapshot copies the area's synapses. The area's queue is drained first.
func (ar *CorticalArea) Snapshot() (*AreaSnapshot, error) {
	if err := ar.Graph.Finish(); err != nil {
		return nil, err
	}
	q := ar.Graph.Queue
	as := &AreaSnapshot{Area: ar.Name, Tick: ar.Time.Tick, Rng: ar.rng.State, RegrowRng: ar.regrowRng.State}
	for _, dl := range ar.DataLayers() {
		sy := dl.Tufts().Dens.Syns
		n := sy.Len()
		ls := LayerSnapshot{Layer: dl.Name(),
			Strengths: make([]int8, n), SrcSlcIds: make([]uint8, n),
			SrcColVOffs: make([]int8, n), SrcColUOffs: make([]int8, n),
		}
		if err := compute.ReadBlocking(q, sy.Strengths, 0, ls.Strengths, nil); err != nil {
			return nil, err
		}
		if err := compute.ReadBlocking(q, sy.SrcSlcIds, 0, ls.SrcSlcIds, nil); err != nil {
			return nil, err
		}
		if err := compute.ReadBlocking(q, sy.SrcColVOffs, 0, ls.SrcColVOffs, nil); err != nil {
			return nil, err
		}
		if err := compute.ReadBlocking(q, sy.SrcColUOffs, 0, ls.SrcColUOffs, nil); err != nil {
			return nil, err
		}
		as.Layers = append(as.Layers, ls)
	}
	return as, nil
}

// Restore loads a snapshot taken from an area of the same layout. Synapse
// states and flags are cleared.
func (ar *CorticalArea) Restore(as *AreaSnapshot) error {
	if err := ar.Graph.Finish(); err != nil {
		return err
	}
	q := ar.Graph.Queue
	for i := range as.Layers {
		ls := &as.Layers[i]
		dl, err := ar.DataLayer(ls.Layer)
		if err != nil {
			return err
		}
		sy := dl.Tufts().Dens.Syns
		n := sy.Len()
		if len(ls.Strengths) != n || len(ls.SrcSlcIds) != n || len(ls.SrcColVOffs) != n || len(ls.SrcColUOffs) != n {
			return fmt.Errorf("%w: snapshot of %s.%s does not hold %d synapses", dims.ErrDimensionMismatch, as.Area, ls.Layer, n)
		}
		if err := compute.WriteBlocking(q, sy.Strengths, 0, ls.Strengths, nil); err != nil {
			return err
		}
		if err := compute.WriteBlocking(q, sy.SrcSlcIds, 0, ls.SrcSlcIds, nil); err != nil {
			return err
		}
		if err := compute.WriteBlocking(q, sy.SrcColVOffs, 0, ls.SrcColVOffs, nil); err != nil {
			return err
		}
		if err := compute.WriteBlocking(q, sy.SrcColUOffs, 0, ls.SrcColUOffs, nil); err != nil {
			return err
		}
		zero := make([]uint8, n)
		if err := compute.WriteBlocking(q, sy.States, 0, zero, nil); err != nil {
			return err
		}
		if err := compute.WriteBlocking(q, sy.FlagSets, 0, zero, nil); err != nil {
			return err
		}
	}
	ar.Time.Tick = as.Tick
	ar.rng.Seed(as.Rng)
	ar.regrowRng.Seed(as.RegrowRng)
	return nil
}

// WriteJSON writes the snapshot as JSON, one layer array per line.
func (as *AreaSnapshot) WriteJSON(w io.Writer) error {
	depth := 0
	w.Write(indent.TabBytes(depth))
	w.Write([]byte("{\n"))
	depth++
	w.Write(indent.TabBytes(depth))
	w.Write([]byte(fmt.Sprintf("\"area\": %q,\n", as.Area)))
	w.Write(indent.TabBytes(depth))
	w.Write([]byte(fmt.Sprintf("\"tick\": %d,\n", as.Tick)))
	w.Write(indent.TabBytes(depth))
	w.Write([]byte(fmt.Sprintf("\"rng\": %d,\n", as.Rng)))
	w.Write(indent.TabBytes(depth))
	w.Write([]byte(fmt.Sprintf("\"regrow_rng\": %d,\n", as.RegrowRng)))
	w.Write(indent.TabBytes(depth))
	if len(as.Layers) == 0 {
		w.Write([]byte("\"layers\": null\n"))
	} else {
		w.Write([]byte("\"layers\": [\n"))
		depth++
		for li := range as.Layers {
			b, err := json.Marshal(&as.Layers[li])
			if err != nil {
				return err
			}
			w.Write(indent.TabBytes(depth))
			w.Write(b)
			if li == len(as.Layers)-1 {
				w.Write([]byte("\n"))
			} else {
				w.Write([]byte(",\n"))
			}
		}
		depth--
		w.Write(indent.TabBytes(depth))
		w.Write([]byte("]\n"))
	}
	depth--
	w.Write(indent.TabBytes(depth))
	_, err := w.Write([]byte("}\n"))
	return err
}

// ReadSnapshotJSON decodes a snapshot written by WriteJSON.
func ReadSnapshotJSON(r io.Reader) (*AreaSnapshot, error) {
	as := &AreaSnapshot{}
	if err := json.NewDecoder(r).Decode(as); err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	return as, nil
}

// SaveSnapshot writes the snapshot to a JSON file. If filename has .gz
// extension, then file is gzip compressed.
func SaveSnapshot(filename string, as *AreaSnapshot) error {
	fp, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer fp.Close()
	if filepath.Ext(filename) == ".gz" {
		gzr := gzip.NewWriter(fp)
		if err := as.WriteJSON(gzr); err != nil {
			gzr.Close()
			return err
		}
		return gzr.Close()
	}
	return as.WriteJSON(fp)
}

// OpenSnapshot reads a snapshot from a JSON file. If filename has .gz
// extension, then file is gzip uncompressed.
func OpenSnapshot(filename string) (*AreaSnapshot, error) {
	fp, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	if filepath.Ext(filename) == ".gz" {
		gzr, err := gzip.NewReader(fp)
		if err != nil {
			return nil, err
		}
		defer gzr.Close()
		return ReadSnapshotJSON(gzr)
	}
	return ReadSnapshotJSON(fp)
}
