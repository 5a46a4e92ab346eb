// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/emer/cortex/cortex"
	"github.com/emer/cortex/layermap"
	"github.com/voodooEntity/archivist"
)

func TestMain(m *testing.M) {
	archivist.Init("error", "stdout", "")
	os.Exit(m.Run())
}

func testStore(t *testing.T) *SnapshotStore {
	t.Helper()
	ss := NewSnapshotStore(filepath.Join(t.TempDir(), "snapshots.db"))
	if err := ss.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ss.Close() })
	return ss
}

func testCortex(t *testing.T, seed uint32) *cortex.Cortex {
	t.Helper()
	cf := &cortex.Config{
		LayerMaps: layermap.DefaultLayerMaps(),
		Areas: layermap.AreaSchemeList{
			{Name: "v0", VSize: 8, USize: 8, LayerMap: layermap.ThalamicMapName, Eff: []string{"v1"}, External: true},
			{Name: "v1", VSize: 8, USize: 8, LayerMap: layermap.CorticalMapName},
		},
		Settings: map[string]cortex.CorticalAreaSettings{"v1": {Seed: seed}},
	}
	cx, err := cortex.New(cf, 2)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { cx.Close() })
	return cx
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	ss := testStore(t)
	ar := testCortex(t, 3).Areas[0]
	as, err := ar.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	id, err := ss.Save(ctx, as)
	if err != nil {
		t.Fatal(err)
	}
	ld, ok, err := ss.Load(ctx, id)
	if err != nil || !ok {
		t.Fatalf("load %s: %v %v", id, ok, err)
	}
	if !reflect.DeepEqual(as, ld) {
		t.Error("loaded snapshot differs")
	}
	if _, ok, err := ss.Load(ctx, "missing"); ok || err != nil {
		t.Errorf("missing id: %v %v", ok, err)
	}

	as.Tick = 7
	if err := ss.SaveAs(ctx, id, as); err != nil {
		t.Fatal(err)
	}
	infos, err := ss.List(ctx, "v1")
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 1 || infos[0].Id != id || infos[0].Tick != 7 || infos[0].Bytes == 0 {
		t.Errorf("list after upsert: %+v", infos)
	}
	if err := ss.Delete(ctx, id); err != nil {
		t.Fatal(err)
	}
	if infos, _ := ss.List(ctx, ""); len(infos) != 0 {
		t.Errorf("list after delete: %+v", infos)
	}
}

func TestLatestRestore(t *testing.T) {
	ctx := context.Background()
	ss := testStore(t)
	cx := testCortex(t, 5)
	ar := cx.Areas[0]
	as, err := ar.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	for _, tick := range []uint64{10, 30, 20} {
		as.Tick = tick
		if _, err := ss.Save(ctx, as); err != nil {
			t.Fatal(err)
		}
	}
	lt, ok, err := ss.Latest(ctx, "v1")
	if err != nil || !ok || lt.Tick != 30 {
		t.Fatalf("latest: %v %v %+v", ok, err, lt)
	}
	if _, ok, _ := ss.Latest(ctx, "v9"); ok {
		t.Error("latest of unknown area")
	}

	cx2 := testCortex(t, 9)
	missing, err := ss.RestoreCortex(ctx, cx2)
	if err != nil || len(missing) != 0 {
		t.Fatalf("restore: %v missing %v", err, missing)
	}
	rs, err := cx2.Areas[0].Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(lt, rs) {
		t.Error("restored cortex does not match the latest snapshot")
	}

	ids, err := ss.SaveCortex(ctx, cx2)
	if err != nil || ids["v1"] == "" {
		t.Errorf("save cortex: %v %v", ids, err)
	}
}

func TestNotInitialized(t *testing.T) {
	ss := NewSnapshotStore(filepath.Join(t.TempDir(), "x.db"))
	if _, err := ss.List(context.Background(), ""); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("list before init: %v", err)
	}
	if err := NewSnapshotStore("").Init(context.Background()); err == nil {
		t.Error("empty path accepted")
	}
}
