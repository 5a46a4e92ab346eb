// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package flywheel

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/emer/cortex/cortex"
	"github.com/emer/cortex/encode"
	"github.com/emer/cortex/layermap"
	"github.com/emer/cortex/store"
	"github.com/emer/cortex/thalamus"
	"github.com/voodooEntity/archivist"
)

func TestMain(m *testing.M) {
	archivist.Init("error", "stdout", "")
	os.Exit(m.Run())
}

// newTestFlywheel is stripes on a 16x16 external area v0 feeding v1.
func newTestFlywheel(t *testing.T) *Flywheel {
	t.Helper()
	cf := &cortex.Config{
		LayerMaps: layermap.DefaultLayerMaps(),
		Areas: layermap.AreaSchemeList{
			{Name: "v0", VSize: 16, USize: 16, LayerMap: layermap.ThalamicMapName, Eff: []string{"v1"}, External: true},
			{Name: "v1", VSize: 16, USize: 16, LayerMap: layermap.CorticalMapName},
		},
		Settings: map[string]cortex.CorticalAreaSettings{"v1": {Seed: 9}},
	}
	cx, err := cortex.New(cf, 2)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { cx.Close() })
	if err := cx.AddNucleus(encode.NewStripes("stripes", encode.Pathway{Area: "v0"})); err != nil {
		t.Fatal(err)
	}
	return New(cx)
}

// start runs fw and returns the channel its result arrives on.
func start(ctx context.Context, fw *Flywheel) <-chan error {
	errc := make(chan error, 1)
	go func() { errc <- fw.Run(ctx) }()
	return errc
}

func send(t *testing.T, fw *Flywheel, cmd Command) {
	t.Helper()
	if err := fw.Send(context.Background(), cmd); err != nil {
		t.Fatal(err)
	}
}

// next returns the next response, failing after a timeout.
func next(t *testing.T, rc <-chan Response) (Response, bool) {
	t.Helper()
	select {
	case rs, ok := <-rc:
		return rs, ok
	case <-time.After(30 * time.Second):
		t.Fatal("no response")
	}
	return Response{}, false
}

// until reads responses up to and including the first for which fn is true.
func until(t *testing.T, rc <-chan Response, fn func(rs Response) bool) []Response {
	t.Helper()
	var rss []Response
	for {
		rs, ok := next(t, rc)
		if !ok {
			t.Fatal("responses closed early")
		}
		rss = append(rss, rs)
		if fn(rs) {
			return rss
		}
	}
}

func idleStatus(rs Response) bool {
	return rs.Type == Status && !rs.Status.Running()
}

func exit(t *testing.T, fw *Flywheel, rc <-chan Response, errc <-chan error) {
	t.Helper()
	send(t, fw, Command{Cmd: Exit})
	for {
		if _, ok := next(t, rc); !ok {
			break
		}
	}
	if err := <-errc; err != nil {
		t.Error(err)
	}
}

func TestIterate(t *testing.T) {
	fw := newTestFlywheel(t)
	fw.Params.InfoInterval = 5
	fw.Params.MotorArea = "v1"
	var lw bytes.Buffer
	fw.LogWriter = &lw
	rc := fw.Subscribe(0)
	errc := start(context.Background(), fw)

	send(t, fw, IterateCmd(5))
	rss := until(t, rc, idleStatus)
	iters, stats, motors, infos := 0, 0, 0, 0
	for _, rs := range rss {
		switch rs.Type {
		case CurrentIter:
			iters++
			if rs.Iter != uint32(iters) || rs.Tick != uint64(iters) {
				t.Errorf("iter %d at tick %d, want %d", rs.Iter, rs.Tick, iters)
			}
		case Status:
			stats++
			if stats < 5 && (!rs.Status.Running() || rs.Status.Remaining != uint32(5-stats)) {
				t.Errorf("status %d: %+v", stats, *rs.Status)
			}
		case Motor:
			motors++
			if rs.Err != nil || len(rs.Motor) != 256 {
				t.Errorf("motor frame of %d bytes: %v", len(rs.Motor), rs.Err)
			}
		case AreaInfo:
			infos++
			if rs.Err != nil || len(rs.Areas) != 1 || rs.Areas[0].Area != "v1" || rs.Areas[0].Tick != 5 {
				t.Fatalf("area info %+v: %v", rs.Areas, rs.Err)
			}
			if ly := rs.Areas[0].Layers; len(ly) != 2 || ly[0].Layer != layermap.IVName || ly[1].Layer != layermap.IIIName {
				t.Errorf("layers %+v", ly)
			}
		}
	}
	if iters != 5 || stats != 5 || motors != 5 || infos != 1 {
		t.Errorf("iters %d statuses %d motors %d infos %d", iters, stats, motors, infos)
	}
	if fw.Cortex.Tick != 5 {
		t.Errorf("cortex tick %d", fw.Cortex.Tick)
	}
	if fw.Log.Rows != 2 {
		t.Errorf("log rows %d, want 2", fw.Log.Rows)
	}
	if !bytes.Contains(lw.Bytes(), []byte("SomaAvg")) {
		t.Errorf("log stream has no header: %q", lw.String())
	}
	exit(t, fw, rc, errc)
}

func TestExitProtocol(t *testing.T) {
	fw := newTestFlywheel(t)
	rc := fw.Subscribe(0)
	errc := start(context.Background(), fw)

	send(t, fw, IterateCmd(1000))
	until(t, rc, func(rs Response) bool { return rs.Type == CurrentIter })
	send(t, fw, Command{Cmd: Exit})

	var rss []Response
	for {
		rs, ok := next(t, rc)
		if !ok {
			break
		}
		rss = append(rss, rs)
	}
	if err := <-errc; err != nil {
		t.Fatal(err)
	}
	n := len(rss)
	if n < 2 || rss[n-1].Type != Exiting {
		t.Fatalf("last response is not Exiting: %+v", rss)
	}
	if rs := rss[n-2]; rs.Type != Status || rs.Status.CurStartTime != nil {
		t.Errorf("status before exiting: %+v", rs)
	}
	for _, rs := range rss[:n-2] {
		if rs.Type == Status && !rs.Status.Running() {
			t.Errorf("idle status during the loop at tick %d", rs.Tick)
		}
	}
	if fw.Cortex.Tick >= 1000 {
		t.Errorf("loop ran to completion: tick %d", fw.Cortex.Tick)
	}
}

func TestStop(t *testing.T) {
	fw := newTestFlywheel(t)
	rc := fw.Subscribe(0)
	errc := start(context.Background(), fw)

	send(t, fw, IterateCmd(1000))
	until(t, rc, func(rs Response) bool { return rs.Type == CurrentIter && rs.Iter == 3 })
	send(t, fw, Command{Cmd: Stop})
	rss := until(t, rc, idleStatus)
	for _, rs := range rss {
		if rs.Type == CurrentIter {
			t.Errorf("tick %d after stop", rs.Iter)
		}
	}
	if fw.Cortex.Tick != 3 {
		t.Errorf("stopped at tick %d, want 3", fw.Cortex.Tick)
	}

	send(t, fw, IterateCmd(2))
	rss = until(t, rc, idleStatus)
	var its []uint32
	for _, rs := range rss {
		if rs.Type == CurrentIter {
			its = append(its, rs.Iter)
		}
	}
	if len(its) != 2 || its[0] != 1 || its[1] != 2 {
		t.Errorf("second loop iters %v", its)
	}
	exit(t, fw, rc, errc)
}

func TestSampleProgress(t *testing.T) {
	fw := newTestFlywheel(t)
	cx := fw.Cortex
	ar, err := cx.Area("v1")
	if err != nil {
		t.Fatal(err)
	}
	addr := layermap.LayerAddr{AreaId: ar.Id, Tags: ar.Map.Layer(layermap.IVName).Tags}
	smr, err := cx.Thal.Sampler("v1", thalamus.SamplerKind{Type: thalamus.SomaStates, Addr: &addr}, thalamus.SingleBuffer, false)
	if err != nil {
		t.Fatal(err)
	}
	defer smr.Close()
	rc := fw.Subscribe(4)
	errc := start(context.Background(), fw)

	send(t, fw, IterateCmd(3))
	var pis []*ProgressInfo
	for _, rs := range until(t, rc, idleStatus) {
		if rs.Type == SampleProgress {
			pis = append(pis, rs.Progress)
		}
	}
	if len(pis) != 3 {
		t.Fatalf("%d progress responses, want 3", len(pis))
	}
	for i, pi := range pis {
		if pi.Area != "v1" || pi.Kind != "SomaStates" || pi.Delivered != uint64(i+1) || pi.Dropped != uint64(i) {
			t.Errorf("progress %d: %+v", i, *pi)
		}
	}
	sf, err := smr.Recv(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sf.Tick != 3 || len(sf.Data) != 256 {
		t.Errorf("sample at tick %d with %d values", sf.Tick, len(sf.Data))
	}
	exit(t, fw, rc, errc)
}

func TestSaveInterval(t *testing.T) {
	ctx := context.Background()
	ss := store.NewSnapshotStore(filepath.Join(t.TempDir(), "snaps.db"))
	if err := ss.Init(ctx); err != nil {
		t.Fatal(err)
	}
	defer ss.Close()
	fw := newTestFlywheel(t)
	fw.Saver = ss
	fw.Params.SaveInterval = 2
	rc := fw.Subscribe(0)
	errc := start(ctx, fw)

	send(t, fw, IterateCmd(5))
	until(t, rc, idleStatus)
	sis, err := ss.List(ctx, "v1")
	if err != nil {
		t.Fatal(err)
	}
	if len(sis) != 2 {
		t.Fatalf("%d snapshots, want 2", len(sis))
	}
	as, ok, err := ss.Latest(ctx, "v1")
	if err != nil || !ok {
		t.Fatalf("latest: %v %v", ok, err)
	}
	if as.Tick != 4 {
		t.Errorf("latest snapshot at tick %d, want 4", as.Tick)
	}
	exit(t, fw, rc, errc)
}

func TestCancel(t *testing.T) {
	fw := newTestFlywheel(t)
	rc := fw.Subscribe(0)
	ctx, cancel := context.WithCancel(context.Background())
	errc := start(ctx, fw)
	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Errorf("run returned %v", err)
	}
	if _, ok := <-rc; ok {
		t.Error("responses not closed")
	}
}

func TestSomaStats(t *testing.T) {
	ls := SomaStats("iv", []byte{2, 4, 8, 0, 8})
	if ls.Min != 0 || ls.Soma.Max != 8 || ls.Soma.MaxIdx != 2 || ls.Soma.Avg != 4.4 || ls.NActive != 4 {
		t.Errorf("stats %+v", ls)
	}
	if ls := SomaStats("iv", nil); ls.NActive != 0 || ls.Soma.Max != 0 || ls.Min != 0 {
		t.Errorf("empty stats %+v", ls)
	}
}

func TestExitWhenIdle(t *testing.T) {
	fw := newTestFlywheel(t)
	rc := fw.Subscribe(0)
	errc := start(context.Background(), fw)

	send(t, fw, IterateCmd(3))
	var rss []Response
	if err := fw.ExitWhenIdle(context.Background(), rc, func(rs Response) { rss = append(rss, rs) }); err != nil {
		t.Fatal(err)
	}
	if err := <-errc; err != nil {
		t.Fatal(err)
	}
	idle, exiting := 0, 0
	for _, rs := range rss {
		switch {
		case rs.Type == Exiting:
			exiting++
		case idleStatus(rs):
			idle++
		}
	}
	// the loop's own idle status, then the one sent on exit
	if idle != 2 || exiting != 1 || rss[len(rss)-1].Type != Exiting {
		t.Errorf("%d idle statuses, %d exiting in %d responses", idle, exiting, len(rss))
	}
	if len(fw.cmds) != 0 {
		t.Errorf("%d commands left unread", len(fw.cmds))
	}
	if fw.Cortex.Tick != 3 {
		t.Errorf("cortex tick %d", fw.Cortex.Tick)
	}
}
