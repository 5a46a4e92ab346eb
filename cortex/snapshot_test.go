// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cortex

import (
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/emer/cortex/dims"
)

func TestSnapshotRoundTrip(t *testing.T) {
	cx, sd := newTestCortex(t, testConfig(stripesMaps(), CorticalAreaSettings{Seed: 31}), 2)
	ar := testArea(t, cx, "v1")
	runTicks(t, cx, sd, stripes(16, 16), 5)
	as, err := ar.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if as.Tick != 5 || len(as.Layers) != 2 {
		t.Fatalf("snapshot tick %d layers %d", as.Tick, len(as.Layers))
	}

	for _, fn := range []string{"v1.json", "v1.json.gz"} {
		path := filepath.Join(t.TempDir(), fn)
		if err := SaveSnapshot(path, as); err != nil {
			t.Fatal(err)
		}
		rd, err := OpenSnapshot(path)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(as, rd) {
			t.Errorf("%s: snapshot changed on disk", fn)
		}
	}

	cx2, _ := newTestCortex(t, testConfig(stripesMaps(), CorticalAreaSettings{Seed: 37}), 2)
	ar2 := testArea(t, cx2, "v1")
	if err := ar2.Restore(as); err != nil {
		t.Fatal(err)
	}
	rs, err := ar2.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(as, rs) {
		t.Error("restored area does not snapshot the same")
	}
	checkDistinct(t, ar2)
}

func TestSnapshotMismatch(t *testing.T) {
	cx, _ := newTestCortex(t, testConfig(stripesMaps(), CorticalAreaSettings{}), 1)
	ar := testArea(t, cx, "v1")
	as, err := ar.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	as.Layers[0].Strengths = as.Layers[0].Strengths[:10]
	if err := ar.Restore(as); !errors.Is(err, dims.ErrDimensionMismatch) {
		t.Errorf("short snapshot: %v", err)
	}
	if _, err := ReadSnapshotJSON(strings.NewReader("{")); err == nil {
		t.Error("truncated JSON decoded")
	}
}
