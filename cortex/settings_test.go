// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cortex

import (
	"os"
	"path/filepath"
	"testing"
)

const testYAML = `
areas:
  - name: x
    v_size: 8
    u_size: 8
    layer_map: thalamic
    eff: [a]
    external: true
  - name: a
    v_size: 8
    u_size: 8
    layer_map: cortical
    filters:
      - layer: aff_in
        kind: threshold
        param: 0.5
settings:
  a:
    bypass_inhib: true
    seed: 4
`

func TestParseConfig(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "cortex.yaml")
	if err := os.WriteFile(fn, []byte(testYAML), 0644); err != nil {
		t.Fatal(err)
	}
	cf, err := LoadConfig(fn)
	if err != nil {
		t.Fatal(err)
	}
	if len(cf.LayerMaps) != 2 {
		t.Errorf("%d layer maps, want the 2 defaults", len(cf.LayerMaps))
	}
	if len(cf.Areas) != 2 || !cf.Areas[0].External || cf.Areas[0].Eff[0] != "a" {
		t.Fatalf("areas %+v", cf.Areas)
	}
	if fs := cf.Areas[1].Filters; len(fs) != 1 || fs[0].Kind != FilterThreshold || fs[0].Param != 0.5 {
		t.Errorf("filters %+v", fs)
	}
	cs := cf.AreaSettings("a")
	if !cs.BypassInhib || cs.Seed != 4 || cs.RegrowInterval != SynapseRegrowthInterval {
		t.Errorf("settings %+v", cs)
	}
	if cs := cf.AreaSettings("b"); cs.RegrowInterval != SynapseRegrowthInterval || cs.BypassInhib {
		t.Errorf("default settings %+v", cs)
	}

	cx, err := New(cf, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer cx.Close()
	if len(cx.Areas) != 1 || cx.Areas[0].Name != "a" || !cx.Areas[0].Settings.BypassInhib {
		t.Errorf("built areas %d", len(cx.Areas))
	}

	if _, err := ParseConfig([]byte("areas: [")); err == nil {
		t.Error("bad yaml accepted")
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Error("missing file accepted")
	}
}
