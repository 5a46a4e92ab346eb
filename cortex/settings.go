// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cortex

import (
	"fmt"
	"os"

	"github.com/emer/cortex/layermap"
	"gopkg.in/yaml.v3"
)

// CorticalAreaSettings are the runtime switches of an area's pipeline.
type CorticalAreaSettings struct {

	// copy soma to axons instead of running inhibition
	BypassInhib bool `yaml:"bypass_inhib"`

	// skip sensory filter chains on input layers
	BypassFilters bool `yaml:"bypass_filters"`

	// skip the pyramidal layer
	DisablePyrs bool `yaml:"disable_pyrs"`

	// skip the spiny stellate layer
	DisableSsts bool `yaml:"disable_ssts"`

	// skip minicolumn activation and output
	DisableMcols bool `yaml:"disable_mcols"`

	// skip periodic synapse regrowth
	DisableRegrowth bool `yaml:"disable_regrowth"`

	// skip learning
	DisableLearning bool `yaml:"disable_learning"`

	// ticks between regrowths
	RegrowInterval int `yaml:"regrow_interval" def:"400"`

	// seed of the area's random generators; 0 derives one from the area id
	Seed uint32 `yaml:"seed"`
}

// Defaults sets default values
func (cs *CorticalAreaSettings) Defaults() {
	cs.RegrowInterval = SynapseRegrowthInterval
}

// Update fills in zero values that must not be zero
func (cs *CorticalAreaSettings) Update() {
	if cs.RegrowInterval <= 0 {
		cs.RegrowInterval = SynapseRegrowthInterval
	}
}

// Config is the complete description of a cortex, as loaded from YAML.
type Config struct {
	LayerMaps layermap.LayerMapSchemeList `yaml:"layer_maps"`
	Areas     layermap.AreaSchemeList     `yaml:"areas"`

	// per-area settings by area name; missing areas use defaults
	Settings map[string]CorticalAreaSettings `yaml:"settings"`
}

// AreaSettings returns the settings of the named area with defaults applied.
func (cf *Config) AreaSettings(name string) CorticalAreaSettings {
	cs, ok := cf.Settings[name]
	if !ok {
		cs.Defaults()
	}
	cs.Update()
	return cs
}

// ParseConfig decodes a YAML config. Missing layer maps default to
// layermap.DefaultLayerMaps.
func ParseConfig(b []byte) (*Config, error) {
	cf := &Config{}
	if err := yaml.Unmarshal(b, cf); err != nil {
		return nil, fmt.Errorf("parsing cortex config: %w", err)
	}
	if len(cf.LayerMaps) == 0 {
		cf.LayerMaps = layermap.DefaultLayerMaps()
	}
	return cf, nil
}

// LoadConfig reads a YAML config file.
func LoadConfig(filename string) (*Config, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseConfig(b)
}
