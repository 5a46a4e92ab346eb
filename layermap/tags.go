// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package layermap

import (
	"fmt"
	"strings"

	"github.com/goki/ki/bitflag"
	"github.com/goki/ki/kit"
	"gopkg.in/yaml.v3"
)

// TagBits are the bit positions of a LayerTags set.
type TagBits int32

//go:generate stringer -type=TagBits

var KiT_TagBits = kit.Enums.AddEnum(TagBitsN, kit.BitFlag, nil)

func (ev TagBits) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *TagBits) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }

const (
	// Input layers receive axons from a tract.
	Input TagBits = iota

	// Output layers send their axons out through a tract.
	Output

	// Specific pathways connect particular areas.
	Specific

	// Nonspecific pathways match by uid across all areas.
	Nonspecific

	// Primary marks a primary sensory or motor pathway.
	Primary

	// SpatialAssociative marks the spiny stellate (layer 4) population.
	SpatialAssociative

	// TemporalAssociative marks the pyramidal (layer 2/3) population.
	TemporalAssociative

	// MotorAssociative marks the deep motor pyramidal population.
	MotorAssociative

	// Feedforward pathways run from afferent to efferent areas.
	Feedforward

	// Feedback pathways run from efferent to afferent areas.
	Feedback

	// Spatial layers keep their topography across a tract.
	Spatial

	// Horizontal layers are seen whole by every cell.
	Horizontal

	TagBitsN
)

// LayerTags is a set of TagBits plus a user id. Two layers only mesh when
// their uids are equal, which lets several parallel pathways coexist between
// the same pair of areas.
type LayerTags struct {
	Bits int64  `json:"bits"`
	Uid  uint32 `json:"uid"`
}

// NewLayerTags returns tags with the given bits set.
func NewLayerTags(uid uint32, bits ...TagBits) LayerTags {
	lt := LayerTags{Uid: uid}
	for _, b := range bits {
		bitflag.Set(&lt.Bits, int(b))
	}
	return lt
}

// Predefined tag sets.
var (
	FFIn  = NewLayerTags(0, Input, Specific, Feedforward)
	FFOut = NewLayerTags(0, Output, Specific, Feedforward)
	FBIn  = NewLayerTags(0, Input, Specific, Feedback)
	FBOut = NewLayerTags(0, Output, Specific, Feedback)
	NSIn  = NewLayerTags(0, Input, Nonspecific)
	NSOut = NewLayerTags(0, Output, Nonspecific)
	PSAL  = NewLayerTags(0, SpatialAssociative)
	PTAL  = NewLayerTags(0, TemporalAssociative)
	PML   = NewLayerTags(0, MotorAssociative)
)

// Has reports whether bit b is set.
func (lt LayerTags) Has(b TagBits) bool {
	return bitflag.Has(lt.Bits, int(b))
}

// With returns a copy with bit b set.
func (lt LayerTags) With(b TagBits) LayerTags {
	bitflag.Set(&lt.Bits, int(b))
	return lt
}

// WithUid returns a copy with a different uid.
func (lt LayerTags) WithUid(uid uint32) LayerTags {
	lt.Uid = uid
	return lt
}

// Union returns the union of bits of both sets, keeping lt's uid.
func (lt LayerTags) Union(o LayerTags) LayerTags {
	lt.Bits |= o.Bits
	return lt
}

// Contains reports whether lt has every bit of o (uids ignored).
func (lt LayerTags) Contains(o LayerTags) bool {
	return lt.Bits&o.Bits == o.Bits
}

// Meshes reports whether lt contains o and both carry the same uid.
func (lt LayerTags) Meshes(o LayerTags) bool {
	return lt.Contains(o) && lt.Uid == o.Uid
}

// IsInput is true for input layers.
func (lt LayerTags) IsInput() bool { return lt.Has(Input) }

// IsOutput is true for output layers.
func (lt LayerTags) IsOutput() bool { return lt.Has(Output) }

// MirrorIO swaps the Input and Output bits.
func (lt LayerTags) MirrorIO() LayerTags {
	in, out := lt.Has(Input), lt.Has(Output)
	bitflag.Clear(&lt.Bits, int(Input), int(Output))
	if in {
		bitflag.Set(&lt.Bits, int(Output))
	}
	if out {
		bitflag.Set(&lt.Bits, int(Input))
	}
	return lt
}

// Names returns the names of all set bits.
func (lt LayerTags) Names() []string {
	var nms []string
	for b := TagBits(0); b < TagBitsN; b++ {
		if lt.Has(b) {
			nms = append(nms, b.String())
		}
	}
	return nms
}

func (lt LayerTags) String() string {
	return fmt.Sprintf("{%s uid:%d}", strings.Join(lt.Names(), "|"), lt.Uid)
}

// ParseTags returns tags from a list of bit names.
func ParseTags(uid uint32, names ...string) (LayerTags, error) {
	lt := LayerTags{Uid: uid}
	for _, nm := range names {
		var b TagBits
		if err := b.FromString(nm); err != nil {
			return lt, fmt.Errorf("%w: %v", ErrLayerResolution, err)
		}
		bitflag.Set(&lt.Bits, int(b))
	}
	return lt, nil
}

type yamlTags struct {
	Bits []string `yaml:"bits"`
	Uid  uint32   `yaml:"uid"`
}

// UnmarshalYAML accepts either a list of bit names or a mapping with
// bits and uid.
func (lt *LayerTags) UnmarshalYAML(nd *yaml.Node) error {
	var yt yamlTags
	switch nd.Kind {
	case yaml.SequenceNode:
		if err := nd.Decode(&yt.Bits); err != nil {
			return err
		}
	default:
		if err := nd.Decode(&yt); err != nil {
			return err
		}
	}
	t, err := ParseTags(yt.Uid, yt.Bits...)
	if err != nil {
		return err
	}
	*lt = t
	return nil
}

func (lt LayerTags) MarshalYAML() (any, error) {
	return yamlTags{Bits: lt.Names(), Uid: lt.Uid}, nil
}
