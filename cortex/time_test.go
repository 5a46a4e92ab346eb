// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cortex

import (
	"testing"

	"github.com/emer/emergent/v2/etime"
)

func TestTimeRegrowSchedule(t *testing.T) {
	tm := NewTime()
	if !tm.Learning() || tm.RegrowInterval != SynapseRegrowthInterval {
		t.Fatalf("defaults %+v", *tm)
	}
	tm.RegrowInterval = 3
	var due []uint64
	for i := 0; i < 7; i++ {
		if tm.TickInc() {
			due = append(due, tm.Tick)
		}
	}
	if len(due) != 2 || due[0] != 3 || due[1] != 6 || tm.Regrows != 2 || tm.SinceRegrow != 1 {
		t.Errorf("regrowths at %v, %+v", due, *tm)
	}
	tm.Mode = etime.Test
	if tm.Learning() {
		t.Error("learning outside Train")
	}

	tm.RegrowInterval = 0
	tm.Reset()
	if tm.Tick != 0 || tm.Regrows != 0 || tm.SinceRegrow != 0 || tm.RegrowInterval != SynapseRegrowthInterval || !tm.Learning() {
		t.Errorf("reset %+v", *tm)
	}
}
