// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package flywheel

import (
	"github.com/emer/etable/v2/etable"
	"github.com/emer/etable/v2/etensor"
)

// ConfigLog sets the columns of the AreaInfo log.
func (fw *Flywheel) ConfigLog(dt *etable.Table) {
	dt.SetMetaData("name", "AreaInfoLog")
	dt.SetMetaData("desc", "Soma statistics per data layer")
	dt.SetMetaData("read-only", "true")
	dt.SetMetaData("precision", "4")

	sch := etable.Schema{
		{"Tick", etensor.INT64, nil, nil},
		{"Area", etensor.STRING, nil, nil},
		{"Layer", etensor.STRING, nil, nil},
		{"SomaMin", etensor.FLOAT32, nil, nil},
		{"SomaMax", etensor.FLOAT32, nil, nil},
		{"SomaAvg", etensor.FLOAT32, nil, nil},
		{"NActive", etensor.INT64, nil, nil},
		{"TickMSec", etensor.FLOAT64, nil, nil},
	}
	dt.SetFromSchema(sch, 0)
}

// LogAreaStats adds a row per data layer, starting over once the log holds
// MaxLogRows. Rows are also written to LogWriter when set.
func (fw *Flywheel) LogAreaStats(dt *etable.Table, ass []AreaStats) {
	msec := 0.0
	if fw.TickTime.N > 0 {
		msec = 1000 * fw.TickTime.TotalSecs() / float64(fw.TickTime.N)
	}
	for _, as := range ass {
		for _, ls := range as.Layers {
			row := dt.Rows
			if row >= fw.Params.MaxLogRows {
				row = 0
			}
			dt.SetNumRows(row + 1)
			dt.SetCellFloat("Tick", row, float64(as.Tick))
			dt.SetCellString("Area", row, as.Area)
			dt.SetCellString("Layer", row, ls.Layer)
			dt.SetCellFloat("SomaMin", row, float64(ls.Min))
			dt.SetCellFloat("SomaMax", row, float64(ls.Soma.Max))
			dt.SetCellFloat("SomaAvg", row, float64(ls.Soma.Avg))
			dt.SetCellFloat("NActive", row, float64(ls.NActive))
			dt.SetCellFloat("TickMSec", row, msec)

			if fw.LogWriter != nil {
				if !fw.logHdr {
					dt.WriteCSVHeaders(fw.LogWriter, etable.Tab)
					fw.logHdr = true
				}
				dt.WriteCSVRow(fw.LogWriter, row, etable.Tab)
			}
		}
	}
}
