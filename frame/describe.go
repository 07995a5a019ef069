// Copyright 2023 Stock Parfait

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package frame

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Describe computes a numeric summary of the Frame: one row each for count,
// mean, std, min and max, with one column per column of the original that
// contains at least one numeric cell. Non-numeric cells are ignored.
func (f *Frame) Describe() *Frame {
	out := New()
	out.SetIndexName("", "Stat")
	out.SetColumnsName(f.columnsGroupName, f.columnsName)
	stats := []string{"count", "mean", "std", "min", "max"}
	for ci, col := range f.cols {
		var vals []float64
		for ri := range f.rows {
			if v, ok := f.cells[ri][ci].AsNumber(); ok {
				vals = append(vals, v)
			}
		}
		if len(vals) == 0 {
			continue
		}
		cells := []Cell{
			Number(float64(len(vals))),
			Number(stat.Mean(vals, nil)),
			Number(stat.StdDev(vals, nil)),
			Number(floats.Min(vals)),
			Number(floats.Max(vals)),
		}
		for i, s := range stats {
			out.Set(RowKey{Value: String(s)}, col, cells[i])
		}
	}
	return out
}
