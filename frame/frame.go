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

// Package frame implements a two-dimensional table with optionally two-level
// row and column keys, the result shape of all query operations.
package frame

import (
	"github.com/stockparfait/errors"
	"golang.org/x/exp/slices"
)

// Key identifies a column. Group is empty for a flat column axis, or holds the
// outer level of a two-level (group, name) column hierarchy.
type Key struct {
	Group string
	Name  string
}

// RowKey identifies a row. Group is empty for a flat row index, or holds the
// outer level of a two-level (group, value) row hierarchy.
type RowKey struct {
	Group string
	Value Cell
}

// Less establishes the row ordering: by group, then by value.
func (r RowKey) Less(r2 RowKey) bool {
	if r.Group != r2.Group {
		return r.Group < r2.Group
	}
	return r.Value.Less(r2.Value)
}

// Frame is a table of cells with ordered row and column keys. Rows and columns
// are created implicitly by Set, preserving first-touch order.
type Frame struct {
	indexGroupName   string // name of the outer row level, e.g. "Security"
	indexName        string // name of the inner row level, e.g. "Date"
	columnsGroupName string // name of the outer column level
	columnsName      string // name of the inner column level, e.g. "Field"
	rows             []RowKey
	cols             []Key
	cells            [][]Cell // row-major, aligned with rows x cols
	rowPos           map[RowKey]int
	colPos           map[Key]int
}

// New creates an empty Frame.
func New() *Frame {
	return &Frame{
		rowPos: make(map[RowKey]int),
		colPos: make(map[Key]int),
	}
}

// SetIndexName sets the row axis names. The group name is empty for a flat
// index.
func (f *Frame) SetIndexName(group, name string) {
	f.indexGroupName = group
	f.indexName = name
}

// IndexName returns the row axis names.
func (f *Frame) IndexName() (group, name string) {
	return f.indexGroupName, f.indexName
}

// SetColumnsName sets the column axis names. The group name is empty for a
// flat column axis.
func (f *Frame) SetColumnsName(group, name string) {
	f.columnsGroupName = group
	f.columnsName = name
}

// ColumnsName returns the column axis names.
func (f *Frame) ColumnsName() (group, name string) {
	return f.columnsGroupName, f.columnsName
}

// Rows returns the row keys in order. The slice is owned by the Frame.
func (f *Frame) Rows() []RowKey { return f.rows }

// Columns returns the column keys in order. The slice is owned by the Frame.
func (f *Frame) Columns() []Key { return f.cols }

func (f *Frame) NumRows() int { return len(f.rows) }
func (f *Frame) NumCols() int { return len(f.cols) }

// Empty checks whether the Frame has no cells, that is any of its axes has
// zero length.
func (f *Frame) Empty() bool {
	return f.NumRows() == 0 || f.NumCols() == 0
}

// At returns the cell at the given row and column positions.
func (f *Frame) At(row, col int) Cell {
	return f.cells[row][col]
}

// Lookup returns the cell for the given keys; the second value is false when
// either key is not present.
func (f *Frame) Lookup(row RowKey, col Key) (Cell, bool) {
	ri, ok := f.rowPos[row]
	if !ok {
		return Missing(), false
	}
	ci, ok := f.colPos[col]
	if !ok {
		return Missing(), false
	}
	return f.cells[ri][ci], true
}

// ScalarOnly returns the single contained cell iff the Frame is exactly 1x1.
func (f *Frame) ScalarOnly() (Cell, bool) {
	if f.NumRows() != 1 || f.NumCols() != 1 {
		return Missing(), false
	}
	return f.cells[0][0], true
}

func (f *Frame) ensureRow(row RowKey) int {
	if i, ok := f.rowPos[row]; ok {
		return i
	}
	i := len(f.rows)
	f.rows = append(f.rows, row)
	f.rowPos[row] = i
	f.cells = append(f.cells, make([]Cell, len(f.cols)))
	return i
}

func (f *Frame) ensureCol(col Key) int {
	if i, ok := f.colPos[col]; ok {
		return i
	}
	i := len(f.cols)
	f.cols = append(f.cols, col)
	f.colPos[col] = i
	for ri := range f.cells {
		f.cells[ri] = append(f.cells[ri], Missing())
	}
	return i
}

// Set assigns the cell for the given keys, creating the row and the column as
// needed. New cells on a freshly created axis are missing values.
func (f *Frame) Set(row RowKey, col Key, c Cell) {
	ri := f.ensureRow(row)
	ci := f.ensureCol(col)
	f.cells[ri][ci] = c
}

// SortRows reorders the rows by their keys: by group, then by value. The sort
// is stable.
func (f *Frame) SortRows() {
	order := make([]int, len(f.rows))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) bool {
		return f.rows[a].Less(f.rows[b])
	})
	rows := make([]RowKey, len(f.rows))
	cells := make([][]Cell, len(f.cells))
	for i, o := range order {
		rows[i] = f.rows[o]
		cells[i] = f.cells[o]
		f.rowPos[rows[i]] = i
	}
	f.rows = rows
	f.cells = cells
}

// ConcatColumns merges the frames side by side on the union of their row
// keys. When groups is non-nil, it must be of the same length as frames, and
// the columns of frames[i] are prefixed with groups[i] as the outer column
// level. Rows and columns keep their first-appearance order; cells absent
// from a fragment become missing values. It panics on a length mismatch.
func ConcatColumns(frames []*Frame, groups []string) *Frame {
	if groups != nil && len(groups) != len(frames) {
		panic(errors.Reason("len(groups) [%d] != len(frames) [%d]",
			len(groups), len(frames)))
	}
	out := New()
	for i, f := range frames {
		for ci, col := range f.cols {
			if groups != nil {
				col = Key{Group: groups[i], Name: col.Name}
			}
			for ri, row := range f.rows {
				out.Set(row, col, f.cells[ri][ci])
			}
		}
	}
	return out
}

// StackRows stacks the frames vertically with a two-level row hierarchy:
// the rows of frames[i] are prefixed with groups[i] as the outer row level.
// The column set is the union of the frames' columns. It panics when groups
// is not of the same length as frames.
func StackRows(frames []*Frame, groups []string) *Frame {
	if len(groups) != len(frames) {
		panic(errors.Reason("len(groups) [%d] != len(frames) [%d]",
			len(groups), len(frames)))
	}
	out := New()
	for i, f := range frames {
		for ri, row := range f.rows {
			stacked := RowKey{Group: groups[i], Value: row.Value}
			for ci, col := range f.cols {
				out.Set(stacked, col, f.cells[ri][ci])
			}
		}
	}
	return out
}
