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
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/stockparfait/errors"
)

// Params are parameters for pretty-printing or CSV export of Frame data.
type Params struct {
	Rows        int  // max. number of data rows to write; 0 = unlimited (default)
	NoHeader    bool // whether to print the header, default - yes
	MaxColWidth int  // for WriteText only; 0 = unlimited, otherwise must be >= 4
}

func (f *Frame) hasRowGroups() bool {
	if f.indexGroupName != "" {
		return true
	}
	for _, r := range f.rows {
		if r.Group != "" {
			return true
		}
	}
	return false
}

func (f *Frame) hasColGroups() bool {
	if f.columnsGroupName != "" {
		return true
	}
	for _, c := range f.cols {
		if c.Group != "" {
			return true
		}
	}
	return false
}

// headerRows renders one header row for a flat column axis, or two rows (the
// group level above the name level) for a hierarchical one. The leading cells
// cover the row index column(s).
func (f *Frame) headerRows() [][]string {
	indexCols := 1
	if f.hasRowGroups() {
		indexCols = 2
	}
	var rows [][]string
	if f.hasColGroups() {
		top := make([]string, 0, indexCols+len(f.cols))
		top = append(top, f.columnsGroupName)
		for i := 1; i < indexCols; i++ {
			top = append(top, "")
		}
		for _, c := range f.cols {
			top = append(top, c.Group)
		}
		rows = append(rows, top)
	}
	name := make([]string, 0, indexCols+len(f.cols))
	if indexCols == 2 {
		name = append(name, f.indexGroupName)
	}
	name = append(name, f.indexName)
	for _, c := range f.cols {
		name = append(name, c.Name)
	}
	rows = append(rows, name)
	return rows
}

// dataRows renders up to max data rows (0 = all), row keys first.
func (f *Frame) dataRows(max int) [][]string {
	indexCols := 1
	if f.hasRowGroups() {
		indexCols = 2
	}
	var rows [][]string
	for ri, r := range f.rows {
		if max > 0 && ri >= max {
			break
		}
		row := make([]string, 0, indexCols+len(f.cols))
		if indexCols == 2 {
			row = append(row, r.Group)
		}
		row = append(row, r.Value.String())
		for ci := range f.cols {
			row = append(row, f.cells[ri][ci].String())
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteCSV writes the entire Frame to w in CSV format. A hierarchical column
// axis is written as two header rows.
func (f *Frame) WriteCSV(w io.Writer, p Params) error {
	cw := csv.NewWriter(w)
	if !p.NoHeader {
		for _, h := range f.headerRows() {
			if err := cw.Write(h); err != nil {
				return errors.Annotate(err, "failed to write header")
			}
		}
	}
	for _, r := range f.dataRows(p.Rows) {
		if err := cw.Write(r); err != nil {
			return errors.Annotate(err, "failed to write row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Annotate(err, "failed to flush written rows")
	}
	return nil
}

// WriteText writes the Frame as a text formatted for ease of reading.
func (f *Frame) WriteText(w io.Writer, p Params) error {
	if p.MaxColWidth != 0 && p.MaxColWidth < 4 {
		return errors.Reason("MaxColWidth [%d] must be 0 or >= 4", p.MaxColWidth)
	}
	var header, data [][]string
	if !p.NoHeader {
		header = f.headerRows()
	}
	data = f.dataRows(p.Rows)
	if len(header) == 0 && len(data) == 0 {
		return nil
	}

	size := 1 + len(f.cols)
	if f.hasRowGroups() {
		size++
	}
	widths := make([]int, size)
	update := func(row []string) error {
		if len(row) != len(widths) {
			return errors.Reason("row size [%d] != expected size [%d]",
				len(row), len(widths))
		}
		for i := range widths {
			if widths[i] < len(row[i]) {
				widths[i] = len(row[i])
				if p.MaxColWidth > 0 && widths[i] > p.MaxColWidth {
					widths[i] = p.MaxColWidth
				}
			}
		}
		return nil
	}

	write := func(row []string) error {
		trimmed := make([]string, len(row))
		for i, s := range row {
			trimmed[i] = s
			if len([]rune(s)) > widths[i] {
				r := []rune(s)[:widths[i]-2]
				trimmed[i] = string(r) + ".."
			}
			trimmed[i] = fmt.Sprintf("%[2]*[1]s", trimmed[i], widths[i])
		}
		_, err := fmt.Fprintf(w, "%s\n", strings.Join(trimmed, " | "))
		return err
	}

	dashedRow := func() []string {
		row := make([]string, len(widths))
		for i, w := range widths {
			row[i] = strings.Repeat("-", w)
		}
		return row
	}

	for _, h := range header {
		if err := update(h); err != nil {
			return errors.Annotate(err, "failed to update header widths")
		}
	}
	for _, r := range data {
		if err := update(r); err != nil {
			return errors.Annotate(err, "failed to update row widths")
		}
	}

	for _, h := range header {
		if err := write(h); err != nil {
			return errors.Annotate(err, "failed to write header")
		}
	}
	if len(header) > 0 {
		if err := write(dashedRow()); err != nil {
			return errors.Annotate(err, "failed to write header separator")
		}
	}
	for _, r := range data {
		if err := write(r); err != nil {
			return errors.Annotate(err, "failed to write row")
		}
	}
	return nil
}
