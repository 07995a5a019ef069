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
	"strconv"

	"github.com/stockparfait/blpdata/dates"
)

type cellKind uint8

const (
	kindMissing cellKind = iota
	kindBool
	kindString
	kindNumber
	kindDate
)

// Cell of a Frame which is a union of string, number (float64), date, bool or
// a missing value. The zero value is a missing value.
type Cell struct {
	kind    cellKind
	number  float64
	string  string
	date    dates.Date
	boolean bool
}

// Missing creates a missing-value Cell.
func Missing() Cell {
	return Cell{}
}

func String(s string) Cell {
	return Cell{kind: kindString, string: s}
}

func Number(n float64) Cell {
	return Cell{kind: kindNumber, number: n}
}

func Date(d dates.Date) Cell {
	return Cell{kind: kindDate, date: d}
}

func Bool(b bool) Cell {
	return Cell{kind: kindBool, boolean: b}
}

func (c Cell) IsMissing() bool { return c.kind == kindMissing }

// AsNumber extracts the numeric value; the second value is false for
// non-numeric cells.
func (c Cell) AsNumber() (float64, bool) {
	return c.number, c.kind == kindNumber
}

// AsDate extracts the date value; the second value is false for non-date
// cells.
func (c Cell) AsDate() (dates.Date, bool) {
	return c.date, c.kind == kindDate
}

// AsString extracts the string value; the second value is false for non-string
// cells.
func (c Cell) AsString() (string, bool) {
	return c.string, c.kind == kindString
}

func (c Cell) String() string {
	switch c.kind {
	case kindString:
		return c.string
	case kindNumber:
		return strconv.FormatFloat(c.number, 'g', -1, 64)
	case kindDate:
		return c.date.String()
	case kindBool:
		return strconv.FormatBool(c.boolean)
	}
	return ""
}

// Less establishes a total order on cells, primarily for sorting row indexes.
// Cells of different kinds order as missing < bool < string < number < date;
// a missing value (somewhat arbitrarily) feels smaller than everything else.
func (c Cell) Less(c2 Cell) bool {
	if c.kind != c2.kind {
		return c.kind < c2.kind
	}
	switch c.kind {
	case kindString:
		return c.string < c2.string
	case kindNumber:
		return c.number < c2.number
	case kindDate:
		return c.date.Before(c2.date)
	case kindBool:
		return !c.boolean && c2.boolean
	}
	return false
}
