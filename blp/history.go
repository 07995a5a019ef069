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

package blp

import (
	"context"

	"github.com/stockparfait/blpdata/dates"
	"github.com/stockparfait/blpdata/frame"
	"github.com/stockparfait/errors"
)

// noHistory is the sentinel value the service reports for dates without
// history; it is replaced by a missing value.
const noHistory = "#N/A History"

// History queries a field's values across a date range, the equivalent of the
// Excel BDH function. The result is indexed by date in chronological order,
// with one column per field; when securities is a List, the columns are a
// two-level (security, field) hierarchy. A date range that legitimately has
// no data yields an empty frame, not an error.
func (c *Client) History(ctx context.Context, securities, fields Input,
	startDate, endDate dates.Date, opts Options) (*frame.Frame, error) {
	req := NewHistoricalRequest(securities, fields, startDate, endDate, opts)
	msgs, err := c.sendRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	return reshapeHistory(msgs, securities.IsScalar())
}

func historyCell(el *Element) frame.Cell {
	cell := el.AsCell()
	if s, ok := cell.AsString(); ok && s == noHistory {
		return frame.Missing()
	}
	return cell
}

// reshapeHistory places each message's per-security, per-date, per-field
// values into a tabular fragment indexed by date, and combines the fragments
// side by side.
func reshapeHistory(msgs []Message, scalarSecurities bool) (*frame.Frame, error) {
	var fragments []*frame.Frame
	var keys []string
	for _, msg := range msgs {
		sd, err := msg.Element("securityData")
		if err != nil {
			return nil, errors.Annotate(err, "malformed %s", msg.Type)
		}
		security, err := sd.Element("security")
		if err != nil {
			return nil, errors.Annotate(err, "malformed securityData")
		}
		fieldData, err := sd.Element("fieldData")
		if err != nil {
			return nil, errors.Annotate(err, "malformed securityData")
		}
		fragment := frame.New()
		for i := 0; i < fieldData.NumValues(); i++ {
			row, err := fieldData.Value(i)
			if err != nil {
				return nil, errors.Annotate(err, "malformed fieldData")
			}
			dateEl, err := row.Element("date")
			if err != nil {
				return nil, errors.Annotate(err, "fieldData row has no date")
			}
			date, err := dateEl.AsDate()
			if err != nil {
				return nil, errors.Annotate(err, "malformed fieldData date")
			}
			for _, el := range row.Elements() {
				if el.Name() == "date" {
					continue
				}
				fragment.Set(frame.RowKey{Value: frame.Date(date)},
					frame.Key{Name: el.Name()}, historyCell(el))
			}
		}
		keys = append(keys, security.AsString())
		fragments = append(fragments, fragment)
	}
	if len(fragments) == 0 {
		return frame.New(), nil
	}
	var out *frame.Frame
	if scalarSecurities {
		out = frame.ConcatColumns(fragments, nil)
		out.SetColumnsName("", "Field")
	} else {
		out = frame.ConcatColumns(fragments, keys)
		out.SetColumnsName("Security", "Field")
	}
	out.SortRows()
	out.SetIndexName("", "Date")
	return out, nil
}
