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

	"github.com/stockparfait/blpdata/frame"
	"github.com/stockparfait/errors"
)

// Bulk queries array-valued fields, the equivalent of the Excel BDS function.
// Each security/field pair yields multiple rows indexed by the bulk record's
// first column, its natural key. With a scalar security the fragments combine
// side by side as columns; with a List of securities they stack under a
// two-level (security, key) row hierarchy. Requesting multiple securities and
// multiple fields together is supported but the combined shape is unlikely to
// be useful unless the bulk fields share columns.
func (c *Client) Bulk(ctx context.Context, securities, fields Input,
	opts Options) (*frame.Frame, error) {
	req := NewReferenceRequest(securities, fields, opts)
	msgs, err := c.sendRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	return reshapeBulk(msgs, securities.IsScalar())
}

// reshapeBulk assembles one fragment per security from the rows of its bulk
// arrays, skipping securities whose bulk fields produced no rows.
func reshapeBulk(msgs []Message, scalarSecurities bool) (*frame.Frame, error) {
	var fragments []*frame.Frame
	var keys []string
	indexName := ""
	for _, msg := range msgs {
		sd, err := msg.Element("securityData")
		if err != nil {
			return nil, errors.Annotate(err, "malformed %s", msg.Type)
		}
		for i := 0; i < sd.NumValues(); i++ {
			sec, err := sd.Value(i)
			if err != nil {
				return nil, errors.Annotate(err, "malformed securityData")
			}
			security, err := sec.Element("security")
			if err != nil {
				return nil, errors.Annotate(err, "malformed securityData")
			}
			fieldData, err := sec.Element("fieldData")
			if err != nil {
				return nil, errors.Annotate(err, "malformed securityData")
			}
			fragment := frame.New()
			for _, fld := range fieldData.Elements() {
				for j := 0; j < fld.NumValues(); j++ {
					record, err := fld.Value(j)
					if err != nil {
						return nil, errors.Annotate(err, "malformed bulk field '%s'",
							fld.Name())
					}
					columns := record.Elements()
					if len(columns) == 0 {
						continue
					}
					// The first column of the bulk record is its natural key.
					indexName = columns[0].Name()
					row := frame.RowKey{Value: columns[0].AsCell()}
					for _, col := range columns[1:] {
						fragment.Set(row, frame.Key{Name: col.Name()}, col.AsCell())
					}
				}
			}
			if fragment.Empty() {
				continue
			}
			keys = append(keys, security.AsString())
			fragments = append(fragments, fragment)
		}
	}
	if len(fragments) == 0 {
		return frame.New(), nil
	}
	var out *frame.Frame
	if scalarSecurities {
		out = frame.ConcatColumns(fragments, nil)
		out.SetColumnsName("", "Field")
		out.SetIndexName("", indexName)
	} else {
		out = frame.StackRows(fragments, keys)
		out.SetIndexName("Security", indexName)
	}
	return out, nil
}
