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

// Reference queries current point-in-time field values, the equivalent of the
// Excel BDP function. The result is indexed by security with one column per
// field. A field unknown for a security fails silently and manifests as a
// missing cell or an empty frame.
func (c *Client) Reference(ctx context.Context, securities, fields Input,
	opts Options) (*frame.Frame, error) {
	req := NewReferenceRequest(securities, fields, opts)
	msgs, err := c.sendRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	return reshapeReference(msgs)
}

// ReferenceScalar is the single-security, single-field form of Reference,
// returning the bare value rather than a 1x1 frame. A silent field failure
// returns a missing cell, not an error.
func (c *Client) ReferenceScalar(ctx context.Context, security, field string,
	opts Options) (frame.Cell, error) {
	f, err := c.Reference(ctx, One(security), One(field), opts)
	if err != nil {
		return frame.Missing(), err
	}
	if cell, ok := f.ScalarOnly(); ok {
		return cell, nil
	}
	return frame.Missing(), nil
}

// reshapeReference grows a single security-by-field table across all
// accepted messages.
func reshapeReference(msgs []Message) (*frame.Frame, error) {
	out := frame.New()
	out.SetIndexName("", "Security")
	out.SetColumnsName("", "Field")
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
			row := frame.RowKey{Value: frame.String(security.AsString())}
			for _, fld := range fieldData.Elements() {
				out.Set(row, frame.Key{Name: fld.Name()}, fld.AsCell())
			}
		}
	}
	return out, nil
}
