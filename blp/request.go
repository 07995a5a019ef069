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
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/stockparfait/blpdata/dates"
)

// Input is a securities or fields argument: a single scalar identifier or an
// ordered list. Both attach to the request as a list, but the original scalar
// vs. list shape decides the shape of the result: a scalar built with One
// stays distinguishable from a genuine one-element List.
type Input struct {
	values []string
	scalar bool
}

// One creates a scalar Input.
func One(v string) Input {
	return Input{values: []string{v}, scalar: true}
}

// List creates a list-valued Input, even for a single element.
func List(vs ...string) Input {
	values := make([]string, len(vs))
	copy(values, vs)
	return Input{values: values}
}

// Values returns the promoted list form.
func (in Input) Values() []string { return in.values }

// IsScalar reports whether the Input was built from a single scalar value.
func (in Input) IsScalar() bool { return in.scalar }

// Options are extra request options, merged over the request kind's defaults
// key by key. Values of type dates.Date or time.Time are serialized to the
// compact YYYYMMDD form on attachment.
type Options map[string]interface{}

// Operation names of the reference-data service.
const (
	HistoricalDataOperation = "HistoricalData"
	ReferenceDataOperation  = "ReferenceData"
)

// Request is a ready-to-submit request payload. Building a Request is pure:
// it never contacts the transport.
type Request struct {
	operation  string
	securities []string
	fields     []string
	options    map[string]string // values serialized on Set
}

func newRequest(operation string) *Request {
	return &Request{operation: operation, options: make(map[string]string)}
}

// Name is the request type name submitted to the service.
func (r *Request) Name() string { return r.operation + "Request" }

// ResponseName is the message type expected in the response to this request;
// messages of other types are dropped.
func (r *Request) ResponseName() string { return r.operation + "Response" }

// AppendSecurities appends identifiers to the securities list element.
func (r *Request) AppendSecurities(vs ...string) {
	r.securities = append(r.securities, vs...)
}

// AppendFields appends field names to the fields list element.
func (r *Request) AppendFields(vs ...string) {
	r.fields = append(r.fields, vs...)
}

func serializeOption(v interface{}) string {
	switch t := v.(type) {
	case dates.Date:
		return t.Compact()
	case time.Time:
		return dates.FromTime(t).Compact()
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	}
	return fmt.Sprintf("%v", v)
}

// Set attaches a named scalar option, serializing calendar dates to the
// 8-digit YYYYMMDD form and passing other values through.
func (r *Request) Set(name string, value interface{}) {
	r.options[name] = serializeOption(value)
}

// Option returns the serialized value of a previously set option.
func (r *Request) Option(name string) (string, bool) {
	v, ok := r.options[name]
	return v, ok
}

// Values encodes the request for the gateway transport. Each call creates a
// new object, so the caller is free to modify it.
func (r *Request) Values() url.Values {
	v := make(url.Values)
	v["operation"] = []string{r.Name()}
	if len(r.securities) > 0 {
		v["securities"] = []string{strings.Join(r.securities, ",")}
	}
	if len(r.fields) > 0 {
		v["fields"] = []string{strings.Join(r.fields, ",")}
	}
	for name, val := range r.options {
		v[name] = []string{val}
	}
	return v
}

// NewHistoricalRequest builds a HistoricalDataRequest with the fixed default
// option set overridden key by key by the caller's options.
func NewHistoricalRequest(securities, fields Input, startDate, endDate dates.Date, opts Options) *Request {
	r := newRequest(HistoricalDataOperation)
	r.AppendSecurities(securities.Values()...)
	r.AppendFields(fields.Values()...)
	defaults := Options{
		"startDate":               startDate,
		"endDate":                 endDate,
		"periodicityAdjustment":   "ACTUAL",
		"periodicitySelection":    "DAILY",
		"nonTradingDayFillOption": "ACTIVE_DAYS_ONLY",
		"adjustmentNormal":        false,
		"adjustmentAbnormal":      false,
		"adjustmentSplit":         true,
		"adjustmentFollowDPDF":    false,
	}
	for name, v := range opts {
		defaults[name] = v
	}
	for name, v := range defaults {
		r.Set(name, v)
	}
	return r
}

// NewReferenceRequest builds a ReferenceDataRequest, used by both the
// point-in-time and the bulk lookups.
func NewReferenceRequest(securities, fields Input, opts Options) *Request {
	r := newRequest(ReferenceDataOperation)
	r.AppendSecurities(securities.Values()...)
	r.AppendFields(fields.Values()...)
	for name, v := range opts {
		r.Set(name, v)
	}
	return r
}
