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
	"strings"

	"github.com/stockparfait/blpdata/dates"
	"github.com/stockparfait/blpdata/frame"
	"github.com/stockparfait/errors"
)

type elementKind uint8

const (
	scalarElement elementKind = iota
	complexElement
	arrayElement
)

// Element is a node of a response message: a named scalar value, a complex
// element with named children, or an array of unnamed values. The transport
// produces Element trees; this package only reads them.
type Element struct {
	name     string
	kind     elementKind
	value    interface{} // scalar: string, float64, int, bool, dates.Date or nil
	children []*Element  // complex
	items    []*Element  // array
}

// Scalar creates a scalar element holding a single value.
func Scalar(name string, value interface{}) *Element {
	return &Element{name: name, kind: scalarElement, value: value}
}

// Complex creates a complex element with named child elements.
func Complex(name string, children ...*Element) *Element {
	return &Element{name: name, kind: complexElement, children: children}
}

// Array creates an array element with a list of values.
func Array(name string, items ...*Element) *Element {
	return &Element{name: name, kind: arrayElement, items: items}
}

func (e *Element) Name() string  { return e.name }
func (e *Element) IsArray() bool { return e.kind == arrayElement }

// HasElement checks for a direct child element with the given name.
func (e *Element) HasElement(name string) bool {
	for _, c := range e.children {
		if c.name == name {
			return true
		}
	}
	return false
}

// Element returns the direct child element with the given name.
func (e *Element) Element(name string) (*Element, error) {
	for _, c := range e.children {
		if c.name == name {
			return c, nil
		}
	}
	return nil, errors.Reason("element '%s' has no sub-element '%s'", e.name, name)
}

// Elements returns the child elements of a complex element in order.
func (e *Element) Elements() []*Element { return e.children }

func (e *Element) NumElements() int { return len(e.children) }

// NumValues is the length of an array element, 0 otherwise.
func (e *Element) NumValues() int { return len(e.items) }

// Value returns the i-th value of an array element.
func (e *Element) Value(i int) (*Element, error) {
	if i < 0 || i >= len(e.items) {
		return nil, errors.Reason("element '%s' has no value at index %d", e.name, i)
	}
	return e.items[i], nil
}

// AsString extracts the scalar value as a string.
func (e *Element) AsString() string {
	switch v := e.value.(type) {
	case string:
		return v
	case nil:
		if e.kind != scalarElement {
			return e.String()
		}
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// AsFloat64 extracts the numeric scalar value; the second value is false for
// non-numeric elements.
func (e *Element) AsFloat64() (float64, bool) {
	switch v := e.value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0.0, false
}

// AsDate extracts the scalar value as a calendar date, parsing string values
// as needed.
func (e *Element) AsDate() (dates.Date, error) {
	switch v := e.value.(type) {
	case dates.Date:
		return v, nil
	case string:
		d, err := dates.Parse(v)
		if err != nil {
			return dates.Date{}, errors.Annotate(err,
				"element '%s' is not a date", e.name)
		}
		return d, nil
	}
	return dates.Date{}, errors.Reason("element '%s' is not a date", e.name)
}

// AsCell converts the scalar value to a frame Cell.
func (e *Element) AsCell() frame.Cell {
	switch v := e.value.(type) {
	case nil:
		return frame.Missing()
	case string:
		return frame.String(v)
	case float64:
		return frame.Number(v)
	case int:
		return frame.Number(float64(v))
	case bool:
		return frame.Bool(v)
	case dates.Date:
		return frame.Date(v)
	}
	return frame.String(fmt.Sprintf("%v", e.value))
}

// String renders the element tree on a single line, primarily for error
// payloads and logs.
func (e *Element) String() string {
	switch e.kind {
	case complexElement:
		parts := make([]string, len(e.children))
		for i, c := range e.children {
			parts[i] = c.String()
		}
		return e.name + " = {" + strings.Join(parts, ", ") + "}"
	case arrayElement:
		parts := make([]string, len(e.items))
		for i, v := range e.items {
			parts[i] = v.String()
		}
		return e.name + " = [" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprintf("%s = %v", e.name, e.value)
}

// Message is a single response message produced by the transport.
type Message struct {
	Type string
	Body *Element
}

// HasElement checks for a top-level element with the given name.
func (m Message) HasElement(name string) bool {
	return m.Body != nil && m.Body.HasElement(name)
}

// Element returns the top-level element with the given name.
func (m Message) Element(name string) (*Element, error) {
	if m.Body == nil {
		return nil, errors.Reason("message '%s' has no body", m.Type)
	}
	return m.Body.Element(name)
}

// EventKind classifies an event batch returned by a single poll.
type EventKind int

const (
	OtherEvent EventKind = iota
	TimeoutEvent
	PartialResponseEvent
	ResponseEvent // terminal: no further messages will arrive
)

func (k EventKind) String() string {
	switch k {
	case TimeoutEvent:
		return "TIMEOUT"
	case PartialResponseEvent:
		return "PARTIAL_RESPONSE"
	case ResponseEvent:
		return "RESPONSE"
	}
	return "OTHER"
}

// Event is one batch of incoming messages returned by a single poll.
type Event struct {
	Kind     EventKind
	Messages []Message
}
