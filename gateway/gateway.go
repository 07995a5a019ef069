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

// Package gateway implements blp.Session over JSON/HTTP polling against a
// local API gateway sidecar which owns the vendor SDK. The gateway exposes
// session and service management, request submission and bounded-wait event
// polling under /api/v1.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/stockparfait/blpdata/blp"
	"github.com/stockparfait/errors"
	"github.com/stockparfait/fetch"
	"github.com/stockparfait/logging"
)

// Default connection parameters of a local gateway.
const (
	DefaultHost = "localhost"
	DefaultPort = 8194
)

// Config of a gateway connection.
type Config struct {
	Host string // default: localhost
	Port int    // default: 8194
}

// Session is a connection to a gateway. It implements blp.Session and is
// exclusively owned by one blp.Client.
type Session struct {
	base        string
	id          string // gateway session ID, set by Start
	correlation string // correlation ID of the in-flight request
}

var _ blp.Session = &Session{}

// New creates an unconnected Session for the given gateway.
func New(cfg Config) *Session {
	host := cfg.Host
	if host == "" {
		host = DefaultHost
	}
	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}
	return &Session{base: fmt.Sprintf("http://%s:%d/api/v1", host, port)}
}

// Start opens a gateway session. The session ID is client-generated; the
// gateway may override it in the response.
func (s *Session) Start(ctx context.Context) error {
	id := uuid.NewString()
	var resp struct {
		Session string `json:"session"`
	}
	q := make(url.Values)
	q["session"] = []string{id}
	if err := fetch.FetchJSON(ctx, s.base+"/session/open", &resp, q, nil); err != nil {
		return errors.Annotate(err, "failed to open gateway session")
	}
	s.id = id
	if resp.Session != "" {
		s.id = resp.Session
	}
	logging.Infof(ctx, "gateway: opened session %s", s.id)
	return nil
}

// Stop closes the gateway session.
func (s *Session) Stop(ctx context.Context) error {
	var resp struct {
		Closed bool `json:"closed"`
	}
	q := make(url.Values)
	q["session"] = []string{s.id}
	if err := fetch.FetchJSON(ctx, s.base+"/session/close", &resp, q, nil); err != nil {
		return errors.Annotate(err, "failed to close gateway session")
	}
	logging.Infof(ctx, "gateway: closed session %s", s.id)
	s.id = ""
	return nil
}

// OpenService resolves a vendor service by name.
func (s *Session) OpenService(ctx context.Context, name string) error {
	var resp struct {
		Opened bool `json:"opened"`
	}
	q := make(url.Values)
	q["session"] = []string{s.id}
	q["service"] = []string{name}
	if err := fetch.FetchJSON(ctx, s.base+"/services/open", &resp, q, nil); err != nil {
		return errors.Annotate(err, "failed to open service '%s'", name)
	}
	if !resp.Opened {
		return errors.Reason("gateway did not open service '%s'", name)
	}
	return nil
}

// Send submits a request under a fresh correlation ID. Subsequent NextEvent
// polls are scoped to that correlation.
func (s *Session) Send(ctx context.Context, req *blp.Request) error {
	s.correlation = uuid.NewString()
	var resp struct {
		Accepted bool `json:"accepted"`
	}
	q := req.Values()
	q["session"] = []string{s.id}
	q["correlation"] = []string{s.correlation}
	if err := fetch.FetchJSON(ctx, s.base+"/request", &resp, q, nil); err != nil {
		return errors.Annotate(err, "failed to submit %s", req.Name())
	}
	if !resp.Accepted {
		return errors.Reason("gateway rejected %s", req.Name())
	}
	return nil
}

type messageJSON struct {
	Type string          `json:"messageType"`
	Body json.RawMessage `json:"body"`
}

type eventJSON struct {
	Event    string        `json:"event"`
	Messages []messageJSON `json:"messages"`
}

func eventKind(s string) blp.EventKind {
	switch s {
	case "RESPONSE":
		return blp.ResponseEvent
	case "PARTIAL_RESPONSE":
		return blp.PartialResponseEvent
	case "TIMEOUT":
		return blp.TimeoutEvent
	}
	return blp.OtherEvent
}

// NextEvent polls the gateway for the next event batch, waiting at most the
// given duration on the gateway side.
func (s *Session) NextEvent(ctx context.Context, wait time.Duration) (blp.Event, error) {
	var ev eventJSON
	q := make(url.Values)
	q["session"] = []string{s.id}
	q["correlation"] = []string{s.correlation}
	q["timeout"] = []string{strconv.Itoa(int(wait.Milliseconds()))}
	if err := fetch.FetchJSON(ctx, s.base+"/events", &ev, q, nil); err != nil {
		return blp.Event{}, errors.Annotate(err, "failed to poll gateway events")
	}
	out := blp.Event{Kind: eventKind(ev.Event)}
	for _, m := range ev.Messages {
		body, err := decodeBody(m.Body)
		if err != nil {
			return blp.Event{}, errors.Annotate(err, "malformed message '%s'", m.Type)
		}
		out.Messages = append(out.Messages, blp.Message{Type: m.Type, Body: body})
	}
	return out, nil
}

// decodeBody converts a JSON object into an element tree. Object keys must
// keep their order: the natural key of a bulk record is its first column, so
// the body is walked token by token instead of through a map.
func decodeBody(raw json.RawMessage) (*blp.Element, error) {
	if len(raw) == 0 {
		return blp.Complex(""), nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return decodeValue(dec, "")
}

func decodeValue(dec *json.Decoder, name string) (*blp.Element, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, errors.Annotate(err, "failed to read JSON token")
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			var children []*blp.Element
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, errors.Annotate(err, "failed to read JSON key")
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, errors.Reason("unexpected JSON key: %v", keyTok)
				}
				child, err := decodeValue(dec, key)
				if err != nil {
					return nil, err
				}
				children = append(children, child)
			}
			if _, err := dec.Token(); err != nil {
				return nil, errors.Annotate(err, "unterminated JSON object")
			}
			return blp.Complex(name, children...), nil
		case '[':
			var items []*blp.Element
			for dec.More() {
				item, err := decodeValue(dec, name)
				if err != nil {
					return nil, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return nil, errors.Annotate(err, "unterminated JSON array")
			}
			return blp.Array(name, items...), nil
		}
		return nil, errors.Reason("unexpected JSON delimiter: %v", t)
	case string:
		return blp.Scalar(name, t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, errors.Annotate(err, "bad JSON number: %s", t.String())
		}
		return blp.Scalar(name, f), nil
	case bool:
		return blp.Scalar(name, t), nil
	case nil:
		return blp.Scalar(name, nil), nil
	}
	return nil, errors.Reason("unexpected JSON token: %v", tok)
}
