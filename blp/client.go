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

// Package blp is a client for a vendor reference-data service that returns
// query results as data frames, roughly emulating the spreadsheet lookup
// functions: History (BDH), Reference (BDP) and Bulk (BDS).
//
// All calls are blocking: a request is submitted and the transport is polled
// until the terminal response event. A RequestError is returned when an
// invalid security is queried. Invalid fields fail silently and may result in
// an empty frame.
package blp

import (
	"context"
	"time"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"
)

// RefDataService is the service resolved when a connection opens.
const RefDataService = "//blp/refdata"

// DefaultPollWait bounds the wait of a single poll for the next event batch.
const DefaultPollWait = 100 * time.Millisecond

// Session is the vendor transport: an opaque producer of request/response
// objects. Implementations are not safe for concurrent use; a Session is
// exclusively owned by one Client.
type Session interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	OpenService(ctx context.Context, name string) error
	Send(ctx context.Context, req *Request) error
	// NextEvent returns the next batch of incoming messages, waiting at most
	// the given duration. An expired wait returns a TimeoutEvent, not an error.
	NextEvent(ctx context.Context, wait time.Duration) (Event, error)
}

// Descriptions of the RequestError kinds.
const (
	ResponseErrorDescription = "Response Error"
	FieldErrorDescription    = "Field Error"
	SecurityErrorDescription = "Security Error"
)

// RequestError is returned when there is a problem with a vendor API
// response. Payload is the raw offending element; callers branch on
// Description, never on the payload shape.
type RequestError struct {
	Description string
	Payload     *Element
}

func (e *RequestError) Error() string {
	if e.Payload == nil {
		return e.Description
	}
	return e.Description + "\n\n" + e.Payload.String()
}

// Client owns a connection to the reference-data service. It is not safe for
// concurrent use: every operation blocks until its full response is drained.
type Client struct {
	session  Session
	pollWait time.Duration
	active   bool
}

// NewClient creates an inactive Client over the session. Call Open before
// submitting requests, or use With for scoped acquisition.
func NewClient(session Session) *Client {
	return &Client{session: session, pollWait: DefaultPollWait}
}

// SetPollWait overrides the bounded wait of a single event poll.
func (c *Client) SetPollWait(wait time.Duration) {
	if wait > 0 {
		c.pollWait = wait
	}
}

// Active reports whether the connection is open.
func (c *Client) Active() bool { return c.active }

// Open starts the session and resolves the reference-data service. It is a
// no-op on an active connection. Transport failures propagate unmodified;
// there is no retry.
func (c *Client) Open(ctx context.Context) error {
	if c.active {
		return nil
	}
	if err := c.session.Start(ctx); err != nil {
		return errors.Annotate(err, "failed to start session")
	}
	if err := c.session.OpenService(ctx, RefDataService); err != nil {
		return errors.Annotate(err, "failed to open service %s", RefDataService)
	}
	c.active = true
	logging.Infof(ctx, "opened %s", RefDataService)
	return nil
}

// Close terminates the session. It is a no-op on an inactive connection.
func (c *Client) Close(ctx context.Context) error {
	if !c.active {
		return nil
	}
	c.active = false
	if err := c.session.Stop(ctx); err != nil {
		return errors.Annotate(err, "failed to stop session")
	}
	return nil
}

// With runs f with an opened Client over the session, and closes the
// connection on every exit path.
func With(ctx context.Context, session Session, f func(c *Client) error) (err error) {
	c := NewClient(session)
	if err = c.Open(ctx); err != nil {
		return errors.Annotate(err, "failed to open connection")
	}
	defer func() {
		if closeErr := c.Close(ctx); closeErr != nil && err == nil {
			err = errors.Annotate(closeErr, "failed to close connection")
		}
	}()
	err = f(c)
	return err
}

func checkSecurityData(sd *Element) error {
	if sd.HasElement("fieldExceptions") {
		fe, err := sd.Element("fieldExceptions")
		if err == nil && fe.NumValues() > 0 {
			return &RequestError{FieldErrorDescription, fe}
		}
	}
	if sd.HasElement("securityError") {
		se, err := sd.Element("securityError")
		if err != nil {
			se = nil
		}
		return &RequestError{SecurityErrorDescription, se}
	}
	return nil
}

// checkMessage detects embedded error conditions. The securityData element is
// a complex in a historical response and an array of per-security complexes
// in a reference response; both layouts are inspected.
func checkMessage(msg Message) error {
	if msg.HasElement("responseError") {
		re, err := msg.Element("responseError")
		if err != nil {
			re = nil
		}
		return &RequestError{ResponseErrorDescription, re}
	}
	if !msg.HasElement("securityData") {
		return nil
	}
	sd, err := msg.Element("securityData")
	if err != nil {
		return nil
	}
	if sd.IsArray() {
		for i := 0; i < sd.NumValues(); i++ {
			item, err := sd.Value(i)
			if err != nil {
				return errors.Annotate(err, "malformed securityData in %s", msg.Type)
			}
			if err := checkSecurityData(item); err != nil {
				return err
			}
		}
		return nil
	}
	return checkSecurityData(sd)
}

// sendRequest submits the payload and polls the transport until the terminal
// response event, validating and accumulating messages of the expected type.
// There is no partial result: the full accumulated set or an error is the
// only outcome. Messages of unrelated types are dropped, as the transport may
// interleave unrelated or partial messages. Context cancellation aborts the
// polling loop.
func (c *Client) sendRequest(ctx context.Context, req *Request) ([]Message, error) {
	if !c.active {
		return nil, errors.Reason("connection is not open")
	}
	if err := c.session.Send(ctx, req); err != nil {
		return nil, errors.Annotate(err, "failed to send %s", req.Name())
	}
	var response []Message
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		event, err := c.session.NextEvent(ctx, c.pollWait)
		if err != nil {
			return nil, errors.Annotate(err, "failed to poll for the next event")
		}
		for _, msg := range event.Messages {
			if err := checkMessage(msg); err != nil {
				return nil, err
			}
			if msg.Type == req.ResponseName() {
				response = append(response, msg)
				continue
			}
			logging.Debugf(ctx, "ignoring message of type '%s'", msg.Type)
		}
		if event.Kind == ResponseEvent {
			break
		}
	}
	return response, nil
}
