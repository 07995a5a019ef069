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

package gateway

import (
	"context"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stockparfait/blpdata/blp"
	"github.com/stockparfait/blpdata/dates"
	"github.com/stockparfait/blpdata/frame"
	"github.com/stockparfait/fetch"
	"github.com/stockparfait/testutil"

	. "github.com/smartystreets/goconvey/convey"
)

func testConfig(serverURL string) Config {
	u, err := url.Parse(serverURL)
	So(err, ShouldBeNil)
	port, err := strconv.Atoi(u.Port())
	So(err, ShouldBeNil)
	return Config{Host: u.Hostname(), Port: port}
}

func TestGateway(t *testing.T) {
	t.Parallel()

	Convey("New applies default host and port", t, func() {
		s := New(Config{})
		So(s.base, ShouldEqual, "http://localhost:8194/api/v1")
	})

	Convey("Gateway calls work correctly", t, func() {
		server := testutil.NewTestServer()
		defer server.Close()
		ctx := fetch.UseClient(context.Background(), server.Client())
		s := New(testConfig(server.URL()))

		Convey("Start opens a session with a generated ID", func() {
			server.ResponseBody = []string{`{"session": ""}`}
			So(s.Start(ctx), ShouldBeNil)
			So(server.RequestPath, ShouldEqual, "/api/v1/session/open")
			So(s.id, ShouldNotEqual, "")
			So(server.RequestQuery["session"], ShouldResemble, []string{s.id})
		})

		Convey("Start prefers the gateway-assigned session ID", func() {
			server.ResponseBody = []string{`{"session": "sess-42"}`}
			So(s.Start(ctx), ShouldBeNil)
			So(s.id, ShouldEqual, "sess-42")
		})

		Convey("Stop closes the session", func() {
			server.ResponseBody = []string{`{"session": "sess-42"}`, `{"closed": true}`}
			So(s.Start(ctx), ShouldBeNil)
			So(s.Stop(ctx), ShouldBeNil)
			So(server.RequestPath, ShouldEqual, "/api/v1/session/close")
			So(server.RequestQuery["session"], ShouldResemble, []string{"sess-42"})
			So(s.id, ShouldEqual, "")
		})

		Convey("OpenService resolves the service", func() {
			server.ResponseBody = []string{`{"opened": true}`}
			So(s.OpenService(ctx, blp.RefDataService), ShouldBeNil)
			So(server.RequestPath, ShouldEqual, "/api/v1/services/open")
			So(server.RequestQuery["service"], ShouldResemble,
				[]string{blp.RefDataService})
		})

		Convey("OpenService fails when the gateway declines", func() {
			server.ResponseBody = []string{`{"opened": false}`}
			So(s.OpenService(ctx, blp.RefDataService), ShouldNotBeNil)
		})

		Convey("Send submits the encoded request under a correlation ID", func() {
			server.ResponseBody = []string{`{"accepted": true}`}
			req := blp.NewReferenceRequest(
				blp.List("CNR CN Equity", "CP CN Equity"), blp.One("LAST_PRICE"), nil)
			So(s.Send(ctx, req), ShouldBeNil)
			So(server.RequestPath, ShouldEqual, "/api/v1/request")
			So(server.RequestQuery["operation"], ShouldResemble,
				[]string{"ReferenceDataRequest"})
			So(server.RequestQuery["securities"], ShouldResemble,
				[]string{"CNR CN Equity,CP CN Equity"})
			So(server.RequestQuery["fields"], ShouldResemble, []string{"LAST_PRICE"})
			So(s.correlation, ShouldNotEqual, "")
			So(server.RequestQuery["correlation"], ShouldResemble,
				[]string{s.correlation})
		})

		Convey("Send fails when the gateway rejects the request", func() {
			server.ResponseBody = []string{`{"accepted": false}`}
			req := blp.NewReferenceRequest(blp.One("X"), blp.One("Y"), nil)
			So(s.Send(ctx, req), ShouldNotBeNil)
		})

		Convey("NextEvent decodes an event batch", func() {
			server.ResponseBody = []string{`{
				"event": "PARTIAL_RESPONSE",
				"messages": [{
					"messageType": "ReferenceDataResponse",
					"body": {
						"securityData": [{
							"security": "CNR CN Equity",
							"fieldData": {"LAST_PRICE": 80.5, "GOOD": true, "GONE": null}
						}]
					}
				}]
			}`}
			ev, err := s.NextEvent(ctx, 100*time.Millisecond)
			So(err, ShouldBeNil)
			So(server.RequestPath, ShouldEqual, "/api/v1/events")
			So(server.RequestQuery["timeout"], ShouldResemble, []string{"100"})
			So(ev.Kind, ShouldEqual, blp.PartialResponseEvent)
			So(len(ev.Messages), ShouldEqual, 1)

			msg := ev.Messages[0]
			So(msg.Type, ShouldEqual, "ReferenceDataResponse")
			sd, err := msg.Element("securityData")
			So(err, ShouldBeNil)
			So(sd.IsArray(), ShouldBeTrue)
			sec, err := sd.Value(0)
			So(err, ShouldBeNil)
			name, err := sec.Element("security")
			So(err, ShouldBeNil)
			So(name.AsString(), ShouldEqual, "CNR CN Equity")
			fieldData, err := sec.Element("fieldData")
			So(err, ShouldBeNil)
			px, err := fieldData.Element("LAST_PRICE")
			So(err, ShouldBeNil)
			So(px.AsCell(), ShouldResemble, frame.Number(80.5))
			good, err := fieldData.Element("GOOD")
			So(err, ShouldBeNil)
			So(good.AsCell(), ShouldResemble, frame.Bool(true))
			gone, err := fieldData.Element("GONE")
			So(err, ShouldBeNil)
			So(gone.AsCell(), ShouldResemble, frame.Missing())
		})

		Convey("NextEvent preserves the order of record columns", func() {
			server.ResponseBody = []string{`{
				"event": "RESPONSE",
				"messages": [{
					"messageType": "ReferenceDataResponse",
					"body": {
						"securityData": [{
							"security": "CIG CN Equity",
							"fieldData": {
								"EQY_DVD_ADJUST_FACT": [
									{"Adjustment Date": "2015-02-05", "Adjustment Factor": 0.5}
								]
							}
						}]
					}
				}]
			}`}
			ev, err := s.NextEvent(ctx, 100*time.Millisecond)
			So(err, ShouldBeNil)
			So(ev.Kind, ShouldEqual, blp.ResponseEvent)

			sd, err := ev.Messages[0].Element("securityData")
			So(err, ShouldBeNil)
			sec, err := sd.Value(0)
			So(err, ShouldBeNil)
			fieldData, err := sec.Element("fieldData")
			So(err, ShouldBeNil)
			bulk, err := fieldData.Element("EQY_DVD_ADJUST_FACT")
			So(err, ShouldBeNil)
			So(bulk.IsArray(), ShouldBeTrue)
			record, err := bulk.Value(0)
			So(err, ShouldBeNil)
			columns := record.Elements()
			So(len(columns), ShouldEqual, 2)
			So(columns[0].Name(), ShouldEqual, "Adjustment Date")
			So(columns[1].Name(), ShouldEqual, "Adjustment Factor")
		})

		Convey("NextEvent maps timeout and unknown kinds", func() {
			server.ResponseBody = []string{
				`{"event": "TIMEOUT"}`, `{"event": "SESSION_STATUS"}`}
			ev, err := s.NextEvent(ctx, 100*time.Millisecond)
			So(err, ShouldBeNil)
			So(ev.Kind, ShouldEqual, blp.TimeoutEvent)
			ev, err = s.NextEvent(ctx, 100*time.Millisecond)
			So(err, ShouldBeNil)
			So(ev.Kind, ShouldEqual, blp.OtherEvent)
		})
	})

	Convey("End-to-end history query through the gateway", t, func() {
		server := testutil.NewTestServer()
		defer server.Close()
		ctx := fetch.UseClient(context.Background(), server.Client())
		s := New(testConfig(server.URL()))

		server.ResponseBody = []string{
			`{"session": "sess-1"}`,
			`{"opened": true}`,
			`{"accepted": true}`,
			`{
				"event": "PARTIAL_RESPONSE",
				"messages": [{
					"messageType": "HistoricalDataResponse",
					"body": {
						"securityData": {
							"security": "BMO CN Equity",
							"fieldData": [
								{"date": "2015-01-05", "PX_LAST": 11.0},
								{"date": "2015-01-02", "PX_LAST": 10.5}
							]
						}
					}
				}]
			}`,
			`{"event": "RESPONSE"}`,
			`{"closed": true}`,
		}

		var f *frame.Frame
		err := blp.With(ctx, s, func(c *blp.Client) error {
			var err error
			f, err = c.History(ctx, blp.One("BMO CN Equity"), blp.One("PX_LAST"),
				dates.New(2015, 1, 1), dates.New(2015, 1, 31), nil)
			return err
		})
		So(err, ShouldBeNil)
		So(f.Columns(), ShouldResemble, []frame.Key{{Name: "PX_LAST"}})
		So(f.Rows(), ShouldResemble, []frame.RowKey{
			{Value: frame.Date(dates.New(2015, 1, 2))},
			{Value: frame.Date(dates.New(2015, 1, 5))},
		})
		So(f.At(0, 0), ShouldResemble, frame.Number(10.5))
		So(f.At(1, 0), ShouldResemble, frame.Number(11.0))
	})
}
