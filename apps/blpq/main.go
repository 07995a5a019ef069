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

// blpq queries market data through a local API gateway and prints the result
// as a text or CSV table.
package main

import (
	"context"
	"flag"
	"io"
	"os"
	"strings"

	"github.com/stockparfait/blpdata/blp"
	"github.com/stockparfait/blpdata/dates"
	"github.com/stockparfait/blpdata/frame"
	"github.com/stockparfait/blpdata/gateway"
	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"

	toml "github.com/pelletier/go-toml/v2"
)

type Flags struct {
	Config   string // optional TOML file with gateway connection parameters
	Host     string // overrides the config file
	Port     int    // overrides the config file
	LogLevel logging.Level
	// Exactly one of history, reference or bulk must be present.
	History    bool
	Reference  bool
	Bulk       bool
	Securities string // comma-separated identifiers (required)
	Fields     string // comma-separated field names (required)
	Start      string // start date, required for -history
	End        string // end date, required for -history
	Period     string // periodicity for -history; default: daily
	Describe   bool   // print summary statistics instead of the data
	CSV        bool   // dump CSV format; default: text
}

func parseFlags(args []string) (*Flags, error) {
	var flags Flags
	fs := flag.NewFlagSet("blpq", flag.ExitOnError)
	fs.StringVar(&flags.Config, "config", "", "TOML file with host and port")
	fs.StringVar(&flags.Host, "host", "", "gateway host; overrides -config")
	fs.IntVar(&flags.Port, "port", 0, "gateway port; overrides -config")
	flags.LogLevel = logging.Info
	fs.Var(&flags.LogLevel, "log-level", "Log level: debug, info, warning, error")
	fs.BoolVar(&flags.History, "history", false, "query a time series")
	fs.BoolVar(&flags.Reference, "reference", false, "query point-in-time values")
	fs.BoolVar(&flags.Bulk, "bulk", false, "query bulk reference data")
	fs.StringVar(&flags.Securities, "securities", "",
		"comma-separated security identifiers (required)")
	fs.StringVar(&flags.Fields, "fields", "",
		"comma-separated field names (required)")
	fs.StringVar(&flags.Start, "start", "", "start date for -history")
	fs.StringVar(&flags.End, "end", "", "end date for -history")
	fs.StringVar(&flags.Period, "period", "",
		"periodicity for -history: daily, weekly, monthly, quarterly, yearly")
	fs.BoolVar(&flags.Describe, "describe", false,
		"print summary statistics of the numeric columns")
	fs.BoolVar(&flags.CSV, "csv", false, "print table in CSV format; default: text")

	err := fs.Parse(args)
	if err != nil {
		return nil, err
	}
	kinds := 0
	if flags.History {
		kinds++
	}
	if flags.Reference {
		kinds++
	}
	if flags.Bulk {
		kinds++
	}
	if kinds != 1 {
		return nil, errors.Reason(
			"expected exactly one of -history, -reference or -bulk")
	}
	if flags.Securities == "" {
		return nil, errors.Reason("missing required -securities argument")
	}
	if flags.Fields == "" {
		return nil, errors.Reason("missing required -fields argument")
	}
	if flags.History && (flags.Start == "" || flags.End == "") {
		return nil, errors.Reason("-history requires both -start and -end")
	}
	return &flags, err
}

type Config struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

func parseConfig(filePath string) (*Config, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Annotate(err, "failed to open config file %s", filePath)
	}
	defer f.Close()

	d := toml.NewDecoder(f)
	var c Config
	if err := d.Decode(&c); err != nil {
		return nil, errors.Annotate(err, "failed to read config file %s", filePath)
	}
	return &c, nil
}

func gatewayConfig(flags *Flags) (gateway.Config, error) {
	var cfg gateway.Config
	if flags.Config != "" {
		c, err := parseConfig(flags.Config)
		if err != nil {
			return cfg, errors.Annotate(err, "failed to parse config")
		}
		cfg.Host = c.Host
		cfg.Port = c.Port
	}
	if flags.Host != "" {
		cfg.Host = flags.Host
	}
	if flags.Port != 0 {
		cfg.Port = flags.Port
	}
	return cfg, nil
}

// parseInput splits a comma-separated flag value. A single identifier is a
// scalar input, which keeps the single-column result flat.
func parseInput(s string) blp.Input {
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	if len(parts) == 1 {
		return blp.One(parts[0])
	}
	return blp.List(parts...)
}

func queryFrame(ctx context.Context, flags *Flags, c *blp.Client) (*frame.Frame, error) {
	securities := parseInput(flags.Securities)
	fields := parseInput(flags.Fields)
	if flags.History {
		start, err := dates.Parse(flags.Start)
		if err != nil {
			return nil, errors.Annotate(err, "failed to parse -start")
		}
		end, err := dates.Parse(flags.End)
		if err != nil {
			return nil, errors.Annotate(err, "failed to parse -end")
		}
		var opts blp.Options
		if flags.Period != "" {
			opts = blp.Options{
				"periodicitySelection": strings.ToUpper(flags.Period)}
		}
		return c.History(ctx, securities, fields, start, end, opts)
	}
	if flags.Reference {
		return c.Reference(ctx, securities, fields, nil)
	}
	return c.Bulk(ctx, securities, fields, nil)
}

func run(ctx context.Context, flags *Flags, w io.Writer) error {
	cfg, err := gatewayConfig(flags)
	if err != nil {
		return err
	}
	var f *frame.Frame
	err = blp.With(ctx, gateway.New(cfg), func(c *blp.Client) error {
		var err error
		f, err = queryFrame(ctx, flags, c)
		return err
	})
	if err != nil {
		return errors.Annotate(err, "query failed")
	}
	if flags.Describe {
		f = f.Describe()
	}
	if flags.CSV {
		if err := f.WriteCSV(w, frame.Params{}); err != nil {
			return errors.Annotate(err, "failed to print CSV")
		}
		return nil
	}
	if err := f.WriteText(w, frame.Params{}); err != nil {
		return errors.Annotate(err, "failed to print text")
	}
	return nil
}

func main() {
	ctx := context.Background()
	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		ctx = logging.Use(ctx, logging.DefaultGoLogger(logging.Info))
		logging.Errorf(ctx, "failed to parse flags: %s", err.Error())
		os.Exit(1)
	}
	ctx = logging.Use(ctx, logging.DefaultGoLogger(flags.LogLevel))

	if err := run(ctx, flags, os.Stdout); err != nil {
		logging.Errorf(ctx, err.Error())
		os.Exit(1)
	}
}
