// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/gosuri/uitable"
	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/loggo"
	"gopkg.in/yaml.v3"

	"github.com/juju/podsync/cmd"
	corehttp "github.com/juju/podsync/core/http"
	"github.com/juju/podsync/internal/feed"
)

const fetchDoc = `
Fetch the lines of a feed from every pod given, newest first, and print
them grouped by pod. Pods that cannot be reached, or that answer with an
error, are reported alongside the lines of the others.

Pods and defaults for the options may also be read from a YAML file:

    path: /feed
    web-id: https://alice.example/profile/card#me
    max-concurrent-fetches: 4
    pods:
      - https://alice.example
      - https://bob.example

Options given on the command line take precedence over the file.

Examples:

    podsync --path /feed https://alice.example https://bob.example
    podsync --config pods.yaml --json --format tabular
`

// fetchConfig is the YAML form of the --config file.
type fetchConfig struct {
	Path                 string   `yaml:"path"`
	WebID                string   `yaml:"web-id"`
	MaxConcurrentFetches int      `yaml:"max-concurrent-fetches"`
	Pods                 []string `yaml:"pods"`
}

// fetchResult is one printed result.
type fetchResult struct {
	Pod   string `yaml:"pod" json:"pod"`
	Line  any    `yaml:"line,omitempty" json:"line,omitempty"`
	Error string `yaml:"error,omitempty" json:"error,omitempty"`
}

type fetchCommand struct {
	httpClient corehttp.HTTPClient
	clock      clock.Clock

	out                  cmd.Output
	config               cmd.FileVar
	path                 string
	webID                string
	maxConcurrentFetches int
	since                string
	decodeJSON           bool
	loggingConfig        string

	pods            []string
	ifModifiedSince time.Time
}

func newFetchCommand(httpClient corehttp.HTTPClient, clock clock.Clock) *fetchCommand {
	return &fetchCommand{
		httpClient: httpClient,
		clock:      clock,
	}
}

// Info implements cmd.Command.
func (c *fetchCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:    "podsync",
		Args:    "[<pod> ...]",
		Purpose: "Fetch a feed from many pods.",
		Doc:     fetchDoc,
	}
}

// SetFlags implements cmd.Command.
func (c *fetchCommand) SetFlags(f *gnuflag.FlagSet) {
	c.out.AddFlags(f, "yaml", map[string]cmd.Formatter{
		"yaml":    cmd.FormatYaml,
		"json":    cmd.FormatJson,
		"tabular": formatTabular,
		"lines":   formatLines,
	})
	f.Var(&c.config, "config", "Read pods and defaults from a YAML file")
	f.StringVar(&c.path, "path", "", "The path of the feed on each pod")
	f.StringVar(&c.webID, "web-id", "", "The identity to fetch as")
	f.IntVar(&c.maxConcurrentFetches, "max-concurrent-fetches", 0, "Fetch from at most this many pods at once (0 for no limit)")
	f.StringVar(&c.since, "since", "", "Only fetch lines added after this RFC 3339 time")
	f.BoolVar(&c.decodeJSON, "json", false, "Decode every line as JSON")
	f.StringVar(&c.loggingConfig, "logging-config", "", "Configure logging, for example \"podsync.feed=DEBUG\"")
}

// Init implements cmd.Command.
func (c *fetchCommand) Init(args []string) error {
	c.pods = args
	if c.since != "" {
		since, err := time.Parse(time.RFC3339Nano, c.since)
		if err != nil {
			return errors.NotValidf("--since %q", c.since)
		}
		c.ifModifiedSince = since
	}
	if c.maxConcurrentFetches < 0 {
		return errors.NotValidf("--max-concurrent-fetches %d", c.maxConcurrentFetches)
	}
	return nil
}

// Run implements cmd.Command.
func (c *fetchCommand) Run(ctx *cmd.Context) error {
	if c.loggingConfig != "" {
		if err := loggo.ConfigureLoggers(c.loggingConfig); err != nil {
			return errors.Annotate(err, "configuring logging")
		}
	}
	if err := c.readConfig(ctx); err != nil {
		return errors.Trace(err)
	}
	if len(c.pods) == 0 {
		return errors.New("no pods given")
	}
	if c.path == "" {
		return errors.New("no feed path given")
	}

	client, err := feed.NewClient(feed.Config{
		HTTPClient:           c.httpClient,
		Clock:                c.clock,
		MaxConcurrentFetches: c.maxConcurrentFetches,
	})
	if err != nil {
		return errors.Trace(err)
	}

	var results []fetchResult
	session := feed.Session{WebID: c.webID}
	opts := feed.Options{IfModifiedSince: c.ifModifiedSince}
	for result := range feed.FetchAll(ctx, client, c.path, c.pods, session, c.parseLine, opts) {
		results = append(results, fetchResult{
			Pod:   result.Pod,
			Line:  result.Value,
			Error: result.Message(),
		})
	}
	// Results of one pod keep their order.
	sort.SliceStable(results, func(i, j int) bool {
		return podIndex(c.pods, results[i].Pod) < podIndex(c.pods, results[j].Pod)
	})
	return errors.Trace(c.out.Write(ctx, results))
}

// readConfig fills in the options not given on the command line from the
// --config file, if any.
func (c *fetchCommand) readConfig(ctx *cmd.Context) error {
	if !c.config.IsSet() {
		return nil
	}
	r, err := c.config.Open(ctx)
	if err != nil {
		return errors.Annotate(err, "reading config")
	}
	defer func() { _ = r.Close() }()

	var config fetchConfig
	if err := yaml.NewDecoder(r).Decode(&config); err != nil && err != io.EOF {
		return errors.Annotatef(err, "parsing %s", c.config.Path)
	}
	if c.path == "" {
		c.path = config.Path
	}
	if c.webID == "" {
		c.webID = config.WebID
	}
	if c.maxConcurrentFetches == 0 {
		c.maxConcurrentFetches = config.MaxConcurrentFetches
	}
	c.pods = append(c.pods, config.Pods...)
	ctx.Infof("read %d pods from %s", len(config.Pods), c.config.Path)
	return nil
}

func (c *fetchCommand) parseLine(line, _ string) (any, error) {
	if !c.decodeJSON {
		return line, nil
	}
	var value any
	if err := json.Unmarshal([]byte(line), &value); err != nil {
		return nil, errors.Annotatef(err, "decoding %q", line)
	}
	return value, nil
}

func podIndex(pods []string, pod string) int {
	for i, p := range pods {
		if p == pod {
			return i
		}
	}
	return len(pods)
}

func formatTabular(value interface{}) ([]byte, error) {
	results, ok := value.([]fetchResult)
	if !ok {
		return nil, errors.Errorf("expected value of type %T, got %T", results, value)
	}
	table := uitable.New()
	table.MaxColWidth = 80
	table.Wrap = true
	table.AddRow("POD", "LINE", "ERROR")
	for _, result := range results {
		line := ""
		if result.Line != nil {
			line = fmt.Sprint(result.Line)
		}
		table.AddRow(result.Pod, line, result.Error)
	}
	return table.Bytes(), nil
}

// formatLines writes successful lines only, one per line.
func formatLines(value interface{}) ([]byte, error) {
	results, ok := value.([]fetchResult)
	if !ok {
		return nil, errors.Errorf("expected value of type %T, got %T", results, value)
	}
	var out []byte
	for _, result := range results {
		if result.Error != "" {
			continue
		}
		line, ok := result.Line.(string)
		if !ok {
			encoded, err := json.Marshal(result.Line)
			if err != nil {
				return nil, errors.Trace(err)
			}
			line = string(encoded)
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	return out, nil
}
