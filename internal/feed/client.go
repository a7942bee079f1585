// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package feed

import (
	"context"
	"iter"
	"net/http"
	"time"

	"github.com/juju/errors"
	"github.com/kr/pretty"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	corehttp "github.com/juju/podsync/core/http"
	"github.com/juju/podsync/internal/linereader"
)

const tracerName = "github.com/juju/podsync/internal/feed"

// Session is the identity a feed is fetched as.
type Session struct {
	// WebID identifies the requesting actor. Feeds fetched by different
	// actors are cached separately.
	WebID string

	// HTTPClient, when set, is used instead of the client's own, for
	// example to authenticate requests as WebID.
	HTTPClient corehttp.HTTPClient
}

// Options alter a single fetch.
type Options struct {
	// IfModifiedSince, when set, is used as the baseline of a delta
	// request instead of the cached one. The cached lines are then not
	// merged into the result.
	IfModifiedSince time.Time
}

// Client fetches line feeds from pods. It remembers the last state of each
// feed so that later fetches only transfer the lines prepended since, and
// it shares one request between concurrent fetches of the same feed.
type Client struct {
	config      Config
	logger      Logger
	errorParser ErrorParser
	tracer      trace.Tracer

	cache     *Cache
	coalescer Coalescer
	limiter   fetchLimiter
}

// NewClient returns a Client backed by config, or an error.
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	c := &Client{
		config:      config,
		logger:      config.Logger,
		errorParser: config.ErrorParser,
		tracer:      otel.Tracer(tracerName),
		cache:       NewCache(config.Clock),
		limiter:     newFetchLimiter(config.MaxConcurrentFetches),
	}
	if c.logger == nil {
		c.logger = logger
	}
	if c.errorParser == nil {
		c.errorParser = DefaultErrorParser
	}
	return c, nil
}

// Cache returns the cache of feed states held by the client.
func (c *Client) Cache() *Cache {
	return c.cache
}

// Fetch returns the lines of the feed at url, newest first.
//
// Nothing is requested until the sequence is ranged over. When another
// fetch of the same feed is already in flight, its lines are replayed
// instead of sending a second request; if that fetch fails, the sequence
// is empty. Otherwise a failure is yielded once, with an empty line, and
// ends the sequence.
func (c *Client) Fetch(ctx context.Context, url string, session Session, opts Options) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		key := Key{URL: url, WebID: session.WebID}
		lines, leader, err := c.coalescer.Do(ctx, key.String(), func() ([]string, error) {
			return c.fetch(ctx, key, session, opts)
		})
		if err != nil {
			yield("", err)
			return
		}
		if !leader {
			c.config.Metrics.recordCoalesced()
			c.logger.Debugf("joined in flight fetch of %q, %d lines", url, len(lines))
		}
		for _, line := range lines {
			if !yield(line, nil) {
				return
			}
		}
	}
}

// fetch sends the request for a feed, merges the response with the cached
// lines and updates the cache.
func (c *Client) fetch(ctx context.Context, key Key, session Session, opts Options) (_ []string, err error) {
	ctx, span := c.tracer.Start(ctx, "feed.Fetch", trace.WithAttributes(
		attribute.String("feed.url", key.URL),
		attribute.String("feed.webid", key.WebID),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var (
		baseline time.Time
		cached   []string
	)
	if !opts.IfModifiedSince.IsZero() {
		baseline = opts.IfModifiedSince
	} else {
		entry, result := c.cache.lookup(key)
		c.config.Metrics.recordCacheLookup(result)
		if result == lookupHit {
			baseline = entry.LastModified
			cached = entry.Lines
		}
		c.logger.Debugf("cache %s for %q", result, key.URL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, key.URL, nil)
	if err != nil {
		c.config.Metrics.recordRequest(resultError)
		return nil, errors.Annotatef(err, "creating request for %q", key.URL)
	}
	delta := !baseline.IsZero()
	if delta {
		req.Header.Set("A-IM", "prepend")
		req.Header.Set("If-Modified-Since", formatTimestamp(baseline))
	}
	span.SetAttributes(attribute.Bool("feed.delta", delta))
	if c.logger.IsTraceEnabled() {
		c.logger.Tracef("GET %s headers: %s", key.URL, pretty.Sprint(req.Header))
	}

	client := session.HTTPClient
	if client == nil {
		client = c.config.HTTPClient
	}
	resp, err := client.Do(req)
	if err != nil {
		c.config.Metrics.recordRequest(resultError)
		return nil, errors.Annotatef(err, "fetching %q", key.URL)
	}
	if resp.Body == nil {
		resp.Body = http.NoBody
	}
	defer func() { _ = resp.Body.Close() }()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent {
		c.cache.Clear(key)
		cached = nil
	}

	newLines, result, err := c.readResponse(ctx, resp)
	c.config.Metrics.recordRequest(result)
	if err != nil {
		c.logger.Debugf("fetching %q failed: %v", key.URL, err)
		return nil, errors.Annotatef(err, "fetching %q", key.URL)
	}
	c.config.Metrics.recordLines(len(newLines))

	lines := make([]string, 0, len(newLines)+len(cached))
	lines = append(lines, newLines...)
	lines = append(lines, cached...)

	now := c.config.Clock.Now()
	if lastModified, ok := parseTimestamp(resp.Header.Get("Last-Modified")); ok {
		entry := Entry{
			LastModified: lastModified,
			Lines:        lines,
		}
		if maxAge, ok := maxAge(resp.Header.Values("Cache-Control")); ok {
			entry.Expires = now.Add(maxAge)
		}
		c.cache.Store(key, entry)
		if c.logger.IsTraceEnabled() {
			c.logger.Tracef("cached %q: %s", key.URL, pretty.Sprint(entry))
		}
	}
	c.logger.Debugf("fetched %q: status %d, %d new lines, %d cached lines", key.URL, resp.StatusCode, len(newLines), len(cached))
	return lines, nil
}

// readResponse checks the status of a response and reads its lines. It also
// returns the result to record in the request metrics.
func (c *Client) readResponse(ctx context.Context, resp *http.Response) ([]string, string, error) {
	code := resp.StatusCode
	switch {
	case code == http.StatusNoContent:
		return nil, resultNoContent, nil
	case code == http.StatusNotModified:
		return nil, resultNotModified, nil
	case code < 200 || code > 299:
		return nil, resultError, &UpstreamError{
			StatusCode: code,
			Message:    c.errorParser.ParseErrorResponse(resp),
		}
	case code != http.StatusOK && code != http.StatusIMUsed:
		return nil, resultError, protocolViolationf("unexpected status code: %d", code)
	}

	result := resultFull
	if code == http.StatusIMUsed {
		if err := checkDeltaHeaders(resp.Header); err != nil {
			return nil, resultError, errors.Trace(err)
		}
		result = resultDelta
	}

	lines, err := linereader.Collect(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, resultError, errors.Trace(ctxErr)
		}
		return nil, resultError, protocolViolationf("reading response body: %v", err)
	}
	return lines, result, nil
}
