// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package feed

import (
	"context"
	"iter"
	"net/url"
	"strings"

	"github.com/juju/errors"
	"gopkg.in/tomb.v2"
)

// Result is one outcome of a fan-in fetch: either a parsed line, or a
// failure tagged with the pod it came from.
type Result[T any] struct {
	// Value is the parsed line. It is the zero value for failures.
	Value T

	// Err is nil for successful results.
	Err error

	// Pod is the pod the result came from.
	Pod string
}

// OK returns true if the result holds a value.
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Message returns the failure message, or an empty string for values.
func (r Result[T]) Message() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// ParseFunc turns a line fetched from pod into a value.
type ParseFunc[T any] func(line, pod string) (T, error)

// FetchAll fetches the feed at path from every pod at once and parses each
// line with parse.
//
// A pod that is not a valid URL, or whose feed cannot be fetched, yields a
// single failure and nothing else. A line that fails to parse yields a
// failure and the pod's remaining lines are still parsed. Results from
// different pods are interleaved in no particular order. The sequence ends
// once every pod is done; stopping early cancels the fetches still running
// and waits for them to finish.
func FetchAll[T any](
	ctx context.Context,
	client *Client,
	path string,
	pods []string,
	session Session,
	parse ParseFunc[T],
	opts Options,
) iter.Seq[Result[T]] {
	return func(yield func(Result[T]) bool) {
		if len(pods) == 0 {
			return
		}

		var t tomb.Tomb
		ctx := t.Context(ctx)
		results := make(chan Result[T])
		send := func(result Result[T]) bool {
			select {
			case results <- result:
				return true
			case <-t.Dying():
				return false
			}
		}

		// Workers are started from within the tomb so that it cannot die
		// before the last of them has been added.
		t.Go(func() error {
			for _, pod := range pods {
				t.Go(func() error {
					fetchPod(ctx, client, path, pod, session, parse, opts, send)
					return nil
				})
			}
			return nil
		})
		go func() {
			_ = t.Wait()
			close(results)
		}()

		for result := range results {
			if !yield(result) {
				t.Kill(nil)
				break
			}
		}
		// Drain until every worker has gone, so none is left blocked.
		for range results {
		}
	}
}

func fetchPod[T any](
	ctx context.Context,
	client *Client,
	path, pod string,
	session Session,
	parse ParseFunc[T],
	opts Options,
	send func(Result[T]) bool,
) {
	feedURL, err := podFeedURL(pod, path)
	if err != nil {
		send(Result[T]{Err: err, Pod: pod})
		return
	}

	if err := client.limiter.Acquire(ctx); err != nil {
		send(Result[T]{Err: errors.Trace(err), Pod: pod})
		return
	}
	defer client.limiter.Release()

	for line, err := range client.Fetch(ctx, feedURL, session, opts) {
		if err != nil {
			client.logger.Warningf("fetching from pod %q: %v", pod, err)
			send(Result[T]{Err: err, Pod: pod})
			return
		}
		value, err := parse(line, pod)
		if err != nil {
			client.logger.Debugf("parsing line from pod %q: %v", pod, err)
			if !send(Result[T]{Err: err, Pod: pod}) {
				return
			}
			continue
		}
		if !send(Result[T]{Value: value, Pod: pod}) {
			return
		}
	}
}

// podFeedURL joins path onto the origin of pod. A leading "/" on path is
// optional. The host is kept as written, including an explicit default port.
func podFeedURL(pod, path string) (string, error) {
	u, err := url.Parse(pod)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", errors.NotValidf("pod URL %q", pod)
	}
	origin := u.Scheme + "://" + u.Host
	return origin + "/" + strings.TrimPrefix(path, "/"), nil
}
