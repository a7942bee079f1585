// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package feed

import (
	"context"

	"github.com/juju/errors"
	"golang.org/x/sync/singleflight"
)

// Coalescer makes sure there is at most one fetch in flight per key.
// Callers asking for a key while a fetch for it is running wait for that
// fetch and share its lines.
//
// Only the leader, the caller whose fetch actually ran, sees a failure.
// Followers of a failed fetch get an empty, successful result.
type Coalescer struct {
	group singleflight.Group
}

// Do runs fetch for key unless a fetch for key is already in flight, in
// which case it waits for that one. It reports whether the caller was the
// leader. A follower stops waiting when ctx is done; the leader's fetch is
// expected to honour its own context.
func (c *Coalescer) Do(ctx context.Context, key string, fetch func() ([]string, error)) ([]string, bool, error) {
	var (
		leader    bool
		leaderErr error
	)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		leader = true
		lines, err := fetch()
		if err != nil {
			leaderErr = err
			return []string(nil), nil
		}
		return lines, nil
	})

	select {
	case res := <-ch:
		if leader && leaderErr != nil {
			return nil, true, leaderErr
		}
		lines, _ := res.Val.([]string)
		return lines, leader, nil
	case <-ctx.Done():
		return nil, false, errors.Trace(ctx.Err())
	}
}
