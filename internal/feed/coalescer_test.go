// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package feed

import (
	"context"
	"time"

	"github.com/juju/errors"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/juju/podsync/internal/testhelpers"
)

type coalescerSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&coalescerSuite{})

type doResult struct {
	lines  []string
	leader bool
	err    error
}

// startLeader runs a fetch for key that blocks until release is closed, and
// waits for it to be in flight.
func (s *coalescerSuite) startLeader(c *gc.C, coalescer *Coalescer, key string, lines []string, err error, release <-chan struct{}) <-chan doResult {
	started := make(chan struct{})
	done := make(chan doResult, 1)
	go func() {
		lines, leader, err := coalescer.Do(context.Background(), key, func() ([]string, error) {
			close(started)
			<-release
			return lines, err
		})
		done <- doResult{lines, leader, err}
	}()
	select {
	case <-started:
	case <-time.After(testhelpers.LongWait):
		c.Fatal("leader fetch did not start")
	}
	return done
}

func (s *coalescerSuite) startFollower(c *gc.C, coalescer *Coalescer, key string) <-chan doResult {
	done := make(chan doResult, 1)
	go func() {
		lines, leader, err := coalescer.Do(context.Background(), key, func() ([]string, error) {
			c.Errorf("follower fetch must not run")
			return nil, nil
		})
		done <- doResult{lines, leader, err}
	}()
	// Give the follower a chance to join before the leader settles.
	time.Sleep(testhelpers.ShortWait)
	return done
}

func (s *coalescerSuite) wait(c *gc.C, done <-chan doResult) doResult {
	select {
	case result := <-done:
		return result
	case <-time.After(testhelpers.LongWait):
		c.Fatal("fetch did not finish")
	}
	panic("unreachable")
}

func (s *coalescerSuite) TestSingleCaller(c *gc.C) {
	var coalescer Coalescer
	lines, leader, err := coalescer.Do(context.Background(), "key", func() ([]string, error) {
		return []string{"a", "b"}, nil
	})
	c.Assert(err, jc.ErrorIsNil)
	c.Check(leader, jc.IsTrue)
	c.Check(lines, jc.DeepEquals, []string{"a", "b"})
}

func (s *coalescerSuite) TestFollowerSharesResult(c *gc.C) {
	var coalescer Coalescer
	release := make(chan struct{})
	leaderDone := s.startLeader(c, &coalescer, "key", []string{"a", "b"}, nil, release)
	followerDone := s.startFollower(c, &coalescer, "key")
	close(release)

	leader := s.wait(c, leaderDone)
	c.Assert(leader.err, jc.ErrorIsNil)
	c.Check(leader.leader, jc.IsTrue)
	c.Check(leader.lines, jc.DeepEquals, []string{"a", "b"})

	follower := s.wait(c, followerDone)
	c.Assert(follower.err, jc.ErrorIsNil)
	c.Check(follower.leader, jc.IsFalse)
	c.Check(follower.lines, jc.DeepEquals, []string{"a", "b"})
}

func (s *coalescerSuite) TestFollowerSeesEmptyResultWhenLeaderFails(c *gc.C) {
	var coalescer Coalescer
	release := make(chan struct{})
	leaderDone := s.startLeader(c, &coalescer, "key", nil, errors.New("boom"), release)
	followerDone := s.startFollower(c, &coalescer, "key")
	close(release)

	leader := s.wait(c, leaderDone)
	c.Check(leader.err, gc.ErrorMatches, "boom")
	c.Check(leader.leader, jc.IsTrue)

	follower := s.wait(c, followerDone)
	c.Assert(follower.err, jc.ErrorIsNil)
	c.Check(follower.leader, jc.IsFalse)
	c.Check(follower.lines, gc.HasLen, 0)
}

func (s *coalescerSuite) TestLockIsRemovedAfterFailure(c *gc.C) {
	var coalescer Coalescer
	_, _, err := coalescer.Do(context.Background(), "key", func() ([]string, error) {
		return nil, errors.New("boom")
	})
	c.Assert(err, gc.ErrorMatches, "boom")

	lines, leader, err := coalescer.Do(context.Background(), "key", func() ([]string, error) {
		return []string{"again"}, nil
	})
	c.Assert(err, jc.ErrorIsNil)
	c.Check(leader, jc.IsTrue)
	c.Check(lines, jc.DeepEquals, []string{"again"})
}

func (s *coalescerSuite) TestDistinctKeysDoNotShare(c *gc.C) {
	var coalescer Coalescer
	release := make(chan struct{})
	leaderDone := s.startLeader(c, &coalescer, "one", []string{"a"}, nil, release)

	lines, leader, err := coalescer.Do(context.Background(), "two", func() ([]string, error) {
		return []string{"b"}, nil
	})
	c.Assert(err, jc.ErrorIsNil)
	c.Check(leader, jc.IsTrue)
	c.Check(lines, jc.DeepEquals, []string{"b"})

	close(release)
	c.Check(s.wait(c, leaderDone).lines, jc.DeepEquals, []string{"a"})
}

func (s *coalescerSuite) TestFollowerStopsWaitingOnCancel(c *gc.C) {
	var coalescer Coalescer
	release := make(chan struct{})
	defer close(release)
	s.startLeader(c, &coalescer, "key", []string{"a"}, nil, release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, leader, err := coalescer.Do(ctx, "key", func() ([]string, error) {
		c.Errorf("follower fetch must not run")
		return nil, nil
	})
	c.Check(errors.Is(err, context.Canceled), jc.IsTrue)
	c.Check(leader, jc.IsFalse)
}
