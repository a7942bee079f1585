// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package feed

import (
	"time"

	"github.com/juju/clock/testclock"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"
)

type cacheSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&cacheSuite{})

func (s *cacheSuite) TestLookupMissing(c *gc.C) {
	cache := NewCache(testclock.NewClock(epoch))
	_, ok := cache.Lookup(Key{URL: "https://pod.example/feed"})
	c.Check(ok, jc.IsFalse)
}

func (s *cacheSuite) TestStoreAndLookup(c *gc.C) {
	cache := NewCache(testclock.NewClock(epoch))
	key := Key{URL: "https://pod.example/feed", WebID: "alice"}
	entry := Entry{
		LastModified: epoch,
		Lines:        []string{"b", "a"},
	}
	cache.Store(key, entry)

	got, ok := cache.Lookup(key)
	c.Assert(ok, jc.IsTrue)
	c.Check(got, jc.DeepEquals, entry)

	_, ok = cache.Lookup(Key{URL: "https://pod.example/feed", WebID: "bob"})
	c.Check(ok, jc.IsFalse)
}

func (s *cacheSuite) TestStoreCopiesLines(c *gc.C) {
	cache := NewCache(testclock.NewClock(epoch))
	key := Key{URL: "https://pod.example/feed"}
	lines := []string{"a"}
	cache.Store(key, Entry{LastModified: epoch, Lines: lines})
	lines[0] = "changed"

	got, ok := cache.Lookup(key)
	c.Assert(ok, jc.IsTrue)
	c.Check(got.Lines, jc.DeepEquals, []string{"a"})
}

func (s *cacheSuite) TestExpiredEntryIsRemoved(c *gc.C) {
	clock := testclock.NewClock(epoch)
	cache := NewCache(clock)
	key := Key{URL: "https://pod.example/feed"}
	cache.Store(key, Entry{
		LastModified: epoch,
		Expires:      epoch.Add(time.Minute),
		Lines:        []string{"a"},
	})

	clock.Advance(time.Minute)
	_, ok := cache.Lookup(key)
	c.Check(ok, jc.IsTrue)

	clock.Advance(time.Second)
	_, ok = cache.Lookup(key)
	c.Check(ok, jc.IsFalse)
	c.Check(cache.Len(), gc.Equals, 0)
}

func (s *cacheSuite) TestEntryWithoutExpiryNeverExpires(c *gc.C) {
	clock := testclock.NewClock(epoch)
	cache := NewCache(clock)
	key := Key{URL: "https://pod.example/feed"}
	cache.Store(key, Entry{LastModified: epoch})

	clock.Advance(24 * 365 * time.Hour)
	_, ok := cache.Lookup(key)
	c.Check(ok, jc.IsTrue)
}

func (s *cacheSuite) TestClear(c *gc.C) {
	cache := NewCache(testclock.NewClock(epoch))
	key := Key{URL: "https://pod.example/feed"}
	cache.Store(key, Entry{LastModified: epoch})
	cache.Clear(key)

	_, ok := cache.Lookup(key)
	c.Check(ok, jc.IsFalse)
}

func (s *cacheSuite) TestKeyString(c *gc.C) {
	c.Check(Key{URL: "https://pod.example/feed"}.String(), gc.Equals, `{"url":"https://pod.example/feed"}`)
	c.Check(Key{URL: "https://pod.example/feed", WebID: "alice"}.String(), gc.Equals,
		`{"url":"https://pod.example/feed","webId":"alice"}`)
}
