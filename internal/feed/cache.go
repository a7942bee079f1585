// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package feed

import (
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/juju/clock"
)

// Key identifies one logical feed: a URL as seen by one identity.
type Key struct {
	URL   string
	WebID string
}

// String returns a stable encoding of the key.
func (k Key) String() string {
	b, _ := json.Marshal(struct {
		URL   string `json:"url"`
		WebID string `json:"webId,omitempty"`
	}{k.URL, k.WebID})
	return string(b)
}

// Entry is the known state of a feed as of LastModified. Lines are ordered
// newest delta first.
type Entry struct {
	LastModified time.Time
	// Expires is the zero time when the entry never expires.
	Expires time.Time
	Lines   []string
}

type lookupResult string

const (
	lookupHit     lookupResult = "hit"
	lookupMiss    lookupResult = "miss"
	lookupExpired lookupResult = "expired"
)

// Cache holds the last known state of every feed fetched. Entries only
// leave the cache when they expire or are cleared.
type Cache struct {
	clock clock.Clock

	mu      sync.Mutex
	entries map[Key]Entry
}

// NewCache returns an empty cache that uses clock to decide expiry.
func NewCache(clock clock.Clock) *Cache {
	return &Cache{
		clock:   clock,
		entries: make(map[Key]Entry),
	}
}

// Lookup returns the entry for key. An entry past its expiry is removed
// and reported as absent.
func (c *Cache) Lookup(key Key) (Entry, bool) {
	entry, result := c.lookup(key)
	return entry, result == lookupHit
}

func (c *Cache) lookup(key Key) (Entry, lookupResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return Entry{}, lookupMiss
	}
	if !entry.Expires.IsZero() && c.clock.Now().After(entry.Expires) {
		delete(c.entries, key)
		return Entry{}, lookupExpired
	}
	return entry, lookupHit
}

// Store records entry for key, replacing any previous entry.
func (c *Cache) Store(key Key, entry Entry) {
	entry.Lines = slices.Clone(entry.Lines)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry
}

// Clear forgets the entry for key.
func (c *Cache) Clear(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len returns the number of entries held, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
