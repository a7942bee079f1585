// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package localchanges broadcasts optimistic local mutations of objects,
// before they have been confirmed by a pod, and lets callers discover the
// objects those mutations produce as they happen.
package localchanges

import (
	"sync/atomic"
	"time"

	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"github.com/juju/loggo"
	"github.com/juju/pubsub/v2"

	"github.com/juju/podsync/core/object"
)

// changeTopic is the hub topic change events are published on. The data of
// every message is an object.ChangeEvent.
const changeTopic = "podsync.local-change"

var logger = loggo.GetLogger("podsync.localchanges")

// Logger represents the methods used by this package to log information.
type Logger interface {
	Errorf(string, ...interface{})
	Debugf(string, ...interface{})
	Tracef(string, ...interface{})
	IsTraceEnabled() bool
}

// Config holds the dependencies of a Changes.
type Config struct {
	// Logger is optional, the package logger is used when nil.
	Logger Logger

	// Hub carries change events to subscribers. It is optional, a hub
	// private to the Changes is created when nil.
	Hub *pubsub.SimpleHub
}

// Validate is part of the usual config idiom. Every field is optional, so
// any config is valid.
func (config Config) Validate() error {
	return nil
}

// Changes is the broadcast point for local changes. Every Put, Patch and
// Delete is turned into an object.ChangeEvent and handed to all current
// subscribers before the call returns. Subscribe describes the exception
// for calls made from a handler.
type Changes struct {
	logger Logger
	hub    *pubsub.SimpleHub

	// handling counts the Subscribe handlers currently running.
	handling atomic.Int32
}

// New returns a Changes built from config.
func New(config Config) (*Changes, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	c := &Changes{
		logger: config.Logger,
		hub:    config.Hub,
	}
	if c.logger == nil {
		c.logger = logger
	}
	if c.hub == nil {
		c.hub = pubsub.NewSimpleHub(&pubsub.SimpleHubConfig{
			Logger: loggo.GetLogger("podsync.localchanges.hub"),
		})
	}
	return c, nil
}

// Put announces that old has been replaced by draft. The new object keeps
// old's identity and modification time, takes draft's value, channels and
// acl, and is never a tombstone.
func (c *Changes) Put(draft object.LocalObject, old object.Object) {
	newObject := draft.Overlay(old)
	c.publish(object.ChangeEvent{Old: old, New: &newObject})
}

// Patch announces that patch has been applied to old. Each property with
// operations is replaced by the result of applying them to its current
// value; the others are kept. If any operation cannot be applied, the
// error is returned and nothing is announced.
func (c *Changes) Patch(patch object.Patch, old object.Object) error {
	newObject, err := applyPatch(patch, old)
	if err != nil {
		return errors.Trace(err)
	}
	c.publish(object.ChangeEvent{Old: old, New: &newObject})
	return nil
}

// Delete announces that old has been deleted.
func (c *Changes) Delete(old object.Object) {
	c.publish(object.ChangeEvent{Old: old})
}

// Subscribe calls handler with every change event published from now on,
// until the returned function is called. Events are handed to a handler
// one at a time, in the order they were published.
//
// A handler may itself Put, Patch or Delete. While any handler is running,
// those calls return without waiting for their events to be delivered.
func (c *Changes) Subscribe(handler func(object.ChangeEvent)) func() {
	return c.subscribe(func(event object.ChangeEvent) {
		c.handling.Add(1)
		defer c.handling.Add(-1)
		handler(event)
	})
}

// subscribe registers handler without marking it as running. It is for
// handlers that never publish.
func (c *Changes) subscribe(handler func(object.ChangeEvent)) func() {
	return c.hub.Subscribe(changeTopic, func(topic string, data interface{}) {
		event, ok := data.(object.ChangeEvent)
		if !ok {
			c.logger.Errorf("programming error: %s data expected object.ChangeEvent, got %T", topic, data)
			return
		}
		handler(event)
	})
}

// publish returns once every subscriber has handled the event, unless it
// is called while a handler runs. Waiting then could block on the calling
// handler itself.
func (c *Changes) publish(event object.ChangeEvent) {
	if c.logger.IsTraceEnabled() {
		newURL := "<deleted>"
		if event.New != nil {
			newURL = event.New.URL
		}
		c.logger.Tracef("publishing change of %q to %q", event.Old.URL, newURL)
	}
	wait := c.hub.Publish(changeTopic, event)
	if c.handling.Load() > 0 {
		return
	}
	wait()
}

// MatchOptions select the objects MatchObject accepts.
type MatchOptions struct {
	// Channels an object must share at least one of.
	Channels []string

	// IfModifiedSince, when set, excludes objects last modified before it.
	IfModifiedSince time.Time
}

// MatchObject reports whether obj was modified no earlier than
// opts.IfModifiedSince and is in at least one of opts.Channels.
func (c *Changes) MatchObject(obj object.Object, opts MatchOptions) bool {
	return newMatcher(opts).match(obj)
}

// matcher holds match options prepared for repeated use.
type matcher struct {
	channels        set.Strings
	ifModifiedSince time.Time
}

func newMatcher(opts MatchOptions) matcher {
	return matcher{
		channels:        set.NewStrings(opts.Channels...),
		ifModifiedSince: opts.IfModifiedSince,
	}
}

func (m matcher) match(obj object.Object) bool {
	if !m.ifModifiedSince.IsZero() && obj.LastModified.Before(m.ifModifiedSince) {
		return false
	}
	for _, channel := range obj.Channels {
		if m.channels.Contains(channel) {
			return true
		}
	}
	return false
}
