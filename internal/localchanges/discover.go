// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package localchanges

import (
	"context"
	"iter"
	"time"

	"github.com/juju/errors"
	"github.com/juju/worker/v4"
	"gopkg.in/tomb.v2"

	"github.com/juju/podsync/core/object"
)

// DiscoverOptions narrow what a DiscoveryWatcher reports.
type DiscoverOptions struct {
	// IfModifiedSince, when set, excludes objects last modified before it.
	IfModifiedSince time.Time
}

// Discover starts a watcher reporting the objects produced by local changes
// that are in at least one of channels and conform to schema.
//
// For every change the new object is reported if it qualifies. Otherwise
// the old object is reported if it qualifies, so that a consumer holding
// it learns it is no longer current. Changes where neither qualifies are
// skipped. Only changes published after Discover returns are seen.
func (c *Changes) Discover(channels []string, schema any, opts DiscoverOptions) (*DiscoveryWatcher, error) {
	validator, err := newValidator(schema)
	if err != nil {
		return nil, errors.Trace(err)
	}
	w := &DiscoveryWatcher{
		logger: c.logger,
		matcher: newMatcher(MatchOptions{
			Channels:        channels,
			IfModifiedSince: opts.IfModifiedSince,
		}),
		validator: validator,
		in:        make(chan object.Object),
		changes:   make(chan object.Object),
	}
	unsubscribe := c.subscribe(w.onChange)
	w.tomb.Go(func() error {
		return w.loop(unsubscribe)
	})
	return w, nil
}

// DiscoveryWatcher reports discovered objects on its Changes channel until
// it is stopped. Objects are queued while the consumer is not reading, so
// publishers are never held up by a slow consumer.
type DiscoveryWatcher struct {
	tomb      tomb.Tomb
	logger    Logger
	matcher   matcher
	validator *validator

	in      chan object.Object
	changes chan object.Object
}

var _ worker.Worker = (*DiscoveryWatcher)(nil)

// Changes returns the channel discovered objects are sent on. It is closed
// once the watcher has stopped.
func (w *DiscoveryWatcher) Changes() <-chan object.Object {
	return w.changes
}

// Kill is part of the worker.Worker interface.
func (w *DiscoveryWatcher) Kill() {
	w.tomb.Kill(nil)
}

// Wait is part of the worker.Worker interface.
func (w *DiscoveryWatcher) Wait() error {
	return w.tomb.Wait()
}

// Stop kills the watcher and waits for it to finish. Once Stop returns the
// watcher no longer receives changes, and objects not yet read from
// Changes are dropped.
func (w *DiscoveryWatcher) Stop() error {
	w.Kill()
	return w.Wait()
}

// All returns the discovered objects as a sequence. The sequence ends when
// ctx is done or the watcher stops, and the watcher is stopped when the
// sequence ends.
func (w *DiscoveryWatcher) All(ctx context.Context) iter.Seq[object.Object] {
	return func(yield func(object.Object) bool) {
		defer func() { _ = w.Stop() }()
		for {
			select {
			case <-ctx.Done():
				return
			case obj, ok := <-w.changes:
				if !ok || !yield(obj) {
					return
				}
			}
		}
	}
}

func (w *DiscoveryWatcher) onChange(event object.ChangeEvent) {
	obj, ok := w.pick(event)
	if !ok {
		return
	}
	select {
	case w.in <- obj:
	case <-w.tomb.Dying():
	}
}

// pick returns the object a change event should report, if any.
func (w *DiscoveryWatcher) pick(event object.ChangeEvent) (object.Object, bool) {
	if event.New != nil && w.accepts(*event.New) {
		return event.New.Copy(), true
	}
	if w.accepts(event.Old) {
		return event.Old.Copy(), true
	}
	return object.Object{}, false
}

func (w *DiscoveryWatcher) accepts(obj object.Object) bool {
	if !w.matcher.match(obj) {
		return false
	}
	if err := w.validator.validate(obj); err != nil {
		w.logger.Tracef("skipping %v", err)
		return false
	}
	return true
}

func (w *DiscoveryWatcher) loop(unsubscribe func()) error {
	defer close(w.changes)
	defer unsubscribe()

	var pending []object.Object
	for {
		var (
			out  chan<- object.Object
			next object.Object
		)
		if len(pending) > 0 {
			out = w.changes
			next = pending[0]
		}
		select {
		case <-w.tomb.Dying():
			w.logger.Debugf("discovery stopped, dropping %d undelivered objects", len(pending))
			return tomb.ErrDying
		case obj := <-w.in:
			pending = append(pending, obj)
		case out <- next:
			pending = pending[1:]
		}
	}
}
