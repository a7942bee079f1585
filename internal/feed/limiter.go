// Copyright 2022 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package feed

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// fetchLimiter bounds how many pods a fan-in fetches from at once.
type fetchLimiter interface {
	// Acquire blocks until a fetch slot is free or ctx is done.
	Acquire(ctx context.Context) error

	// Release gives back a slot taken by Acquire.
	Release()
}

// newFetchLimiter returns a limiter allowing limit concurrent fetches. A
// limit of zero means no limit.
func newFetchLimiter(limit int) fetchLimiter {
	if limit <= 0 {
		return noopFetchLimiter{}
	}
	return &semaphoreFetchLimiter{
		lock: semaphore.NewWeighted(int64(limit)),
	}
}

type semaphoreFetchLimiter struct {
	lock *semaphore.Weighted
}

// Acquire is part of the fetchLimiter interface.
func (l *semaphoreFetchLimiter) Acquire(ctx context.Context) error {
	return l.lock.Acquire(ctx, 1)
}

// Release is part of the fetchLimiter interface.
func (l *semaphoreFetchLimiter) Release() {
	l.lock.Release(1)
}

// noopFetchLimiter never blocks.
type noopFetchLimiter struct{}

// Acquire is part of the fetchLimiter interface.
func (noopFetchLimiter) Acquire(context.Context) error { return nil }

// Release is part of the fetchLimiter interface.
func (noopFetchLimiter) Release() {}
