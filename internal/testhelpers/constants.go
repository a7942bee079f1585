// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package testhelpers holds values shared by the podsync test suites.
package testhelpers

import (
	"time"
)

// ShortWait is how long a test blocks waiting for something that should
// not happen, or gives a goroutine to reach a point it cannot signal.
const ShortWait = 50 * time.Millisecond

// LongWait bounds the wait for something that should already have
// happened. Passing tests never wait this long.
const LongWait = 10 * time.Second
