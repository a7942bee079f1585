// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package feed

import (
	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo"

	corehttp "github.com/juju/podsync/core/http"
)

var logger = loggo.GetLogger("podsync.feed")

// Logger represents the methods used by the client to log information.
type Logger interface {
	Errorf(string, ...interface{})
	Warningf(string, ...interface{})
	Debugf(string, ...interface{})
	Tracef(string, ...interface{})
	IsTraceEnabled() bool
}

// Config defines the operation of a Client.
type Config struct {
	// HTTPClient is used for sessions that do not bring their own.
	HTTPClient corehttp.HTTPClient

	// Clock is used to expire cached feeds.
	Clock clock.Clock

	// Logger is optional, the package logger is used when nil.
	Logger Logger

	// Metrics is optional.
	Metrics *Collector

	// ErrorParser extracts messages from error responses. It is optional,
	// DefaultErrorParser is used when nil.
	ErrorParser ErrorParser

	// MaxConcurrentFetches bounds how many pods are fetched from at once
	// by FetchAll. Zero means no bound.
	MaxConcurrentFetches int
}

// Validate returns an error if config cannot drive a Client.
func (config Config) Validate() error {
	if config.HTTPClient == nil {
		return errors.NotValidf("nil HTTPClient")
	}
	if config.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	if config.MaxConcurrentFetches < 0 {
		return errors.NotValidf("negative MaxConcurrentFetches %d", config.MaxConcurrentFetches)
	}
	return nil
}
