// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package http

import (
	"net/http"
)

// HTTPClient is the interface that is used to do http requests against
// pods. A session may carry its own HTTPClient, for example one that
// attaches credentials for the session's identity.
type HTTPClient interface {
	// Do sends an HTTP request and returns an HTTP response. The client will
	// follow policy (such as redirects, cookies, auth) as configured on the
	// client.
	Do(*http.Request) (*http.Response, error)
}

// HTTPClientFunc adapts an ordinary function to the HTTPClient interface.
type HTTPClientFunc func(*http.Request) (*http.Response, error)

// Do is part of the HTTPClient interface.
func (f HTTPClientFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}
