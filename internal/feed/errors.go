// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package feed

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/juju/errors"
)

const (
	// ErrProtocolViolation is returned when a pod answers in a way the
	// delta protocol does not allow: an unexpected status code, a delta
	// response without the expected instance manipulation, or a body that
	// cannot be read.
	ErrProtocolViolation = errors.ConstError("protocol violation")

	// ErrUpstream is returned when a pod answers with an error status.
	ErrUpstream = errors.ConstError("upstream error")
)

// maxErrorBodySize caps how much of an error response is read.
const maxErrorBodySize = 64 * 1024

// UpstreamError is the error returned when a pod answers with a non-success
// status. Its message is the one extracted from the response body.
type UpstreamError struct {
	StatusCode int
	Message    string
}

// Error implements error.
func (e *UpstreamError) Error() string {
	return e.Message
}

// Is allows errors.Is(err, ErrUpstream).
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

func protocolViolationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrProtocolViolation, fmt.Sprintf(format, args...))
}

// ErrorParser turns a non-success response into a human readable message.
type ErrorParser interface {
	ParseErrorResponse(*http.Response) string
}

// ErrorParserFunc adapts a function to the ErrorParser interface.
type ErrorParserFunc func(*http.Response) string

// ParseErrorResponse is part of the ErrorParser interface.
func (f ErrorParserFunc) ParseErrorResponse(resp *http.Response) string {
	return f(resp)
}

// DefaultErrorParser reads the message of an error response. JSON bodies
// with a "message" field yield that field, other non-empty bodies are used
// as is, and an empty body falls back to the status line.
var DefaultErrorParser ErrorParser = ErrorParserFunc(parseErrorResponse)

func parseErrorResponse(resp *http.Response) string {
	status := fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	if resp.Body == nil {
		return status
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil {
		return status
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		return status
	}
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Message != "" {
		return payload.Message
	}
	return text
}
