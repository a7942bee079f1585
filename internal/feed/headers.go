// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package feed

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/juju/errors"
)

// timestampLayout is ISO 8601 in UTC with millisecond precision, the form
// pods expect in If-Modified-Since.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// parseTimestamp accepts HTTP dates as well as RFC 3339 timestamps.
func parseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if t, err := http.ParseTime(value); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// tokens splits comma separated header values into trimmed, non-empty
// tokens.
func tokens(values []string) []string {
	var result []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				result = append(result, part)
			}
		}
	}
	return result
}

// hasToken reports whether any token, ignoring parameters, is name.
func hasToken(values []string, name string) bool {
	for _, token := range tokens(values) {
		token, _, _ = strings.Cut(token, ";")
		token, _, _ = strings.Cut(token, "=")
		if strings.EqualFold(strings.TrimSpace(token), name) {
			return true
		}
	}
	return false
}

const maxAgeLimit = math.MaxInt64 / int64(time.Second)

// maxAge returns the positive max-age directive of Cache-Control values.
func maxAge(values []string) (time.Duration, bool) {
	for _, token := range tokens(values) {
		name, value, ok := strings.Cut(token, "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), "max-age") {
			continue
		}
		seconds, err := strconv.ParseInt(strings.Trim(strings.TrimSpace(value), `"`), 10, 64)
		if errors.Is(err, strconv.ErrRange) && seconds > 0 {
			err = nil
		}
		if err != nil || seconds <= 0 {
			return 0, false
		}
		// Durations cap out at about 292 years.
		seconds = min(seconds, maxAgeLimit)
		return time.Duration(seconds) * time.Second, true
	}
	return 0, false
}

// checkDeltaHeaders verifies that a 226 response is a prepend delta.
func checkDeltaHeaders(header http.Header) error {
	if !hasToken(header.Values("IM"), "prepend") {
		return protocolViolationf("unrecognized instance manipulation for delta updates")
	}
	if !hasToken(header.Values("Cache-Control"), "im") {
		return protocolViolationf("missing Cache-Control 'im' directive for delta updates")
	}
	return nil
}
