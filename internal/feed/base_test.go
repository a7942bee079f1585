// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package feed

import (
	"io"
	"iter"
	"net/http"
	"strings"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/juju/loggo"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	"go.uber.org/mock/gomock"
	gc "gopkg.in/check.v1"
)

type baseSuite struct {
	testing.IsolationSuite

	clock      *testclock.Clock
	httpClient *MockHTTPClient
	metrics    *Collector
}

var epoch = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

func (s *baseSuite) SetUpTest(c *gc.C) {
	s.IsolationSuite.SetUpTest(c)
	s.clock = testclock.NewClock(epoch)
	s.metrics = NewMetricsCollector()
}

func (s *baseSuite) setupMocks(c *gc.C) *gomock.Controller {
	ctrl := gomock.NewController(c)
	s.httpClient = NewMockHTTPClient(ctrl)
	return ctrl
}

func (s *baseSuite) newClient(c *gc.C) *Client {
	client, err := NewClient(Config{
		HTTPClient: s.httpClient,
		Clock:      s.clock,
		Logger:     loggo.GetLogger("podsync.feed.test"),
		Metrics:    s.metrics,
	})
	c.Assert(err, jc.ErrorIsNil)
	return client
}

func response(status int, header http.Header, body string) *http.Response {
	if header == nil {
		header = make(http.Header)
	}
	return &http.Response{
		Status:     http.StatusText(status),
		StatusCode: status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func deltaHeader(lastModified time.Time) http.Header {
	return http.Header{
		"Im":            []string{"prepend"},
		"Cache-Control": []string{"im"},
		"Last-Modified": []string{lastModified.Format(http.TimeFormat)},
	}
}

func collect(seq iter.Seq2[string, error]) ([]string, error) {
	var lines []string
	for line, err := range seq {
		if err != nil {
			return lines, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}
