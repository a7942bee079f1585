// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package feed

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "podsync_feed"

// Request results, as recorded by the requests_total metric.
const (
	resultFull        = "full"
	resultDelta       = "delta"
	resultNotModified = "not_modified"
	resultNoContent   = "no_content"
	resultError       = "error"
)

// Collector is a prometheus.Collector that collects metrics about the
// feed client.
type Collector struct {
	requests     *prometheus.CounterVec
	coalesced    prometheus.Counter
	cacheLookups *prometheus.CounterVec
	lines        prometheus.Counter
}

// NewMetricsCollector returns a new Collector.
func NewMetricsCollector() *Collector {
	return &Collector{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "requests_total",
				Help:      "The number of feed requests sent to pods, by result.",
			}, []string{"result"},
		),
		coalesced: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "coalesced_total",
				Help:      "The number of fetches served by joining a request already in flight.",
			},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "cache_lookups_total",
				Help:      "The number of feed cache lookups, by result.",
			}, []string{"result"},
		),
		lines: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "lines_total",
				Help:      "The number of new lines received from pods.",
			},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.requests.Describe(ch)
	c.coalesced.Describe(ch)
	c.cacheLookups.Describe(ch)
	c.lines.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.requests.Collect(ch)
	c.coalesced.Collect(ch)
	c.cacheLookups.Collect(ch)
	c.lines.Collect(ch)
}

// The record methods accept a nil receiver so that the client does not
// need to check whether metrics are enabled.

func (c *Collector) recordRequest(result string) {
	if c == nil {
		return
	}
	c.requests.WithLabelValues(result).Inc()
}

func (c *Collector) recordCoalesced() {
	if c == nil {
		return
	}
	c.coalesced.Inc()
}

func (c *Collector) recordCacheLookup(result lookupResult) {
	if c == nil {
		return
	}
	c.cacheLookups.WithLabelValues(string(result)).Inc()
}

func (c *Collector) recordLines(n int) {
	if c == nil {
		return
	}
	c.lines.Add(float64(n))
}
