package tracker

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports a Tracker's counters to Prometheus. Values are read from
// a snapshot at scrape time, so Reset is reflected immediately.
type Collector struct {
	t *Tracker

	requests      *prometheus.Desc
	latency       *prometheus.Desc
	cache         *prometheus.Desc
	rateLimitHits *prometheus.Desc
}

// NewCollector returns a Collector for t.
func NewCollector(t *Tracker) *Collector {
	return &Collector{
		t: t,
		requests: prometheus.NewDesc(
			"parley_requests",
			"Chat requests recorded since the last reset, by outcome",
			[]string{"outcome"}, nil,
		),
		latency: prometheus.NewDesc(
			"parley_request_latency_average_ms",
			"Running average chat request latency in milliseconds",
			nil, nil,
		),
		cache: prometheus.NewDesc(
			"parley_cache_lookups",
			"Response cache lookups since the last reset, by result",
			[]string{"result"}, nil,
		),
		rateLimitHits: prometheus.NewDesc(
			"parley_rate_limit_rejections",
			"Chat requests rejected by the local rate limiter",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.requests
	ch <- c.latency
	ch <- c.cache
	ch <- c.rateLimitHits
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	m := c.t.Metrics()
	// Counters can go back to zero on Reset, so they are exported as gauges.
	ch <- prometheus.MustNewConstMetric(c.requests, prometheus.GaugeValue, float64(m.SuccessfulRequests), "success")
	ch <- prometheus.MustNewConstMetric(c.requests, prometheus.GaugeValue, float64(m.FailedRequests), "failure")
	ch <- prometheus.MustNewConstMetric(c.latency, prometheus.GaugeValue, m.AverageLatencyMs)
	ch <- prometheus.MustNewConstMetric(c.cache, prometheus.GaugeValue, float64(m.CacheHits), "hit")
	ch <- prometheus.MustNewConstMetric(c.cache, prometheus.GaugeValue, float64(m.CacheMisses), "miss")
	ch <- prometheus.MustNewConstMetric(c.rateLimitHits, prometheus.GaugeValue, float64(m.RateLimitHits))
}
