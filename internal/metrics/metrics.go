// Package metrics exposes Prometheus metrics for parsing, model calls and the HTTP server.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nas/track-learning/internal/errors"
)

// Collector records tracker metrics on a Prometheus registry.
// It satisfies parse.Observer and llm.CallObserver.
type Collector struct {
	parses      *prometheus.CounterVec
	llmLatency  *prometheus.HistogramVec
	llmFailures *prometheus.CounterVec
	httpStatus  *prometheus.CounterVec
	httpLatency prometheus.Histogram
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		parses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_parse_total",
			Help: "Natural-language parse attempts by intent and outcome.",
		}, []string{"intent", "outcome"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tracker_llm_request_seconds",
			Help:    "Model round-trip latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		llmFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_llm_failures_total",
			Help: "Failed model round trips by provider.",
		}, []string{"provider"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_http_status_total",
			Help: "HTTP responses by status code.",
		}, []string{"status_code"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tracker_http_request_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.parses,
		c.llmLatency,
		c.llmFailures,
		c.httpStatus,
		c.httpLatency,
	)

	return c
}

// ObserveParse counts a parse attempt. The outcome is "ok" or the lower-cased error code.
func (c *Collector) ObserveParse(intent string, err error) {
	c.parses.WithLabelValues(intent, outcome(err)).Inc()
}

// ObserveLLMCall records the latency of one model round trip.
func (c *Collector) ObserveLLMCall(provider string, d time.Duration, err error) {
	c.llmLatency.WithLabelValues(provider).Observe(d.Seconds())
	if err != nil {
		c.llmFailures.WithLabelValues(provider).Inc()
	}
}

// RecordHTTPStatus counts a response by status code.
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordHTTPLatency records how long a request took to serve.
func (c *Collector) RecordHTTPLatency(d time.Duration) {
	c.httpLatency.Observe(d.Seconds())
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if tErr := errors.As(err); tErr != nil {
		return strings.ToLower(string(tErr.Code))
	}
	return "error"
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
