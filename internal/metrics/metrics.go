// Package metrics holds the Prometheus collectors for the utterance
// server and pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for one server instance.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Pipeline metrics
	StageDuration   *prometheus.HistogramVec
	UtterancesBuilt prometheus.Counter
}

// NewCollector creates a collector with its own registry, so several
// instances can coexist in one process.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"op", "status"},
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
		[]string{"stage"},
	)

	built := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "utterances_built_total",
			Help:      "Total number of utterances built",
		},
	)

	registry.MustRegister(requests, requestDuration, stageDuration, built)

	return &Collector{
		registry:        registry,
		Requests:        requests,
		RequestDuration: requestDuration,
		StageDuration:   stageDuration,
		UtterancesBuilt: built,
	}
}

// ObserveRequest records one finished request.
func (c *Collector) ObserveRequest(op string, status int, d time.Duration) {
	c.Requests.WithLabelValues(op, strconv.Itoa(status)).Inc()
	c.RequestDuration.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveStage records one stage run. Its signature matches
// pipeline.WithStageHook.
func (c *Collector) ObserveStage(stage string, d time.Duration) {
	c.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// AddUtterances counts n built utterances.
func (c *Collector) AddUtterances(n int) {
	c.UtterancesBuilt.Add(float64(n))
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
