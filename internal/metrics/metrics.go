// Package metrics exposes Prometheus collectors for the page watcher.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	runsTotal                  *prometheus.CounterVec
	classificationsTotal       *prometheus.CounterVec
	notificationsTotal         *prometheus.CounterVec
	runDurationSeconds         prometheus.Histogram
	lastSuccessTimestamp       prometheus.Gauge
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		runsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagewatch_runs_total",
				Help: "Total number of page checks, labeled by site and terminal state.",
			},
			[]string{"site", "state"},
		)

		classificationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagewatch_classifications_total",
				Help: "Total number of completed checks, labeled by detection outcome.",
			},
			[]string{"classification"},
		)

		notificationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagewatch_notifications_total",
				Help: "Total number of notification attempts, labeled by sink and result.",
			},
			[]string{"sink", "result"},
		)

		runDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pagewatch_run_duration_seconds",
				Help:    "Histogram of end-to-end page check durations.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
		)

		lastSuccessTimestamp = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "pagewatch_last_success_timestamp_seconds",
				Help: "Unix time of the last check that reached the done state.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRun records one finished check. classification is empty for failed runs.
func ObserveRun(site, state, classification string, duration time.Duration, finishedAt time.Time) {
	Init()
	runsTotal.WithLabelValues(SanitizeSite(site), state).Inc()
	runDurationSeconds.Observe(duration.Seconds())
	if classification != "" {
		classificationsTotal.WithLabelValues(classification).Inc()
	}
	if state == "done" {
		lastSuccessTimestamp.Set(float64(finishedAt.Unix()))
	}
}

// ObserveNotification records a notification attempt.
func ObserveNotification(sink string, err error) {
	Init()
	result := "success"
	if err != nil {
		result = "failure"
	}
	notificationsTotal.WithLabelValues(sink, result).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Push sends the default registry to a Prometheus Pushgateway under job.
// One-shot runs exit before any scrape, so this is how they report.
func Push(ctx context.Context, gatewayURL, job string) error {
	if gatewayURL == "" {
		return nil
	}
	if job == "" {
		job = "pagewatch"
	}
	if err := push.New(gatewayURL, job).Gatherer(prometheus.DefaultGatherer).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
