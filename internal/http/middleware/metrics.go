package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// unmatchedRoute labels requests that matched no route, so scanners probing
// random URLs cannot grow the label space.
const unmatchedRoute = "<unmatched>"

var (
	httpReqs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "contactlog",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route pattern and status code.",
	}, []string{"method", "path", "status"})

	httpLat = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "contactlog",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method and route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	httpInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "contactlog",
		Subsystem: "http",
		Name:      "requests_inflight",
		Help:      "HTTP requests currently being served.",
	})

	// 256B up to 4MiB; the spreadsheet export fills the top buckets.
	httpRespSize = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "contactlog",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response body size by method and route pattern.",
		Buckets:   prometheus.ExponentialBuckets(256, 4, 8),
	}, []string{"method", "path"})

	httpRateLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "contactlog",
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter, by route pattern.",
	}, []string{"path"})
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpRespSize, httpRateLimited)
}

// routeLabel is the matched route pattern, never the raw URL, so log ids do
// not end up in label values.
func routeLabel(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return unmatchedRoute
}

// Metrics records count, latency and body size per route, and the number of
// requests in flight. Mount /metrics with promhttp next to it.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		httpInflight.Inc()
		defer httpInflight.Dec()
		start := time.Now()

		c.Next()

		method, path := c.Request.Method, routeLabel(c)
		httpReqs.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpLat.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		// Size is -1 when no body was written (204, 304).
		if n := c.Writer.Size(); n >= 0 {
			httpRespSize.WithLabelValues(method, path).Observe(float64(n))
		}
	}
}
