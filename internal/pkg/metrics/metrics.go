package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geogate",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "geogate",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "geogate",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Upstream metrics
	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geogate",
		Subsystem: "upstream",
		Name:      "requests_total",
		Help:      "Upstream attempts by strategy and outcome (ok, empty, error)",
	}, []string{"strategy", "outcome"})

	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "geogate",
		Subsystem: "upstream",
		Name:      "request_duration_seconds",
		Help:      "Duration of one upstream attempt including pagination",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 25, 60},
	}, []string{"strategy"})

	UpstreamPages = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "geogate",
		Subsystem: "upstream",
		Name:      "pages_fetched_total",
		Help:      "Pages fetched from paginated catalogs",
	})

	// Resolution metrics
	Resolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geogate",
		Subsystem: "resolve",
		Name:      "resolutions_total",
		Help:      "Resolved requests by layer and the source that answered",
	}, []string{"layer", "source"})

	ResolvedFeatures = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "geogate",
		Subsystem: "resolve",
		Name:      "features",
		Help:      "Features returned per request",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
	}, []string{"layer"})

	HeightBasis = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geogate",
		Subsystem: "resolve",
		Name:      "height_basis_total",
		Help:      "Building heights by the attribute they were derived from",
	}, []string{"basis"})

	FeaturesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geogate",
		Subsystem: "resolve",
		Name:      "features_skipped_total",
		Help:      "Features dropped during normalization",
	}, []string{"reason"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "geogate",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}
