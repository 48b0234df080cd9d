// Package metrics exposes Prometheus collectors for platform calls and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "yadnus"

// Registry owns the application's collectors.
type Registry struct {
	reg      *prometheus.Registry
	Platform *Platform
	HTTP     *HTTP
}

// New creates a registry with process and Go runtime collectors plus the application metrics.
func New() *Registry {
	reg := prometheus.NewPedanticRegistry()
	reg.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	p := NewPlatform(reg)
	h := NewHTTP(reg)
	return &Registry{reg: reg, Platform: p, HTTP: h}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry, mainly for tests.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// Platform records calls made to YouTube and Zoom.
type Platform struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewPlatform registers platform collectors on reg.
func NewPlatform(reg prometheus.Registerer) *Platform {
	p := &Platform{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "platform_requests_total",
			Help:      "Calls to external streaming platforms by operation and result.",
		}, []string{"platform", "operation", "result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "platform_request_duration_seconds",
			Help:      "Latency of calls to external streaming platforms.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"platform", "operation"}),
	}
	reg.MustRegister(p.requests, p.latency)
	return p
}

// Observe records one platform call. A nil *Platform is a no-op.
func (p *Platform) Observe(platform, operation string, start time.Time, err error) {
	if p == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	p.requests.WithLabelValues(platform, operation, result).Inc()
	p.latency.WithLabelValues(platform, operation).Observe(time.Since(start).Seconds())
}

// HTTP records request counts per route.
type HTTP struct {
	requests *prometheus.CounterVec
}

// NewHTTP registers HTTP collectors on reg.
func NewHTTP(reg prometheus.Registerer) *HTTP {
	h := &HTTP{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(h.requests)
	return h
}

// Middleware counts requests using the matched route pattern, not the raw path.
func (h *HTTP) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		h.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
