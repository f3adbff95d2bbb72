// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	MessagesCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slackclone_messages_created_total",
			Help: "Messages created, by kind (message or reply).",
		},
		[]string{"kind"},
	)

	ReactionsToggled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slackclone_reactions_toggled_total",
			Help: "Reaction toggles, by resulting action (added or removed).",
		},
		[]string{"action"},
	)

	UploadBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "slackclone_upload_bytes_total",
			Help: "Bytes written to attachment storage.",
		},
	)

	GatewayConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "slackclone_gateway_connections",
			Help: "Identified WebSocket gateway connections.",
		},
	)

	GatewayEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slackclone_gateway_events_total",
			Help: "Dispatch events fanned out by the gateway, by event name.",
		},
		[]string{"event"},
	)

	RateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slackclone_rate_limited_total",
			Help: "Requests rejected by a rate limit policy.",
		},
		[]string{"policy"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "slackclone_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		MessagesCreated,
		ReactionsToggled,
		UploadBytes,
		GatewayConnections,
		GatewayEvents,
		RateLimited,
		HTTPRequestDuration,
	)
}

// Middleware records request latency labelled by the matched route.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			HTTPRequestDuration.
				WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}
