// Package admin implements the read-only HTTP status surface: Prometheus
// metrics plus a small human-readable summary page. It is adapted from the
// teacher's irc/admind package (an http.ServeMux-plus-http.Server admin
// console) and its echoprom middleware (per-request latency/count
// collectors for an echo.Echo server); the ban/channel administration
// handlers and the OIDC login flow have no place in this proxy's scope, but
// the request-metrics middleware is genuinely reused, recording into the
// same registry the rest of the daemon feeds.
package admin

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/presbrey/dircproxy/internal/metrics"
)

// Server is the admin HTTP listener. It never mutates proxy state; it only
// renders what the metrics registry already knows.
type Server struct {
	echo      *echo.Echo
	addr      string
	startedAt time.Time
}

// New builds an admin server bound to addr. reg may be nil, in which case
// no /metrics route is registered and the request-metrics middleware is
// skipped rather than dereferencing a nil registry.
func New(addr string, reg *metrics.Registry) *Server {
	s := &Server{
		addr:      addr,
		startedAt: time.Now(),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	if reg != nil {
		e.Use(requestMetrics(reg))
	}

	e.GET("/", s.handleIndex)
	e.GET("/healthz", s.handleHealthz)
	if reg != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg.Gatherer(), promhttp.HandlerOpts{})))
	}

	s.echo = e
	return s
}

// ListenAndServe blocks serving the admin surface until the listener fails
// or Shutdown is called.
func (s *Server) ListenAndServe() error {
	return s.echo.Start(s.addr)
}

// Shutdown closes the admin HTTP server's listener.
func (s *Server) Shutdown() error {
	return s.echo.Close()
}

func (s *Server) handleHealthz(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (s *Server) handleIndex(c echo.Context) error {
	return c.String(http.StatusOK, fmt.Sprintf(
		"dircproxy admin\nuptime: %s\nmetrics: /metrics\n",
		time.Since(s.startedAt).Round(time.Second),
	))
}

// requestMetrics is the echoprom middleware, reworked to record against a
// caller-supplied registry rather than a package-global one so the admin
// surface and the rest of the daemon share a single set of collectors.
func requestMetrics(reg *metrics.Registry) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			path := c.Path()
			method := c.Request().Method
			status := c.Response().Status
			reg.HTTPRequestDuration.WithLabelValues(path, method).Observe(time.Since(start).Seconds())
			reg.HTTPRequestsTotal.WithLabelValues(path, method, strconv.Itoa(status)).Inc()

			return err
		}
	}
}
