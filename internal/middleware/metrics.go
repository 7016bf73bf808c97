package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fishing-club-booking/internal/metrics"
)

// Metrics records request count and latency per method and normalized
// path.  /metrics itself is not counted.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().URL.Path == "/metrics" {
				return next(c)
			}
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			path := metrics.NormalizePath(c.Request().URL.Path)
			status := strconv.Itoa(c.Response().Status)
			metrics.RequestTotal.WithLabelValues(c.Request().Method, path, status).Inc()
			metrics.RequestDuration.WithLabelValues(c.Request().Method, path).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}
