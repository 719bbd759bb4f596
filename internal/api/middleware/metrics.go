package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/roadwatch/damage-portal/internal/pkg/metrics"
)

// Metrics observes request latency labelled by the matched route template.
// It must be registered inside Logger so the final status is known.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			metrics.HTTPRequestDuration.
				WithLabelValues(c.Request().Method, route, strconv.Itoa(c.Response().Status)).
				Observe(time.Since(start).Seconds())
			return nil
		}
	}
}
