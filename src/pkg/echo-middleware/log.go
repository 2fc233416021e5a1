package echomw

import (
	"time"

	"github.com/labstack/echo/v4"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
)

// RouteAccessLoggerMiddleware logs every request on arrival and again with its status and latency.
func RouteAccessLoggerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		LogRouteAccess(c, tl.Info, "Accessing route", palette.Blue)

		err := next(c)
		if err != nil {
			// Let echo write the error response so the logged status is the real one.
			c.Error(err)
		}

		level, color := tl.Info1, palette.Green
		status := c.Response().Status
		if status >= 400 {
			level, color = tl.Warning, palette.Yellow
		}
		LogRouteAccess(c, level, "Route served", color)
		tl.Log(tl.Verbose, palette.CyanDim, "Status=%d, Latency='%s'", status, time.Since(start).Round(time.Microsecond))
		return nil
	}
}

// Log route access. Health checks are logged at verbose level only.
func LogRouteAccess(c echo.Context, logLevel tl.LogLevel, actionName string, colorizer palette.Colorizer) {
	if c.Path() == "/healthz" {
		logLevel = tl.Verbose
		colorizer = palette.CyanDim
	}
	tl.Log(logLevel, colorizer, "%s: Method='%s', Path='%s', ClientIP='%s'", actionName, c.Request().Method, c.Path(), c.RealIP())
}
