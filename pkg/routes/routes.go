// Package routes wires the HTTP surface onto an echo server
package routes

import (
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/fern/pkg/middleware"
	"github.com/Ramsey-B/fern/pkg/routes/health"
	"github.com/Ramsey-B/fern/pkg/routes/images"
	"github.com/Ramsey-B/fern/pkg/routes/matches"
)

// Register mounts all routes and middleware on the server
func Register(e *echo.Echo, appName string, logger ectologger.Logger, checker *health.Checker) {
	e.Use(otelecho.Middleware(appName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.HTTPErrorHandler = middleware.Error(logger)

	checker.RegisterRoutes(e)

	api := e.Group("/api/v1")
	matches.Register(api)
	images.Register(api.Group("/images"))
}
