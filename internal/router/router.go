package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"                             // import the Echo web framework to handle routing
	"github.com/prometheus/client_golang/prometheus/promhttp" // exposition handler for /metrics

	"github.com/iliyamo/park-ticketing/internal/handler" // import the handlers that implement business logic
)

// RegisterRoutes registers operational routes that do not require
// authentication: the health check and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo) {
	// Map GET /healthz to the Health handler.  Load balancers and
	// monitoring systems use it to verify that the service is up.
	e.GET("/healthz", handler.Health)
	// Expose the default registry, which holds the booking metrics.
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers login and registration.  Both issue a bearer
// token; limit is the rate limiter applied to each of them.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, limit echo.MiddlewareFunc) {
	// POST /register accepts JSON or multipart (with an optional photo).
	e.POST("/register", a.Register, limit)
	// POST /login accepts a username or an email in "username".
	e.POST("/login", a.Login, limit)
}

// RegisterPublic registers the unauthenticated event catalogue.  The
// listing is served through the response cache; the detail lookup is
// a POST and never cached.
func RegisterPublic(e *echo.Echo, ev *handler.EventHandler, cache echo.MiddlewareFunc) {
	e.GET("/events", ev.List, cache)
	e.POST("/events", ev.Detail)
}
