package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mdouchement/chestlink/internal/webserver/weberror"
	"golang.org/x/time/rate"
)

// RateLimiter bounds the requests per second of every actor.
// Requests without an actor identity share the limit of their remote address.
func RateLimiter(limit float64) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStore(rate.Limit(limit)),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			if id := c.Request().Header.Get(HeaderActorID); id != "" {
				return id, nil
			}
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return weberror.New(http.StatusForbidden, err.Error())
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return weberror.New(http.StatusTooManyRequests, "rate limit exceeded")
		},
	})
}
