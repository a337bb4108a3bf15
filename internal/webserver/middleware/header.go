package middleware

import (
	"net/http/httputil"

	"github.com/labstack/echo/v4"
	"github.com/mdouchement/logger"
)

// Dumpper logs the headers of every request at debug level.
func Dumpper(log logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			payload, err := httputil.DumpRequest(c.Request(), false)
			if err != nil {
				log.Debugf("DumpRequest: %s", err)
			} else {
				log.Debug(string(payload))
			}

			return next(c)
		}
	}
}
