package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mdouchement/chestlink/internal/webserver/weberror"
	"github.com/mdouchement/logger"
)

// NewHTTPErrorHandler is a middleware that formats rendered errors.
// Policy violations are rendered with their status code and only server errors are logged as errors.
func NewHTTPErrorHandler(log logger.Logger) func(err error, c echo.Context) {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var rendered error
		switch e := err.(type) {
		case *echo.HTTPError:
			rendered = weberror.New(e.Code, http.StatusText(e.Code))
			if msg, ok := e.Message.(string); ok {
				rendered = weberror.New(e.Code, msg)
			}
		default:
			rendered = weberror.From(err)
		}

		code := weberror.StatusCode(rendered)
		if code >= http.StatusInternalServerError {
			log.Error(err)
		} else {
			log.Debugf("%s %s: %s", c.Request().Method, c.Path(), err)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, rendered)
		}
		if err != nil {
			log.Errorf("HTTPErrorHandler: %s", err)
		}
	}
}
