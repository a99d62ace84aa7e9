package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// ErrorHandler renders framework errors in the API's
// {success:false, message} envelope.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := "Internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		switch code {
		case http.StatusMethodNotAllowed:
			msg = "Method not allowed"
		case http.StatusNotFound:
			msg = "Not found"
		default:
			if s, ok := he.Message.(string); ok && code < 500 {
				msg = s
			} else {
				msg = http.StatusText(code)
			}
		}
	}
	if code >= 500 {
		logrus.WithError(err).WithField("path", c.Request().URL.Path).Error("unhandled error")
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, echo.Map{"success": false, "message": msg})
}
