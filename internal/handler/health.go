package handler // declare the handler package for HTTP route handlers

import (
	"net/http" // net/http for status codes

	"github.com/labstack/echo/v4" // echo context type
)

// Health is a liveness probe that always returns {"status":"ok"}.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"}) // respond with 200 and a small JSON body
}
