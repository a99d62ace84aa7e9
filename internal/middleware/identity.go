package middleware

// identity.go holds helpers that read the authenticated user back out
// of the echo context.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// CurrentUserID returns the id stored by JWTAuth.
func CurrentUserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(CtxUserID).(uint64)
	return id, ok && id != 0
}

// identity renders the caller for rate-limit keys and logs; "anon"
// when no token was presented.
func identity(c echo.Context) string {
	if id, ok := CurrentUserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
