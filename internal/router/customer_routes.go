package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/park-ticketing/internal/handler"
	"github.com/iliyamo/park-ticketing/internal/middleware"
)

// RegisterCustomer registers endpoints for any signed-in user; both
// roles may book.  The middleware is attached per route rather than on
// a root group so unknown paths still answer 404 instead of 401.
// limit applies to booking only.
func RegisterCustomer(e *echo.Echo, b *handler.BookingHandler, p *handler.ProfileHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	auth := []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("user", "admin"),
	}
	e.POST("/booking", b.Book, append(auth, limit)...)
	e.GET("/my-bookings", b.MyBookings, auth...)
	e.POST("/profile/photo", p.UploadPhoto, auth...)
}
