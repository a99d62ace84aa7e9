package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/park-ticketing/internal/handler"
	"github.com/iliyamo/park-ticketing/internal/middleware"
)

// RegisterAdmin registers user management under /admin.  All routes
// require a JWT carrying the admin role.  The update and delete
// operations are reachable both RESTfully on /admin/users and on the
// dedicated update-user/delete-user paths older clients post to.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	g := e.Group(
		"/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("admin"),
	)
	g.GET("/users", h.ListUsers)
	g.POST("/users", h.CreateUser)
	g.PUT("/users", h.UpdateUser)
	g.DELETE("/users", h.DeleteUser)

	g.PUT("/update-user", h.UpdateUser)
	g.POST("/update-user", h.UpdateUser)
	g.DELETE("/delete-user", h.DeleteUser)
	g.POST("/delete-user", h.DeleteUser)
}
