package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/deal-redemption/internal/handler"
	"github.com/iliyamo/deal-redemption/internal/middleware"
	"github.com/iliyamo/deal-redemption/internal/model"
)

// RegisterVendor registers the PIN endpoints under /v1/vendors.  Both
// require a valid JWT and the VENDOR role; the handler additionally checks
// that the deal belongs to the caller.
func RegisterVendor(e *echo.Echo, h *handler.VendorHandler, jwtSecret string) {
	g := e.Group(
		"/v1/vendors",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleVendor),
	)
	g.GET("/deals/:id/current-pin", h.CurrentPin, middleware.NoStore())
	g.POST("/deals/:id/pin", h.IssuePin, middleware.NoStore())
}
