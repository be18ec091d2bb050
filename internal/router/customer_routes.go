package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/deal-redemption/internal/handler"
	"github.com/iliyamo/deal-redemption/internal/middleware"
	"github.com/iliyamo/deal-redemption/internal/model"
)

// RegisterCustomer registers the redemption flow under /v1.  All routes
// require a valid JWT and the CUSTOMER role.  verifyLimit throttles the
// PIN endpoint in addition to the failed-attempt lockout enforced by the
// claim service.
func RegisterCustomer(e *echo.Echo, h *handler.CustomerHandler, jwtSecret string, verifyLimit echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCustomer),
	)
	g.POST("/deals/:id/claim", h.Claim)
	g.POST("/deals/:id/verify-pin", h.VerifyPin, verifyLimit)
	g.POST("/deals/:id/update-bill", h.UpdateBill)
	g.GET("/my-claims", h.MyClaims)
}
