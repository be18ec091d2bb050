// Package router mounts the handlers on an echo instance.  Each Register
// function owns one audience: probes, auth, public browsing, customers and
// vendors.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/deal-redemption/internal/handler"
	"github.com/iliyamo/deal-redemption/internal/middleware"
	"github.com/iliyamo/deal-redemption/internal/model"
)

// RegisterRoutes registers the unauthenticated operational endpoints: the
// health check and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers token issuance under /v1/auth and the protected
// profile endpoint /v1/me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// Logout with a refresh token in the body needs no access token.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCustomer, model.RoleVendor),
	)
	auth.GET("/me", a.Me)
	auth.POST("/logout", a.Logout)
}

// RegisterPublic registers the guest deal browsing endpoints.  The GET
// routes go through the response cache.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/deals", p.ListDeals, cache)
	e.GET("/v1/deals/:id", p.GetDeal, cache)
	e.POST("/v1/deals/nearby", p.Nearby)
}
