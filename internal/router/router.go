package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bartab/internal/handler"
	"github.com/iliyamo/bartab/internal/middleware"
)

// RegisterRoutes registers the unauthenticated operational routes.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers account, token and phone verification routes.
// limit wraps the endpoints that are worth brute forcing: login, register
// and the verification pair.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register, limit)
	g.POST("/login", a.Login, limit)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)
	g.POST("/send-verification", a.SendVerification, limit)
	g.POST("/verify-phone", a.VerifyPhone, limit)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	auth.POST("/auth/logout-all", a.LogoutAll)
	auth.GET("/users/me", a.Me)
	auth.PATCH("/users/me", a.UpdateMe)
}

// RegisterPublic registers the catalog and the public forms. cache wraps
// the catalog reads only.
func RegisterPublic(e *echo.Echo, v *handler.VenueHandler, r *handler.RatingHandler, a *handler.ApplicationHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.GET("/venues", v.List, cache)
	g.GET("/venues/:id", v.Get, cache)
	g.GET("/venues/:id/menu", v.Menu, cache)
	g.GET("/venues/:id/tables/:number/qr.png", v.TableQR)
	g.GET("/tables/resolve", v.ResolveTable)
	g.GET("/ratings", r.List)
	g.POST("/venue-applications", a.Submit)
}
