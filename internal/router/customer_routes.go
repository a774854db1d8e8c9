package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bartab/internal/handler"
	"github.com/iliyamo/bartab/internal/middleware"
	"github.com/iliyamo/bartab/internal/model"
)

// RegisterCustomer registers patron endpoints under /v1. Every route needs
// a valid access token; ownership of tabs is enforced by the services.
func RegisterCustomer(e *echo.Echo, t *handler.TabHandler, s *handler.SplitHandler, p *handler.PaymentHandler, r *handler.RatingHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCustomer, model.RoleAdmin),
	)

	g.POST("/tabs", t.Open)
	g.GET("/tabs", t.List)
	g.GET("/tabs/active", t.Active)
	g.POST("/tabs/add-items", t.AddItems)
	g.GET("/tabs/:id", t.Get)
	g.PATCH("/tabs/:id", t.Update)
	g.POST("/tabs/:id/orders", t.AddOrder)
	g.GET("/tabs/:id/orders", t.Orders)

	g.POST("/tabs/:id/split/preview", s.Preview)
	g.POST("/tabs/:id/split", s.Create)
	g.GET("/tabs/:id/split", s.List)

	g.POST("/payments", p.Create)
	g.GET("/tabs/:id/payments", p.ListForTab)

	g.POST("/ratings", r.Create)
}
