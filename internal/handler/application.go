package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bartab/internal/model"
	"github.com/iliyamo/bartab/internal/service"
)

// ApplicationHandler serves venue sign-up applications.
type ApplicationHandler struct {
	Applications *service.ApplicationService
}

func NewApplicationHandler(a *service.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{Applications: a}
}

// Submit handles the public POST /v1/venue-applications.
func (h *ApplicationHandler) Submit(c echo.Context) error {
	var a model.VenueApplication
	if err := c.Bind(&a); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Applications.Submit(ctx, &a); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"application": a})
}

// List handles GET /v1/admin/venue-applications?status=.
func (h *ApplicationHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	apps, err := h.Applications.List(ctx, c.QueryParam("status"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"applications": apps, "total": len(apps)})
}
