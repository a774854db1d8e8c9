package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/skip2/go-qrcode"

	"github.com/iliyamo/bartab/internal/model"
	"github.com/iliyamo/bartab/internal/service"
)

// qrSize is the edge length of table QR images in pixels.
const qrSize = 256

// VenueHandler serves the public catalog: venues, menus and table codes.
type VenueHandler struct {
	Catalog *service.CatalogService
}

func NewVenueHandler(c *service.CatalogService) *VenueHandler { return &VenueHandler{Catalog: c} }

// List handles GET /v1/venues?lat&lng&radius. lat and lng go together.
func (h *VenueHandler) List(c echo.Context) error {
	var q *service.NearQuery
	lat, lng, radius := c.QueryParam("lat"), c.QueryParam("lng"), c.QueryParam("radius")
	if lat != "" || lng != "" {
		q = &service.NearQuery{}
		var err error
		if q.Lat, err = strconv.ParseFloat(lat, 64); err != nil {
			return invalidParam(c, "lat", "must be a number")
		}
		if q.Lng, err = strconv.ParseFloat(lng, 64); err != nil {
			return invalidParam(c, "lng", "must be a number")
		}
		if radius != "" {
			if q.Radius, err = strconv.ParseFloat(radius, 64); err != nil {
				return invalidParam(c, "radius", "must be a number")
			}
		}
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	venues, err := h.Catalog.Venues(ctx, q)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"venues": venues})
}

// Get handles GET /v1/venues/:id.
func (h *VenueHandler) Get(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return invalidParam(c, "id", "must be a positive integer")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	v, err := h.Catalog.Venue(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"venue": v})
}

// Menu handles GET /v1/venues/:id/menu.
func (h *VenueHandler) Menu(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return invalidParam(c, "id", "must be a positive integer")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	m, err := h.Catalog.Menu(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// TableQR handles GET /v1/venues/:id/tables/:number/qr.png.
func (h *VenueHandler) TableQR(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return invalidParam(c, "id", "must be a positive integer")
	}
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil || number <= 0 {
		return invalidParam(c, "number", "must be a positive integer")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	v, t, err := h.Catalog.Table(ctx, id, number)
	if err != nil {
		return respondError(c, err)
	}
	png, err := tableQRPNG(v.ID, t.Number)
	if err != nil {
		return respondError(c, err)
	}
	return c.Blob(http.StatusOK, "image/png", png)
}

// tableQRPNG renders the QR code a table displays.
func tableQRPNG(venueID uint64, number int) ([]byte, error) {
	return qrcode.Encode(model.TableQRPayload(venueID, number), qrcode.Medium, qrSize)
}

// ResolveTable handles GET /v1/tables/resolve?code=.
func (h *VenueHandler) ResolveTable(c echo.Context) error {
	code := c.QueryParam("code")
	if code == "" {
		return invalidParam(c, "code", "is required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	v, t, err := h.Catalog.ResolveTable(ctx, code)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"venue": v, "table": t})
}
