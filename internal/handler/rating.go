package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bartab/internal/model"
	"github.com/iliyamo/bartab/internal/service"
)

// RatingHandler serves venue ratings.
type RatingHandler struct {
	Ratings *service.RatingService
}

func NewRatingHandler(r *service.RatingService) *RatingHandler { return &RatingHandler{Ratings: r} }

// Create handles POST /v1/ratings.
func (h *RatingHandler) Create(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}
	var r model.Rating
	if err := c.Bind(&r); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Ratings.Create(ctx, uid, &r); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"rating": r})
}

// List handles GET /v1/ratings?venueId=.
func (h *RatingHandler) List(c echo.Context) error {
	venueID, err := strconv.ParseUint(c.QueryParam("venueId"), 10, 64)
	if err != nil || venueID == 0 {
		return invalidParam(c, "venueId", "is required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	sum, err := h.Ratings.ForVenue(ctx, venueID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, sum)
}
