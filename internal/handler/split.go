package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bartab/internal/service"
)

// SplitHandler serves bill splitting on a tab.
type SplitHandler struct {
	Splits *service.SplitService
}

func NewSplitHandler(s *service.SplitService) *SplitHandler { return &SplitHandler{Splits: s} }

type splitReq struct {
	Mode   string              `json:"mode"`
	People int                 `json:"people"`
	Splits []service.SplitLine `json:"splits"`
}

// Preview handles POST /v1/tabs/:id/split/preview. Nothing is stored.
func (h *SplitHandler) Preview(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}
	tabID, ok := idParam(c, "id")
	if !ok {
		return invalidParam(c, "id", "must be a positive integer")
	}
	var req splitReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	shares, err := h.Splits.PreviewEven(ctx, tabID, uid, req.People)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"people": req.People, "shares": shares})
}

// Create handles POST /v1/tabs/:id/split in even or custom form.
func (h *SplitHandler) Create(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}
	tabID, ok := idParam(c, "id")
	if !ok {
		return invalidParam(c, "id", "must be a positive integer")
	}
	var req splitReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	var splits any
	switch {
	case req.Mode == "even":
		splits, err = h.Splits.SplitEven(ctx, tabID, uid, req.People)
	case req.Mode == "" || req.Mode == "custom":
		splits, err = h.Splits.SplitCustom(ctx, tabID, uid, req.Splits)
	default:
		return invalidParam(c, "mode", "must be even or custom")
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"splits": splits})
}

// List handles GET /v1/tabs/:id/split.
func (h *SplitHandler) List(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}
	tabID, ok := idParam(c, "id")
	if !ok {
		return invalidParam(c, "id", "must be a positive integer")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	splits, err := h.Splits.List(ctx, tabID, uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"splits": splits})
}
