package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bartab/internal/billing"
	"github.com/iliyamo/bartab/internal/model"
	"github.com/iliyamo/bartab/internal/service"
)

// TabHandler serves the tab lifecycle: open, order, tip and read.
type TabHandler struct {
	Tabs *service.TabService
}

func NewTabHandler(tabs *service.TabService) *TabHandler { return &TabHandler{Tabs: tabs} }

type openTabReq struct {
	VenueID uint64  `json:"venueId"`
	TableID *uint64 `json:"tableId"`
}

type orderReq struct {
	VenueID             uint64            `json:"venueId"`
	TableID             *uint64           `json:"tableId"`
	Items               []model.OrderLine `json:"items"`
	SpecialInstructions *string           `json:"specialInstructions"`
}

type tipReq struct {
	Tip        *billing.Cents `json:"tip"`
	TipPercent *float64       `json:"tipPercent"`
}

// Open handles POST /v1/tabs.
func (h *TabHandler) Open(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}
	var req openTabReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	tab, err := h.Tabs.Open(ctx, uid, req.VenueID, req.TableID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"tab": tab})
}

// AddItems handles POST /v1/tabs/add-items: it reuses or opens the
// caller's tab at the venue, then appends the order.
func (h *TabHandler) AddItems(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}
	var req orderReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	tab, order, err := h.Tabs.OpenAndAddItems(ctx, uid, req.VenueID, req.TableID, req.Items, trimmedPtr(req.SpecialInstructions))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"tab": tab, "order": order})
}

// AddOrder handles POST /v1/tabs/:id/orders.
func (h *TabHandler) AddOrder(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}
	tabID, ok := idParam(c, "id")
	if !ok {
		return invalidParam(c, "id", "must be a positive integer")
	}
	var req orderReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	_, order, err := h.Tabs.AddItems(ctx, tabID, uid, req.Items, trimmedPtr(req.SpecialInstructions))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"order": order})
}

// Orders handles GET /v1/tabs/:id/orders.
func (h *TabHandler) Orders(c echo.Context) error {
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

	orders, err := h.Tabs.Orders(ctx, tabID, uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": orders})
}

// Get handles GET /v1/tabs/:id.
func (h *TabHandler) Get(c echo.Context) error {
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

	tab, err := h.Tabs.Get(ctx, tabID, uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tab": tab})
}

// List handles GET /v1/tabs?status=.
func (h *TabHandler) List(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	tabs, err := h.Tabs.List(ctx, uid, strings.ToUpper(strings.TrimSpace(c.QueryParam("status"))))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tabs": tabs})
}

// Active handles GET /v1/tabs/active.
func (h *TabHandler) Active(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	tab, err := h.Tabs.Active(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tab": tab})
}

// Update handles PATCH /v1/tabs/:id. Exactly one of tip and tipPercent is
// accepted; a percentage is resolved against the current subtotal.
func (h *TabHandler) Update(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}
	tabID, ok := idParam(c, "id")
	if !ok {
		return invalidParam(c, "id", "must be a positive integer")
	}
	var req tipReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	if (req.Tip == nil) == (req.TipPercent == nil) {
		return invalidParam(c, "tip", "provide either tip or tipPercent")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	var tip billing.Cents
	if req.Tip != nil {
		tip = *req.Tip
	} else {
		pct := *req.TipPercent
		if pct < 0 || pct > 100 {
			return invalidParam(c, "tipPercent", "must be between 0 and 100")
		}
		cur, err := h.Tabs.Get(ctx, tabID, uid)
		if err != nil {
			return respondError(c, err)
		}
		tip = billing.TipFromPercent(cur.Subtotal, pct)
	}

	tab, err := h.Tabs.SetTip(ctx, tabID, uid, tip)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tab": tab})
}

func trimmedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
