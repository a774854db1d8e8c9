package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bartab/internal/service"
)

// PaymentHandler serves payments against tabs and splits.
type PaymentHandler struct {
	Payments *service.PaymentService
}

func NewPaymentHandler(p *service.PaymentService) *PaymentHandler { return &PaymentHandler{Payments: p} }

// Create handles POST /v1/payments. A declined charge answers 402 with
// the FAILED payment in details.
func (h *PaymentHandler) Create(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}
	var req service.PayRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Payments.Pay(ctx, uid, req)
	if errors.Is(err, service.ErrPaymentDeclined) && p != nil {
		return c.JSON(http.StatusPaymentRequired, errorBody{Error: err.Error(), Details: echo.Map{"payment": p}})
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"payment": p})
}

// ListForTab handles GET /v1/tabs/:id/payments.
func (h *PaymentHandler) ListForTab(c echo.Context) error {
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

	payments, err := h.Payments.List(ctx, tabID, uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"payments": payments})
}
