package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bartab/internal/billing"
	"github.com/iliyamo/bartab/internal/middleware"
	"github.com/iliyamo/bartab/internal/repository"
	"github.com/iliyamo/bartab/internal/service"
)

// errUnauthenticated is returned for bad credentials and missing identity.
var errUnauthenticated = errors.New("authentication required")

// requestTimeout bounds the storage work of a single request.
const requestTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// errorBody is the shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

var notFound = []error{
	repository.ErrTabNotFound,
	repository.ErrVenueNotFound,
	repository.ErrTableNotFound,
	repository.ErrSplitNotFound,
	repository.ErrPaymentNotFound,
	repository.ErrVerificationNotFound,
	repository.ErrUserNotFound,
}

var badRequest = []error{
	service.ErrValidation,
	repository.ErrConflict,
	repository.ErrDuplicateOpenTab,
	repository.ErrEmailExists,
	repository.ErrApplicationExists,
	billing.ErrUnbalanced,
	service.ErrExpired,
	service.ErrLocked,
	service.ErrInvalidCode,
}

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// respondError writes err with the status its kind maps to. Anything
// unrecognised is logged with the request id and reported as a generic 500.
func respondError(c echo.Context, err error) error {
	var (
		verr *service.ValidationError
		open *service.TabAlreadyOpenError
		unb  *billing.UnbalancedError
		item *repository.InvalidItemError
	)
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, errorBody{Error: "validation failed", Details: verr.Fields})
	case errors.As(err, &open):
		return c.JSON(http.StatusBadRequest, errorBody{Error: open.Error(), Details: echo.Map{"tabId": open.TabID}})
	case errors.As(err, &unb):
		return c.JSON(http.StatusBadRequest, errorBody{Error: billing.ErrUnbalanced.Error(),
			Details: echo.Map{"total": unb.Total, "splitTotal": unb.Shares}})
	case errors.As(err, &item):
		return c.JSON(http.StatusBadRequest, errorBody{Error: item.Error(), Details: echo.Map{"menuItemId": item.MenuItemID}})
	case errors.Is(err, errUnauthenticated), errors.Is(err, repository.ErrRefreshInvalid):
		return c.JSON(http.StatusUnauthorized, errorBody{Error: err.Error()})
	case isAny(err, notFound):
		return c.JSON(http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, service.ErrPaymentDeclined):
		return c.JSON(http.StatusPaymentRequired, errorBody{Error: err.Error()})
	case errors.Is(err, service.ErrResendTooSoon):
		return c.JSON(http.StatusTooManyRequests, errorBody{Error: err.Error()})
	case isAny(err, badRequest):
		return c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
	}
	rid := c.Response().Header().Get(echo.HeaderXRequestID)
	c.Logger().Errorf("request_id=%s %s %s: %v", rid, c.Request().Method, c.Path(), err)
	return c.JSON(http.StatusInternalServerError, errorBody{Error: "internal server error"})
}

func invalidBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid body"})
}

func invalidParam(c echo.Context, name, msg string) error {
	return c.JSON(http.StatusBadRequest, errorBody{Error: "validation failed", Details: map[string]string{name: msg}})
}

// currentUser returns the id JWTAuth stored for the request.
func currentUser(c echo.Context) (uint64, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return 0, errUnauthenticated
	}
	return id, nil
}

// idParam parses a positive path id.
func idParam(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}
