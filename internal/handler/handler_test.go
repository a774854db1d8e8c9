package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/bartab/internal/billing"
	"github.com/iliyamo/bartab/internal/config"
	"github.com/iliyamo/bartab/internal/middleware"
	"github.com/iliyamo/bartab/internal/model"
	"github.com/iliyamo/bartab/internal/repository"
	"github.com/iliyamo/bartab/internal/service"
	"github.com/iliyamo/bartab/internal/utils"
)

const (
	testSecret = "handler-secret"
	patronID   = uint64(7)
)

type fixture struct {
	e        *echo.Echo
	tabs     *mockTabs
	catalog  *mockCatalog
	splits   *mockSplits
	payments *mockPayments
	users    *mockUsers
	tokens   *mockTokens
	bearer   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		tabs: &mockTabs{}, catalog: &mockCatalog{}, splits: &mockSplits{},
		payments: &mockPayments{}, users: &mockUsers{}, tokens: &mockTokens{},
	}
	cfg := config.Config{JWTSecret: testSecret, AccessTTLMin: 15, RefreshTTLDays: 30, BcryptCost: bcrypt.MinCost}
	verify := service.NewVerificationService(nil, nopSMS{}, blockThrottle{}, 0, 0, true)

	auth := NewAuthHandler(cfg, f.users, f.tokens, verify)
	tabs := NewTabHandler(service.NewTabService(f.tabs, f.catalog, f.splits, nil))
	splits := NewSplitHandler(service.NewSplitService(f.tabs, f.splits))
	pays := NewPaymentHandler(service.NewPaymentService(f.tabs, f.payments, service.SimulatedProcessor{}, nil))
	venues := NewVenueHandler(service.NewCatalogService(f.catalog))

	e := echo.New()
	e.GET("/healthz", Health)
	e.POST("/v1/auth/login", auth.Login)
	e.POST("/v1/auth/refresh", auth.Refresh)
	e.POST("/v1/auth/send-verification", auth.SendVerification)
	e.GET("/v1/venues/:id/tables/:number/qr.png", venues.TableQR)
	e.GET("/v1/tables/resolve", venues.ResolveTable)

	g := e.Group("/v1", middleware.JWTAuth(testSecret))
	g.POST("/tabs", tabs.Open)
	g.GET("/tabs/:id", tabs.Get)
	g.PATCH("/tabs/:id", tabs.Update)
	g.POST("/tabs/:id/split", splits.Create)
	g.POST("/payments", pays.Create)
	g.PATCH("/users/me", auth.UpdateMe)
	f.e = e

	tok, err := utils.NewAccessToken(testSecret, patronID, model.RoleCustomer, 15)
	require.NoError(t, err)
	f.bearer = tok.Token

	t.Cleanup(func() {
		for _, m := range []interface{ AssertExpectations(mock.TestingT) bool }{f.tabs, f.catalog, f.splits, f.payments, f.users, f.tokens} {
			m.AssertExpectations(t)
		}
	})
	return f
}

func (f *fixture) do(method, path, body string, authed bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if authed {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+f.bearer)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func openTab(id uint64, subtotal, tip billing.Cents) *model.Tab {
	return &model.Tab{
		ID: id, UserID: patronID, VenueID: 1, Status: model.TabOpen,
		Totals: billing.Recompute(subtotal, tip, 875),
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/healthz", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/v1/tabs/1", "", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing bearer token", decode(t, rec)["error"])
}

func TestOpenTabWhenAlreadyOpen(t *testing.T) {
	f := newFixture(t)
	f.catalog.On("GetActive", uint64(1)).Return(&model.Venue{ID: 1, TaxRate: 875}, nil)
	f.tabs.On("Create", mock.Anything).Return(repository.ErrDuplicateOpenTab)
	f.tabs.On("FindOpen", patronID, uint64(1)).Return(&model.Tab{ID: 9}, nil)

	rec := f.do(http.MethodPost, "/v1/tabs", `{"venueId":1}`, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "you already have an open tab at this venue", body["error"])
	assert.Equal(t, map[string]any{"tabId": float64(9)}, body["details"])
}

func TestGetTabOwnedByAnotherUser(t *testing.T) {
	f := newFixture(t)
	f.tabs.On("GetForUser", uint64(5), patronID).Return(nil, repository.ErrTabNotFound)

	rec := f.do(http.MethodGet, "/v1/tabs/5", "", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/v1/tabs/abc", "", true).Code)
}

func TestSetTipFromPercent(t *testing.T) {
	f := newFixture(t)
	f.tabs.On("GetForUser", uint64(3), patronID).Return(openTab(3, 2600, 0), nil)
	f.tabs.On("Orders", uint64(3)).Return([]model.Order{}, nil)
	f.splits.On("ListForTab", uint64(3)).Return([]model.TabSplit(nil), nil)
	f.tabs.On("UpdateTip", uint64(3), patronID, billing.Cents(468)).Return(openTab(3, 2600, 468), nil)

	rec := f.do(http.MethodPatch, "/v1/tabs/3", `{"tipPercent":18}`, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tab := decode(t, rec)["tab"].(map[string]any)
	assert.Equal(t, 26.00, tab["subtotal"])
	assert.Equal(t, 2.28, tab["tax"])
	assert.Equal(t, 4.68, tab["tip"])
	assert.Equal(t, 32.96, tab["total"])
}

func TestSetTipNeedsExactlyOneField(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPatch, "/v1/tabs/3", `{"tip":1,"tipPercent":18}`, true).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPatch, "/v1/tabs/3", `{}`, true).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPatch, "/v1/tabs/3", `{"tipPercent":-5}`, true).Code)
}

func TestCustomSplit(t *testing.T) {
	f := newFixture(t)
	f.splits.On("Replace", uint64(3), patronID).Return(billing.Cents(4567), nil).Once()
	f.splits.On("Replace", uint64(3), patronID).Return(billing.Cents(4500), nil).Once()
	body := `{"splits":[{"guestName":"Ana","amount":20.00,"tip":3.60},{"amount":18.00,"tip":4.07}]}`

	rec := f.do(http.MethodPost, "/v1/tabs/3/split", body, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Len(t, decode(t, rec)["splits"], 2)

	rec = f.do(http.MethodPost, "/v1/tabs/3/split", body, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]any{"total": 45.00, "splitTotal": 45.67}, decode(t, rec)["details"])
}

func TestPaymentDeclinedAndApproved(t *testing.T) {
	f := newFixture(t)
	pending := func(method string) *model.Payment {
		return &model.Payment{ID: 11, TabID: 3, UserID: patronID, Amount: 3296,
			PaymentMethodID: method, Status: model.PaymentProcessing}
	}
	f.payments.On("Begin", patronID, uint64(3), (*uint64)(nil), "pm_card_declined_funds").Return(pending("pm_card_declined_funds"), nil)
	f.payments.On("Complete", uint64(11), model.PaymentFailed, false).Return(nil, nil)

	rec := f.do(http.MethodPost, "/v1/payments", `{"tabId":3,"paymentMethodId":"pm_card_declined_funds"}`, true)
	require.Equal(t, http.StatusPaymentRequired, rec.Code, rec.Body.String())
	payment := decode(t, rec)["details"].(map[string]any)["payment"].(map[string]any)
	assert.Equal(t, model.PaymentFailed, payment["status"])

	now := time.Now().UTC()
	f.payments.On("Begin", patronID, uint64(3), (*uint64)(nil), "pm_card_visa").Return(pending("pm_card_visa"), nil)
	f.payments.On("Complete", uint64(11), model.PaymentSucceeded, true).Return(&now, nil)

	rec = f.do(http.MethodPost, "/v1/payments", `{"tabId":3,"paymentMethodId":"pm_card_visa"}`, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	payment = decode(t, rec)["payment"].(map[string]any)
	assert.Equal(t, model.PaymentSucceeded, payment["status"])
	assert.True(t, strings.HasPrefix(payment["processorTxnId"].(string), "pi_"))
}

func TestSendVerificationTooSoon(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/v1/auth/send-verification", `{"phone":"+1 (555) 555-1234"}`, false)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = f.do(http.MethodPost, "/v1/auth/send-verification", `{"phone":"12"}`, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	hash, err := utils.HashPassword("password123", bcrypt.MinCost)
	require.NoError(t, err)
	f.users.On("GetByEmail", "test@bartab.com").Return(model.User{
		ID: patronID, Email: "test@bartab.com", PasswordHash: hash, Role: model.RoleCustomer, IsActive: true,
	}, nil)
	f.users.On("GetByEmail", "nobody@bartab.com").Return(model.User{}, repository.ErrUserNotFound)
	f.tokens.On("StoreRefresh", patronID, mock.AnythingOfType("string")).Return(nil).Once()

	rec := f.do(http.MethodPost, "/v1/auth/login", `{"email":" Test@BarTab.com ","password":"password123"}`, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), hash)
	access := decode(t, rec)["access"].(map[string]any)["token"].(string)
	claims, err := utils.ParseAccessToken(testSecret, access)
	require.NoError(t, err)
	uid, _ := claims.UserID()
	assert.Equal(t, patronID, uid)

	rec = f.do(http.MethodPost, "/v1/auth/login", `{"email":"test@bartab.com","password":"wrong-password"}`, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = f.do(http.MethodPost, "/v1/auth/login", `{"email":"nobody@bartab.com","password":"password123"}`, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshRejectsRevokedToken(t *testing.T) {
	f := newFixture(t)
	f.tokens.On("Rotate", utils.HashRefreshRaw("stale"), mock.AnythingOfType("string")).Return(uint64(0), repository.ErrRefreshInvalid)

	rec := f.do(http.MethodPost, "/v1/auth/refresh", `{"refreshToken":"stale"}`, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/v1/auth/refresh", `{}`, false).Code)
}

func TestUpdateMeValidatesTipPercent(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPatch, "/v1/users/me", `{"defaultTipPercent":150}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	phone := "+15555551234"
	f.users.On("UpdateProfile", patronID, model.ProfileUpdate{Phone: &phone}).
		Return(model.User{ID: patronID, Phone: &phone}, nil)
	rec = f.do(http.MethodPatch, "/v1/users/me", `{"phone":"+1 555-555-1234"}`, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	user := decode(t, rec)["user"].(map[string]any)
	assert.Equal(t, phone, user["phone"])
	assert.Equal(t, false, user["phoneVerified"])
}

func TestTableQRAndResolve(t *testing.T) {
	f := newFixture(t)
	venue := &model.Venue{ID: 1, Name: "The Cozy Pub"}
	table := &model.Table{ID: 30, VenueID: 1, Number: 3, QRCode: model.TableQRPayload(1, 3)}
	f.catalog.On("GetActive", uint64(1)).Return(venue, nil)
	f.catalog.On("TableByNumber", uint64(1), 3).Return(table, nil)

	rec := f.do(http.MethodGet, "/v1/venues/1/tables/3/qr.png", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "\x89PNG"))

	rec = f.do(http.MethodGet, "/v1/tables/resolve?code=bartab://venue/1/table/3", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), decode(t, rec)["table"].(map[string]any)["tableNumber"])

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/v1/tables/resolve?code=nope", "", false).Code)
}

func TestRespondErrorStatuses(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{&service.ValidationError{Fields: map[string]string{"tip": "must not be negative"}}, http.StatusBadRequest},
		{&repository.InvalidItemError{MenuItemID: 4}, http.StatusBadRequest},
		{repository.ErrTabClosed, http.StatusBadRequest},
		{repository.ErrSplitPaid, http.StatusBadRequest},
		{service.ErrExpired, http.StatusBadRequest},
		{service.ErrLocked, http.StatusBadRequest},
		{service.ErrInvalidCode, http.StatusBadRequest},
		{repository.ErrEmailExists, http.StatusBadRequest},
		{errUnauthenticated, http.StatusUnauthorized},
		{fmt.Errorf("load: %w", repository.ErrVerificationNotFound), http.StatusNotFound},
		{repository.ErrVenueNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: card declined", service.ErrPaymentDeclined), http.StatusPaymentRequired},
		{service.ErrResendTooSoon, http.StatusTooManyRequests},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	e := echo.New()
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
			require.NoError(t, respondError(c, tc.err))
			assert.Equal(t, tc.code, rec.Code)
			if tc.code == http.StatusInternalServerError {
				assert.NotContains(t, rec.Body.String(), "connection reset")
			}
		})
	}
}
