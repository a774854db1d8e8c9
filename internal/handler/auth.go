package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bartab/internal/config"
	"github.com/iliyamo/bartab/internal/model"
	"github.com/iliyamo/bartab/internal/repository"
	"github.com/iliyamo/bartab/internal/service"
	"github.com/iliyamo/bartab/internal/utils"
)

// UserStore is the account persistence the auth endpoints need.
type UserStore interface {
	Create(ctx context.Context, email, password, role string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	UpdateProfile(ctx context.Context, id uint64, upd model.ProfileUpdate) (model.User, error)
}

// TokenStore keeps hashed refresh tokens.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	Rotate(ctx context.Context, oldHash, newHash string, exp time.Time) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

var (
	_ UserStore  = (*repository.UserRepo)(nil)
	_ TokenStore = (*repository.TokenRepo)(nil)
)

// AuthHandler bundles dependencies for account, token and phone
// verification endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  UserStore
	Tokens TokenStore
	Verify *service.VerificationService
}

func NewAuthHandler(cfg config.Config, u UserStore, t TokenStore, v *service.VerificationService) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Verify: v}
}

// ----- DTOs -----

type credentialsReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type authResp struct {
	User    model.User `json:"user"`
	Access  tokenPart  `json:"access"`
	Refresh tokenPart  `json:"refresh"`
}

// issue signs an access token and stores a fresh refresh token.
func (h *AuthHandler) issue(ctx context.Context, u model.User) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    u,
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	}, nil
}

func (req *credentialsReq) normalize() error {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return &service.ValidationError{Fields: map[string]string{"email": "email and password are required"}}
	}
	return nil
}

// Register creates a CUSTOMER account and returns a token pair.
func (h *AuthHandler) Register(c echo.Context) error {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	if err := req.normalize(); err != nil {
		return respondError(c, err)
	}
	if len(req.Password) < utils.MinPasswordLength {
		return invalidParam(c, "password", utils.ErrPasswordTooShort.Error())
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Email, req.Password, model.RoleCustomer, h.Cfg.BcryptCost)
	if err != nil {
		return respondError(c, err)
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// Login verifies credentials and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	if err := req.normalize(); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return c.JSON(http.StatusUnauthorized, errorBody{Error: "invalid credentials"})
	}
	if err != nil {
		return respondError(c, err)
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, errorBody{Error: "invalid credentials"})
	}

	resp, err := h.issue(ctx, u)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is returned.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return invalidParam(c, "refreshToken", "is required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	next, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return respondError(c, err)
	}
	uid, err := h.Tokens.Rotate(ctx, utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken)),
		utils.HashRefreshRaw(next.Raw), next.Exp)
	if err != nil {
		return respondError(c, err)
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, authResp{
		User:    u,
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: next.Raw, Expires: next.Exp},
	})
}

// Logout revokes the presented refresh token.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return invalidParam(c, "refreshToken", "is required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// LogoutAll revokes every refresh token of the caller (all devices).
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type phoneReq struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

// SendVerification issues a phone code. In development the code is echoed.
func (h *AuthHandler) SendVerification(c echo.Context) error {
	var req phoneReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	issued, err := h.Verify.SendCode(ctx, req.Phone)
	if err != nil {
		return respondError(c, err)
	}
	resp := echo.Map{"success": true, "expiresAt": issued.ExpiresAt}
	if issued.Code != "" {
		resp["code"] = issued.Code
	}
	return c.JSON(http.StatusOK, resp)
}

// VerifyPhone checks a code and marks the phone verified.
func (h *AuthHandler) VerifyPhone(c echo.Context) error {
	var req phoneReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Verify.Verify(ctx, req.Phone, req.Code); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "verified": true})
}

// Me returns the caller's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u})
}

// UpdateMe applies a partial profile update.
func (h *AuthHandler) UpdateMe(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}
	var upd model.ProfileUpdate
	if err := c.Bind(&upd); err != nil {
		return invalidBody(c)
	}
	if p := upd.DefaultTipPercent; p != nil && (*p < 0 || *p > 100) {
		return invalidParam(c, "defaultTipPercent", "must be between 0 and 100")
	}
	if upd.Phone != nil {
		phone, err := service.NormalizePhone(*upd.Phone)
		if err != nil {
			return respondError(c, err)
		}
		upd.Phone = &phone
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.UpdateProfile(ctx, uid, upd)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u})
}
