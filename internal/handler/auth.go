package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/guest-pass/internal/config"
	"github.com/iliyamo/guest-pass/internal/logging"
	"github.com/iliyamo/guest-pass/internal/middleware"
	"github.com/iliyamo/guest-pass/internal/utils"
)

// AuthHandler bundles dependencies for staff auth endpoints.  Staff
// accounts come from STAFF_USERS; there is no registration.
type AuthHandler struct {
	Cfg config.Config
}

func NewAuthHandler(cfg config.Config) *AuthHandler {
	return &AuthHandler{Cfg: cfg}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type staffPart struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}
type authResp struct {
	Staff  staffPart `json:"staff"`
	Access tokenPart `json:"access"`
}

// Login: verify against the configured staff list and return an access token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = normEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	staff, ok := h.lookup(req.Email)
	if !ok || !utils.VerifyPassword(staff.PasswordHash, req.Password) {
		logging.FromContext(c.Request().Context()).WithField("email", req.Email).Warn("Staff login rejected")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, staff.Email, staff.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}

	return c.JSON(http.StatusOK, authResp{
		Staff:  staffPart{Email: staff.Email, Role: staff.Role},
		Access: tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// Me echoes the identity carried by the bearer token.
func (h *AuthHandler) Me(c echo.Context) error {
	role, _ := c.Get("role").(string)
	return c.JSON(http.StatusOK, staffPart{Email: middleware.ActorID(c), Role: role})
}

func (h *AuthHandler) lookup(email string) (config.StaffUser, bool) {
	for _, s := range h.Cfg.Staff {
		if strings.EqualFold(s.Email, email) {
			return s, true
		}
	}
	return config.StaffUser{}, false
}
