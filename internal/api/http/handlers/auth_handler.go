package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/exim-session/internal/api/dto"
	"github.com/spec-kit/exim-session/internal/auth"
	"github.com/spec-kit/exim-session/internal/domain"
	"github.com/spec-kit/exim-session/internal/service"
)

// CookieOptions controls the session cookie written on login.
type CookieOptions struct {
	Name   string
	Secure bool
}

// AuthHandler exposes login, session check and logout endpoints.
type AuthHandler struct {
	auth       *service.AuthService
	middleware *auth.AuthMiddleware
	cookie     CookieOptions
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, middleware *auth.AuthMiddleware, cookie CookieOptions) *AuthHandler {
	return &AuthHandler{auth: authService, middleware: middleware, cookie: cookie}
}

// Login handles POST /api/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	req, err := parseLogin(c)
	if err != nil {
		return err
	}

	user, sess, err := h.auth.LoginUser(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return c.JSON(fiber.Map{
		"data": dto.LoginResponse{User: dto.NewUserResponse(user), ExpiresAt: sess.ExpiresAt},
	})
}

// AdminLogin handles POST /api/admin/login.
func (h *AuthHandler) AdminLogin(c *fiber.Ctx) error {
	req, err := parseLogin(c)
	if err != nil {
		return err
	}

	user, token, exp, err := h.auth.LoginAdmin(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": dto.AdminLoginResponse{User: dto.NewUserResponse(user), Token: token, ExpiresAt: exp},
	})
}

// ValidateSession handles GET /api/validate-session. It answers 200 while the
// cookie session is live and 401 otherwise.
func (h *AuthHandler) ValidateSession(c *fiber.Ctx) error {
	sess, err := h.auth.ValidateSession(c.UserContext(), c.Cookies(h.cookie.Name))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{"valid": true, "expires_at": sess.ExpiresAt},
	})
}

// Logout handles POST /api/logout. Unknown or already expired sessions still
// answer 200 so clients can always clear local state.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req dto.LogoutRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid payload")
		}
	}

	revoked := 0
	if c.Get(fiber.HeaderAuthorization) != "" {
		principal, err := h.middleware.Authenticate(c)
		if err == nil && principal.Kind == domain.KindAdmin &&
			(req.UserID == "" || req.UserID == principal.User.ID) {
			h.auth.LogoutAdmin(c.UserContext(), principal.Claims)
			revoked++
		}
	}

	if sid := c.Cookies(h.cookie.Name); sid != "" {
		n, err := h.auth.Logout(c.UserContext(), sid, req.UserID, req.AllDevices)
		if err != nil {
			return err
		}
		revoked += n
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return c.JSON(fiber.Map{"data": fiber.Map{"revoked": revoked}})
}

// Me handles GET /api/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}
	return c.JSON(fiber.Map{
		"data": dto.MeResponse{User: dto.NewUserResponse(principal.User), Kind: principal.Kind},
	})
}

func parseLogin(c *fiber.Ctx) (*dto.LoginRequest, error) {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" || req.Password == "" {
		return nil, fiber.NewError(http.StatusBadRequest, "email and password required")
	}
	return &req, nil
}
