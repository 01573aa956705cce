package dto

import (
	"time"

	"github.com/spec-kit/exim-session/internal/domain"
)

// LoginRequest payload for both user and admin login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LogoutRequest is the optional body of POST /logout. UserID is recorded with
// the logout; AllDevices additionally ends every session of that user.
type LogoutRequest struct {
	UserID     string `json:"user_id,omitempty"`
	AllDevices bool   `json:"all_devices,omitempty"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Email   string      `json:"email"`
	Role    domain.Role `json:"role"`
	IECodes []string    `json:"ie_codes,omitempty"`
	Modules []string    `json:"modules,omitempty"`
}

// LoginResponse is returned by POST /login. The session travels in a cookie.
type LoginResponse struct {
	User      UserResponse `json:"user"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// AdminLoginResponse is returned by POST /admin/login.
type AdminLoginResponse struct {
	User      UserResponse `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// MeResponse describes the authenticated principal.
type MeResponse struct {
	User UserResponse          `json:"user"`
	Kind domain.CredentialKind `json:"kind"`
}

// ErrorResponse mirrors the error envelope written by the error middleware.
type ErrorResponse struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details,omitempty"`
	} `json:"error"`
}

// NewUserResponse converts a domain user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:      u.ID,
		Name:    u.Name,
		Email:   u.Email,
		Role:    u.Role,
		IECodes: u.IECodes,
		Modules: u.Modules,
	}
}
