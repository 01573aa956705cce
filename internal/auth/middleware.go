package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/exim-session/internal/domain"
	apperrors "github.com/spec-kit/exim-session/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	Kind      domain.CredentialKind
	User      *domain.User
	SessionID string
	Claims    *Claims
}

// SessionLookup resolves cookie sessions and accounts.
type SessionLookup interface {
	ValidateSession(ctx context.Context, sessionID string) (*domain.Session, error)
	User(ctx context.Context, id string) (*domain.User, error)
}

// AuthMiddleware authenticates either a bearer admin token or the session cookie.
type AuthMiddleware struct {
	tokens     *TokenManager
	sessions   SessionLookup
	cookieName string
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, sessions SessionLookup, cookieName string) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, sessions: sessions, cookieName: cookieName}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	principal, err := m.Authenticate(c)
	if err != nil {
		return err
	}
	c.Locals(principalKey, principal)
	return c.Next()
}

// Authenticate resolves the caller without touching the handler chain. A
// bearer token takes precedence over the cookie.
func (m *AuthMiddleware) Authenticate(c *fiber.Ctx) (*Principal, error) {
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		return m.fromBearer(c, header)
	}

	sid := c.Cookies(m.cookieName)
	if sid == "" {
		return nil, apperrors.NewUnauthorized("missing session")
	}

	sess, err := m.sessions.ValidateSession(c.UserContext(), sid)
	if err != nil {
		return nil, err
	}
	user, err := m.sessions.User(c.UserContext(), sess.UserID)
	if err != nil {
		return nil, err
	}
	if !user.Active() {
		return nil, apperrors.NewForbidden("account suspended")
	}
	return &Principal{Kind: domain.KindUser, User: user, SessionID: sess.ID}, nil
}

func (m *AuthMiddleware) fromBearer(c *fiber.Ctx, header string) (*Principal, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return nil, apperrors.NewSessionExpired("invalid or expired token")
	}

	user, err := m.sessions.User(c.UserContext(), claims.Subject)
	if err != nil {
		return nil, err
	}
	if !user.Role.IsAdmin() {
		return nil, apperrors.NewForbidden("admin role revoked")
	}
	if !user.Active() {
		return nil, apperrors.NewForbidden("account suspended")
	}
	return &Principal{Kind: domain.KindAdmin, User: user, Claims: claims}, nil
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
