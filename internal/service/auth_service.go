package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/exim-session/internal/auth"
	"github.com/spec-kit/exim-session/internal/config"
	"github.com/spec-kit/exim-session/internal/domain"
	"github.com/spec-kit/exim-session/internal/events"
	"github.com/spec-kit/exim-session/internal/repository"
	apperrors "github.com/spec-kit/exim-session/pkg/util"
)

// AuthService coordinates login, session checks and logout.
type AuthService struct {
	users      repository.UserRepository
	sessions   repository.SessionRepository
	dispatcher events.Dispatcher
	tokenMgr   *auth.TokenManager
	sessionTTL time.Duration
	bcryptCost int
	now        func() time.Time
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo    repository.UserRepository
	SessionRepo repository.SessionRepository
	Dispatcher  events.Dispatcher
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	dispatcher := deps.Dispatcher
	if dispatcher == nil {
		dispatcher = events.NewInMemoryDispatcher(nil)
	}
	return &AuthService{
		users:      deps.UserRepo,
		sessions:   deps.SessionRepo,
		dispatcher: dispatcher,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AdminTokenTTLMinutes),
		sessionTTL: cfg.Auth.SessionTTL(),
		bcryptCost: cfg.Auth.BcryptCost,
		now:        time.Now,
	}
}

// WithClock overrides the service and token clocks.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	s.tokenMgr.WithClock(now)
	return s
}

// LoginUser authenticates an importer and opens a cookie session.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (*domain.User, *domain.Session, error) {
	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}
	if user.Role.IsAdmin() {
		return nil, nil, apperrors.NewForbidden("administrators sign in through /admin/login")
	}

	now := s.now()
	sess := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Role:      user.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}

	s.publish(ctx, events.EventSessionStarted, events.Actor{Kind: domain.KindUser, UserID: user.ID, Role: user.Role},
		events.SessionStartedPayload{SessionID: sess.ID, ExpiresAt: sess.ExpiresAt})
	return user, sess, nil
}

// LoginAdmin authenticates an admin or superadmin and issues a signed token.
func (s *AuthService) LoginAdmin(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if !user.Role.IsAdmin() {
		return nil, "", time.Time{}, apperrors.NewForbidden("admin role required")
	}

	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}

	s.publish(ctx, events.EventSessionStarted, events.Actor{Kind: domain.KindAdmin, UserID: user.ID, Role: user.Role},
		events.SessionStartedPayload{ExpiresAt: exp})
	return user, token, exp, nil
}

func (s *AuthService) authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password required", nil)
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized(auth.ErrInvalidCredentials.Error())
		}
		return nil, apperrors.NewInternalError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized(err.Error())
	}
	if !user.Active() {
		return nil, apperrors.NewForbidden("account suspended")
	}
	return user, nil
}

// ValidateSession returns the live session for sessionID.
func (s *AuthService) ValidateSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.publish(ctx, events.EventSessionRejected, events.Actor{Kind: domain.KindUser},
				events.SessionRejectedPayload{Reason: "session not found or expired"})
			return nil, apperrors.NewSessionExpired("session not found or expired")
		}
		return nil, apperrors.NewInternalError(err)
	}
	return sess, nil
}

// Logout ends the cookie session. userID is only recorded unless allDevices
// is set and it names the session's owner, in which case every session of
// that user is ended. Logout never fails for an unknown session.
func (s *AuthService) Logout(ctx context.Context, sessionID, userID string, allDevices bool) (int, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return 0, apperrors.NewInternalError(err)
	}
	if sess == nil {
		return 0, nil
	}

	revoked := 1
	if allDevices && userID != "" && userID == sess.UserID {
		revoked, err = s.sessions.DeleteByUser(ctx, sess.UserID)
	} else {
		err = s.sessions.Delete(ctx, sess.ID)
	}
	if err != nil {
		return 0, apperrors.NewInternalError(err)
	}

	s.publish(ctx, events.EventSessionEnded, events.Actor{Kind: domain.KindUser, UserID: sess.UserID, Role: sess.Role},
		events.SessionEndedPayload{SessionID: sess.ID, Revoked: revoked, ClaimedUserID: userID})
	return revoked, nil
}

// LogoutAdmin records the end of an admin token session. Admin tokens are
// stateless, so nothing is revoked server side.
func (s *AuthService) LogoutAdmin(ctx context.Context, claims *auth.Claims) {
	s.publish(ctx, events.EventSessionEnded, events.Actor{Kind: domain.KindAdmin, UserID: claims.Subject, Role: claims.Role},
		events.SessionEndedPayload{})
}

// EnsureAdmin creates a superadmin with the given credentials unless an
// account with that email already exists. It reports whether one was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, name, email, password string) (bool, error) {
	if email == "" || password == "" {
		return false, apperrors.NewValidationError("email and password required", nil)
	}
	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return false, apperrors.NewInternalError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return false, apperrors.NewInternalError(err)
	}
	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleSuperadmin,
		Status:       domain.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return false, apperrors.NewInternalError(err)
	}
	return true, nil
}

// User loads an account by id.
func (s *AuthService) User(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("account not found")
		}
		return nil, apperrors.NewInternalError(err)
	}
	return user, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) publish(ctx context.Context, typ events.EventType, actor events.Actor, payload interface{}) {
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      typ,
		Actor:     actor,
		Timestamp: s.now(),
		Payload:   payload,
	})
}
