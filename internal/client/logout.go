package client

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/spec-kit/exim-session/internal/credential"
	"github.com/spec-kit/exim-session/internal/domain"
	"github.com/spec-kit/exim-session/internal/session"
)

// LoginSurface is where a principal of the given kind signs in again.
func LoginSurface(kind domain.CredentialKind) string {
	if kind == domain.KindAdmin {
		return "/admin/login"
	}
	return "/login"
}

// LogoutHandler is the expiry listener that signs the principal out.
type LogoutHandler struct {
	client   *Client
	creds    *credential.Store
	logger   *zap.Logger
	redirect func(target string)
	notice   func(message string)
	busy     atomic.Bool
}

// NewLogoutHandler builds the listener. redirect and notice may be nil.
func NewLogoutHandler(c *Client, creds *credential.Store, logger *zap.Logger, redirect func(string), notice func(string)) *LogoutHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogoutHandler{client: c, creds: creds, logger: logger, redirect: redirect, notice: notice}
}

// Handle implements session.Listener. Notifications that arrive while a logout
// is running, or after credentials are already gone, are ignored.
func (h *LogoutHandler) Handle(ctx context.Context, ev session.Expiry) error {
	if !h.busy.CompareAndSwap(false, true) {
		return nil
	}
	defer h.busy.Store(false)

	kind := h.creds.ActiveKind()
	if !kind.Valid() {
		return nil
	}

	if err := h.client.Logout(ctx, h.creds.UserID()); err != nil {
		h.logger.Warn("logout request failed; clearing credentials anyway", zap.Error(err))
	}
	h.creds.Clear()

	target := LoginSurface(kind)
	h.logger.Info("session expired",
		zap.String("kind", kind.String()),
		zap.String("reason", ev.Reason),
		zap.String("redirect", target))

	if h.notice != nil {
		h.notice("Your session has expired. Please sign in again.")
	}
	if h.redirect != nil {
		h.redirect(target)
	}
	return nil
}
