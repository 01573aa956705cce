// Package client talks to the EXIM session API on behalf of a logged-in
// principal.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/exim-session/internal/api/dto"
	"github.com/spec-kit/exim-session/internal/credential"
	"github.com/spec-kit/exim-session/internal/session"
	apperrors "github.com/spec-kit/exim-session/pkg/util"
)

// Client wraps two HTTP clients sharing one cookie jar. The plain one is used
// for login, logout and the session check; the API one reports 401/403
// responses to the coordinator.
type Client struct {
	base   string
	creds  *credential.Store
	plain  *http.Client
	api    *http.Client
	logger *zap.Logger
}

// NewHTTPClient returns the plain client used for login, logout and session
// checks. It carries the session cookie and, when stored, the admin token.
func NewHTTPClient(creds *credential.Store, timeout time.Duration) *http.Client {
	return &http.Client{
		Jar:       creds.Jar(),
		Timeout:   timeout,
		Transport: &bearerTransport{tokens: creds},
	}
}

// New builds a Client. rejecter is normally the process Coordinator.
func New(apiBase string, creds *credential.Store, plain *http.Client, rejecter session.Rejecter, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	base := strings.TrimRight(apiBase, "/")
	validationURL := session.ValidationURL(base)

	api := &http.Client{
		Jar:     plain.Jar,
		Timeout: plain.Timeout,
		Transport: &session.Transport{
			Base:        plain.Transport,
			Rejecter:    rejecter,
			Credentials: creds,
			Skip: func(r *http.Request) bool {
				return r.URL.String() == validationURL
			},
		},
	}

	return &Client{base: base, creds: creds, plain: plain, api: api, logger: logger}
}

// LoginUser opens a cookie session for an importer.
func (c *Client) LoginUser(ctx context.Context, email, password string) (*dto.UserResponse, error) {
	var out dto.LoginResponse
	if err := c.send(ctx, c.plain, http.MethodPost, "/login", dto.LoginRequest{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	c.creds.SetUserSession(out.User.ID)
	return &out.User, nil
}

// LoginAdmin obtains a signed admin token and stores it.
func (c *Client) LoginAdmin(ctx context.Context, email, password string) (*dto.UserResponse, error) {
	var out dto.AdminLoginResponse
	if err := c.send(ctx, c.plain, http.MethodPost, "/admin/login", dto.LoginRequest{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	c.creds.SetAdminToken(out.User.ID, out.Token)
	return &out.User, nil
}

// Logout tells the server to end the session. userID may be empty.
func (c *Client) Logout(ctx context.Context, userID string) error {
	var body any
	if userID != "" {
		body = dto.LogoutRequest{UserID: userID}
	}
	return c.send(ctx, c.plain, http.MethodPost, "/logout", body, nil)
}

// Me fetches the current principal through the intercepting client.
func (c *Client) Me(ctx context.Context) (*dto.UserResponse, error) {
	var out dto.MeResponse
	if err := c.send(ctx, c.api, http.MethodGet, "/me", nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// KeepAlive fetches the principal every interval until ctx is done, so a
// server-side rejection reaches the interceptor between polls. Ticks are
// skipped while no credential is stored.
func (c *Client) KeepAlive(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.creds.ActiveKind().Valid() {
				continue
			}
			if _, err := c.Me(ctx); err != nil {
				c.logger.Debug("keepalive request failed", zap.Error(err))
			}
		}
	}
}

// Do sends an authenticated request through the intercepting client.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.api.Do(req)
}

func (c *Client) send(ctx context.Context, hc *http.Client, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return json.Unmarshal(envelope.Data, out)
}

func decodeError(resp *http.Response) error {
	var payload dto.ErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&payload)

	code := payload.Error.Code
	if code == "" {
		code = http.StatusText(resp.StatusCode)
	}
	msg := payload.Error.Message
	if msg == "" {
		msg = resp.Status
	}
	return apperrors.NewDomainError(code, msg, resp.StatusCode, payload.Error.Details)
}

// bearerTransport attaches the admin token when one is stored.
type bearerTransport struct {
	base   http.RoundTripper
	tokens session.TokenSource
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	token := t.tokens.AdminToken()
	if token == "" || req.Header.Get("Authorization") != "" {
		return base.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+token)
	return base.RoundTrip(clone)
}
