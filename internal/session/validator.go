package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/sony/gobreaker"
)

// Validator performs one underlying credential check. It returns nil when the
// credential is valid, an error wrapping ErrDefinitive when it is not, and any
// other error when validity could not be determined.
type Validator interface {
	Check(ctx context.Context) error
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(ctx context.Context) error

// Check calls f.
func (f ValidatorFunc) Check(ctx context.Context) error {
	return f(ctx)
}

// AdminValidator decodes the stored admin token and compares its expiry to
// the clock. It never touches the network and does not verify the signature;
// the server does that on every request.
type AdminValidator struct {
	tokens TokenSource
	now    func() time.Time
	parser *jwt.Parser
}

// NewAdminValidator builds a validator over the admin token slot.
func NewAdminValidator(tokens TokenSource) *AdminValidator {
	return &AdminValidator{tokens: tokens, now: time.Now, parser: jwt.NewParser()}
}

// WithClock overrides the time source used for expiry comparison.
func (v *AdminValidator) WithClock(now func() time.Time) *AdminValidator {
	v.now = now
	return v
}

// Check implements Validator.
func (v *AdminValidator) Check(_ context.Context) error {
	raw := strings.TrimSpace(v.tokens.AdminToken())
	if raw == "" {
		return fmt.Errorf("%w: admin token absent", ErrDefinitive)
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := v.parser.ParseUnverified(raw, claims); err != nil {
		return fmt.Errorf("%w: admin token malformed: %v", ErrDefinitive, err)
	}
	if claims.ExpiresAt == nil {
		return fmt.Errorf("%w: admin token has no expiry", ErrDefinitive)
	}
	if !claims.ExpiresAt.Time.After(v.now()) {
		return fmt.Errorf("%w: admin token expired at %s", ErrDefinitive, claims.ExpiresAt.Time.UTC().Format(time.RFC3339))
	}
	return nil
}

// UserValidator asks the API whether the cookie session is still alive.
type UserValidator struct {
	client   *http.Client
	endpoint string
	timeout  time.Duration
	breaker  *gobreaker.CircuitBreaker
}

// NewUserValidator targets <apiBase>/validate-session. The client must carry
// the cookie jar holding the session cookie.
func NewUserValidator(client *http.Client, apiBase string, timeout time.Duration) *UserValidator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &UserValidator{
		client:   client,
		endpoint: ValidationURL(apiBase),
		timeout:  timeout,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "session-check",
			Timeout: 30 * time.Second,
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, ErrDefinitive)
			},
		}),
	}
}

// ValidationURL returns the session check endpoint for apiBase.
func ValidationURL(apiBase string) string {
	return strings.TrimRight(apiBase, "/") + "/validate-session"
}

// Check implements Validator.
func (v *UserValidator) Check(ctx context.Context) error {
	_, err := v.breaker.Execute(func() (interface{}, error) {
		return nil, v.check(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	return err
}

func (v *UserValidator) check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrTransient, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: session rejected with status %d", ErrDefinitive, resp.StatusCode)
	default:
		return fmt.Errorf("%w: unexpected status %d", ErrTransient, resp.StatusCode)
	}
}
