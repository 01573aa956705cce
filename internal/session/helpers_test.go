package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type tokenSlot struct {
	mu    sync.Mutex
	token string
}

func (s *tokenSlot) AdminToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *tokenSlot) set(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

type staticKind struct{ kind Kind }

func (s staticKind) ActiveKind() Kind { return s.kind }

// countingValidator records how many underlying checks ran.
type countingValidator struct {
	calls atomic.Int32
	next  Validator
}

func (v *countingValidator) Check(ctx context.Context) error {
	v.calls.Add(1)
	return v.next.Check(ctx)
}

type recordedExpiry struct {
	mu     sync.Mutex
	events []Expiry
}

func (r *recordedExpiry) listener(_ context.Context, ev Expiry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordedExpiry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func signAdminToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "admin-1",
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(exp.Add(-time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}
