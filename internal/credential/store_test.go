package credential

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/exim-session/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore("http://exim.local:9000/api", "exim_session")
	require.NoError(t, err)
	return s
}

func setSessionCookie(t *testing.T, s *Store, value string) {
	t.Helper()
	u, err := url.Parse("http://exim.local:9000/api/login")
	require.NoError(t, err)
	s.Jar().SetCookies(u, []*http.Cookie{{Name: "exim_session", Value: value, Path: "/", HttpOnly: true}})
}

func TestStoreStartsEmpty(t *testing.T) {
	s := newTestStore(t)
	assert.Equal(t, domain.KindNone, s.ActiveKind())
	assert.Empty(t, s.AdminToken())
}

func TestStoreUserSessionFromCookie(t *testing.T) {
	s := newTestStore(t)
	setSessionCookie(t, s, "sid-1")
	s.SetUserSession("user-1")

	assert.Equal(t, domain.KindUser, s.ActiveKind())
	assert.Equal(t, "user-1", s.UserID())
}

func TestStoreSlotsAreMutuallyExclusive(t *testing.T) {
	s := newTestStore(t)
	setSessionCookie(t, s, "sid-1")
	s.SetUserSession("user-1")

	s.SetAdminToken("admin-1", "token")
	assert.Equal(t, domain.KindAdmin, s.ActiveKind())
	assert.Equal(t, "token", s.AdminToken())

	setSessionCookie(t, s, "sid-2")
	s.SetUserSession("user-2")
	assert.Equal(t, domain.KindUser, s.ActiveKind())
	assert.Empty(t, s.AdminToken())
}

func TestStoreClear(t *testing.T) {
	s := newTestStore(t)
	setSessionCookie(t, s, "sid-1")
	s.SetUserSession("user-1")

	s.Clear()
	assert.Equal(t, domain.KindNone, s.ActiveKind())
	assert.Empty(t, s.UserID())
}

func TestStoreUserSessionOutlivesExpiredCookie(t *testing.T) {
	s := newTestStore(t)
	setSessionCookie(t, s, "sid-1")
	s.SetUserSession("user-1")

	u, err := url.Parse("http://exim.local:9000/api")
	require.NoError(t, err)
	s.Jar().SetCookies(u, []*http.Cookie{{Name: "exim_session", Value: "sid-1", Path: "/", MaxAge: -1}})
	require.Empty(t, s.Jar().Cookies(u))

	assert.Equal(t, domain.KindUser, s.ActiveKind())
}

func TestStoreOnChangeRunsForEveryTransition(t *testing.T) {
	s := newTestStore(t)
	calls := 0
	s.OnChange(func() {
		calls++
		assert.NotPanics(t, func() { s.ActiveKind() })
	})

	s.SetUserSession("user-1")
	s.SetAdminToken("admin-1", "token")
	s.Clear()

	assert.Equal(t, 3, calls)
}

func TestNewStoreRejectsRelativeBase(t *testing.T) {
	_, err := NewStore("/api", "exim_session")
	assert.Error(t, err)
}
