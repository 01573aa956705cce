// Package credential holds the logged-in principal on the client side. The
// admin token and the user session cookie live in separate slots and at most
// one of them is populated.
package credential

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"

	"github.com/spec-kit/exim-session/internal/domain"
)

// AdminTokenSlot is the well-known slot holding the signed admin token.
const AdminTokenSlot = "admin_token"

// Store keeps the active credential. The user slot is a marker recorded at
// login; the session cookie itself stays opaque in the jar and may expire
// there before the server says so.
type Store struct {
	mu          sync.RWMutex
	slots       map[string]string
	userSession bool
	userID      string
	jar         *cookiejar.Jar
	base        *url.URL
	cookieName  string
	onChange    []func()
}

// NewStore creates an empty store whose cookie jar is scoped to apiBase.
func NewStore(apiBase, cookieName string) (*Store, error) {
	base, err := url.Parse(apiBase)
	if err != nil {
		return nil, fmt.Errorf("parse api base: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("api base %q must be absolute", apiBase)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	return &Store{
		slots:      make(map[string]string),
		jar:        jar,
		base:       base,
		cookieName: cookieName,
	}, nil
}

// OnChange registers fn to run after every login or clear. It runs outside
// the store lock.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// Jar is the cookie jar that receives the http-only session cookie.
func (s *Store) Jar() http.CookieJar {
	return s.jar
}

// AdminToken returns the stored admin token, or "".
func (s *Store) AdminToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slots[AdminTokenSlot]
}

// UserID returns the id recorded at user or admin login.
func (s *Store) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// SetAdminToken stores an admin token and drops any user session.
func (s *Store) SetAdminToken(userID, token string) {
	s.update(func() {
		s.expireSessionCookie()
		s.userSession = false
		s.slots[AdminTokenSlot] = token
		s.userID = userID
	})
}

// SetUserSession records a user login. The session cookie itself arrives
// through the jar; any admin token is dropped.
func (s *Store) SetUserSession(userID string) {
	s.update(func() {
		delete(s.slots, AdminTokenSlot)
		s.userSession = true
		s.userID = userID
	})
}

// ActiveKind reports which slot is populated.
func (s *Store) ActiveKind() domain.CredentialKind {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.slots[AdminTokenSlot] != "" {
		return domain.KindAdmin
	}
	if s.userSession {
		return domain.KindUser
	}
	return domain.KindNone
}

// Clear removes every stored credential.
func (s *Store) Clear() {
	s.update(func() {
		delete(s.slots, AdminTokenSlot)
		s.expireSessionCookie()
		s.userSession = false
		s.userID = ""
	})
}

func (s *Store) update(fn func()) {
	s.mu.Lock()
	fn()
	hooks := append([]func(){}, s.onChange...)
	s.mu.Unlock()

	for _, hook := range hooks {
		hook()
	}
}

func (s *Store) expireSessionCookie() {
	s.jar.SetCookies(s.base, []*http.Cookie{{Name: s.cookieName, Value: "", Path: "/", MaxAge: -1}})
}
