package domain

import "time"

// CredentialKind differentiates the two principal types that can be logged in.
type CredentialKind string

const (
	// KindNone means no credential is stored.
	KindNone  CredentialKind = ""
	KindUser  CredentialKind = "user"
	KindAdmin CredentialKind = "admin"
)

// Valid reports whether k names a real credential kind.
func (k CredentialKind) Valid() bool {
	return k == KindUser || k == KindAdmin
}

func (k CredentialKind) String() string {
	if k == KindNone {
		return "none"
	}
	return string(k)
}

// Session is a server side cookie session for an importer user.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
