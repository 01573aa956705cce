package domain

import "time"

// UserStatus represents lifecycle states for an account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// Role is the access level of an account.
type Role string

const (
	RoleImporter   Role = "importer"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

// IsAdmin reports whether the role logs in through the admin token flow.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperadmin
}

// User is an EXIM account. Importers carry the IE codes and modules they are entitled to.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	IECodes      []string
	Modules      []string
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Active reports whether the account may log in.
func (u *User) Active() bool {
	return u.Status == UserStatusActive
}
