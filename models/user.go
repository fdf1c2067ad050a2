package models

import "time"

// UserRole enumerates platform roles, matching the ENUM in the database.
type UserRole string

const (
	RolePlayer          UserRole = "PLAYER"
	RoleReferee         UserRole = "REFEREE"
	RoleTournamentAdmin UserRole = "TOURNAMENT_ADMIN"
	RoleSuperAdmin      UserRole = "SUPER_ADMIN"
)

// IsPrivileged reports whether the role may perform tournament administration
// (approve registrations, resolve disputes, cancel matches).
func (r UserRole) IsPrivileged() bool {
	return r == RoleTournamentAdmin || r == RoleSuperAdmin
}

func (r UserRole) Valid() bool {
	switch r {
	case RolePlayer, RoleReferee, RoleTournamentAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

type User struct {
	ID           int       `json:"id" db:"id"`
	IGN          string    `json:"ign" db:"ign"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         UserRole  `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
