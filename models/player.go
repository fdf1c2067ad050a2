package models

import "time"

// PlayerRole is one of the five starter role slots.
type PlayerRole string

const (
	RoleExp      PlayerRole = "EXP"
	RoleJungle   PlayerRole = "JUNGLE"
	RoleMage     PlayerRole = "MAGE"
	RoleMarksman PlayerRole = "MARKSMAN"
	RoleRoam     PlayerRole = "ROAM"
)

// AllPlayerRoles lists the role slots a starting lineup must cover.
var AllPlayerRoles = []PlayerRole{RoleExp, RoleJungle, RoleMage, RoleMarksman, RoleRoam}

func (r PlayerRole) Valid() bool {
	switch r {
	case RoleExp, RoleJungle, RoleMage, RoleMarksman, RoleRoam:
		return true
	}
	return false
}

// MaxTeamSize bounds the non-deleted roster of a team (5 starters + subs).
const MaxTeamSize = 7

// Player is a roster slot on a team. UserID is set when the slot is held by a
// registered account (invite accept, link join); directly added players may
// not have an account yet.
type Player struct {
	ID            int         `json:"id" db:"id"`
	TeamID        int         `json:"team_id" db:"team_id"`
	UserID        *int        `json:"user_id,omitempty" db:"user_id"`
	IGN           string      `json:"ign" db:"ign"`
	Role          PlayerRole  `json:"role" db:"role"`
	SecondaryRole *PlayerRole `json:"secondary_role,omitempty" db:"secondary_role"`
	IsSubstitute  bool        `json:"is_substitute" db:"is_substitute"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
	DeletedAt     *time.Time  `json:"deleted_at,omitempty" db:"deleted_at"`
}

// IsStarter reports whether the player occupies a starter role slot.
// Deleted players never count.
func (p *Player) IsStarter() bool {
	return p.DeletedAt == nil && !p.IsSubstitute
}
