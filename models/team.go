package models

import "time"

// TeamStatus matches the ENUM in the database.
type TeamStatus string

const (
	TeamStatusActive    TeamStatus = "ACTIVE"
	TeamStatusInactive  TeamStatus = "INACTIVE"
	TeamStatusSuspended TeamStatus = "SUSPENDED"
)

func (s TeamStatus) Valid() bool {
	switch s {
	case TeamStatusActive, TeamStatusInactive, TeamStatusSuspended:
		return true
	}
	return false
}

// Team is soft-deleted: DeletedAt is a tombstone, rows are never removed so
// historical references (matches, invites) stay valid.
type Team struct {
	ID        int        `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	Tag       string     `json:"tag" db:"tag"`
	Region    string     `json:"region" db:"region"`
	Color     *string    `json:"color,omitempty" db:"color"`
	CaptainID int        `json:"captain_id" db:"captain_id"`
	Status    TeamStatus `json:"status" db:"status"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`

	LogoKey   *string `json:"-" db:"logo_key"`
	BannerKey *string `json:"-" db:"banner_key"`
	LogoURL   *string `json:"logo_url,omitempty" db:"-"`
	BannerURL *string `json:"banner_url,omitempty" db:"-"`

	Players []Player `json:"players,omitempty" db:"-"`
}
