package models

import "time"

type RegistrationStatus string

const (
	RegistrationStatusPending  RegistrationStatus = "PENDING"
	RegistrationStatusApproved RegistrationStatus = "APPROVED"
	RegistrationStatusRejected RegistrationStatus = "REJECTED"
)

// TournamentRegistration is unique per (tournament, team) while PENDING or
// APPROVED; a REJECTED registration does not block re-registration.
// Seed is assigned at approval, which is also the admission-control point
// where capacity is re-checked.
type TournamentRegistration struct {
	ID           int                `json:"id" db:"id"`
	TournamentID int                `json:"tournament_id" db:"tournament_id"`
	TeamID       int                `json:"team_id" db:"team_id"`
	Status       RegistrationStatus `json:"status" db:"status"`
	Seed         *int               `json:"seed,omitempty" db:"seed"`
	Reason       *string            `json:"reason,omitempty" db:"reason"`
	DecidedByID  *int               `json:"decided_by_id,omitempty" db:"decided_by_id"`
	DecidedAt    *time.Time         `json:"decided_at,omitempty" db:"decided_at"`
	CreatedAt    time.Time          `json:"created_at" db:"created_at"`
}

// WaitlistEntry queues a team for a full tournament. Position is 1-based,
// assigned monotonically per tournament and never reused.
type WaitlistEntry struct {
	ID           int       `json:"id" db:"id"`
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	TeamID       int       `json:"team_id" db:"team_id"`
	Position     int       `json:"position" db:"position"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
