package models

import "time"

// TournamentStatus matches the ENUM in the database.
type TournamentStatus string

const (
	TournamentStatusUpcoming  TournamentStatus = "UPCOMING"
	TournamentStatusOpen      TournamentStatus = "OPEN"
	TournamentStatusClosed    TournamentStatus = "CLOSED"
	TournamentStatusOngoing   TournamentStatus = "ONGOING"
	TournamentStatusCompleted TournamentStatus = "COMPLETED"
	TournamentStatusCancelled TournamentStatus = "CANCELLED"
)

func (s TournamentStatus) Valid() bool {
	switch s {
	case TournamentStatusUpcoming, TournamentStatusOpen, TournamentStatusClosed,
		TournamentStatusOngoing, TournamentStatusCompleted, TournamentStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the status may move to next.
func (s TournamentStatus) CanTransitionTo(next TournamentStatus) bool {
	if s == next {
		return true
	}
	allowed := map[TournamentStatus][]TournamentStatus{
		TournamentStatusUpcoming:  {TournamentStatusOpen, TournamentStatusCancelled},
		TournamentStatusOpen:      {TournamentStatusClosed, TournamentStatusCancelled},
		TournamentStatusClosed:    {TournamentStatusOngoing, TournamentStatusCancelled},
		TournamentStatusOngoing:   {TournamentStatusCompleted, TournamentStatusCancelled},
		TournamentStatusCompleted: {},
		TournamentStatusCancelled: {},
	}
	for _, n := range allowed[s] {
		if n == next {
			return true
		}
	}
	return false
}

// AcceptsRegistrations reports whether teams may still submit registrations.
func (s TournamentStatus) AcceptsRegistrations() bool {
	return s == TournamentStatusOpen || s == TournamentStatusUpcoming
}

// Tournament capacity is tracked by Filled, incremented only when a
// registration is approved. Bracket is stored as an opaque JSON document;
// this service never computes it.
type Tournament struct {
	ID                   int              `json:"id" db:"id"`
	Name                 string           `json:"name" db:"name"`
	Game                 string           `json:"game" db:"game"`
	Description          *string          `json:"description,omitempty" db:"description"`
	Slots                int              `json:"slots" db:"slots"`
	Filled               int              `json:"filled" db:"filled"`
	RegistrationDeadline time.Time        `json:"registration_deadline" db:"registration_deadline"`
	StartDate            time.Time        `json:"start_date" db:"start_date"`
	Status               TournamentStatus `json:"status" db:"status"`
	Bracket              *string          `json:"bracket,omitempty" db:"bracket"`
	CreatedByID          int              `json:"created_by_id" db:"created_by_id"`
	CreatedAt            time.Time        `json:"created_at" db:"created_at"`
}
