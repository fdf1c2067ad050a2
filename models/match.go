package models

import "time"

type MatchStatus string

const (
	MatchStatusUpcoming  MatchStatus = "UPCOMING"
	MatchStatusLive      MatchStatus = "LIVE"
	MatchStatusCompleted MatchStatus = "COMPLETED"
	MatchStatusDisputed  MatchStatus = "DISPUTED"
	MatchStatusCancelled MatchStatus = "CANCELLED"
)

func (s MatchStatus) Valid() bool {
	switch s {
	case MatchStatusUpcoming, MatchStatusLive, MatchStatusCompleted,
		MatchStatusDisputed, MatchStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether the match can no longer change state on its own.
// DISPUTED is not terminal: resolution moves it back to COMPLETED.
func (s MatchStatus) Terminal() bool {
	return s == MatchStatusCancelled
}

// CanTransitionTo reports whether the status may move to next. CANCELLED is
// reachable from any non-terminal state as an administrative escape hatch.
func (s MatchStatus) CanTransitionTo(next MatchStatus) bool {
	if s == next {
		return true
	}
	if next == MatchStatusCancelled {
		return !s.Terminal()
	}
	allowed := map[MatchStatus][]MatchStatus{
		MatchStatusUpcoming:  {MatchStatusLive, MatchStatusCompleted},
		MatchStatusLive:      {MatchStatusCompleted},
		MatchStatusCompleted: {MatchStatusDisputed},
		MatchStatusDisputed:  {MatchStatusCompleted},
		MatchStatusCancelled: {},
	}
	for _, n := range allowed[s] {
		if n == next {
			return true
		}
	}
	return false
}

// DisputeWindow is how long after a match's last update a captain may contest
// the result. The window is anchored to UpdatedAt, not a separate completion
// timestamp, so later edits to the match move the anchor.
const DisputeWindow = 2 * time.Hour

type Match struct {
	ID            int         `json:"id" db:"id"`
	TournamentID  int         `json:"tournament_id" db:"tournament_id"`
	TeamAID       int         `json:"team_a_id" db:"team_a_id"`
	TeamBID       int         `json:"team_b_id" db:"team_b_id"`
	ScheduledTime time.Time   `json:"scheduled_time" db:"scheduled_time"`
	BestOf        int         `json:"best_of" db:"best_of"`
	RefereeID     *int        `json:"referee_id,omitempty" db:"referee_id"`
	Status        MatchStatus `json:"status" db:"status"`
	ScoreA        *int        `json:"score_a,omitempty" db:"score_a"`
	ScoreB        *int        `json:"score_b,omitempty" db:"score_b"`
	WinnerID      *int        `json:"winner_id,omitempty" db:"winner_id"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at" db:"updated_at"`
}

// Competes reports whether teamID is one of the two competing teams.
func (m *Match) Competes(teamID int) bool {
	return teamID == m.TeamAID || teamID == m.TeamBID
}

// DisputeWindowOpenAt reports whether the dispute window is still open at the
// given instant.
func (m *Match) DisputeWindowOpenAt(now time.Time) bool {
	return now.Sub(m.UpdatedAt) <= DisputeWindow
}

// MatchDispute is one-to-one with a match. It is resolved at most once.
type MatchDispute struct {
	ID            int        `json:"id" db:"id"`
	MatchID       int        `json:"match_id" db:"match_id"`
	RaisedByID    int        `json:"raised_by_id" db:"raised_by_id"`
	Reason        string     `json:"reason" db:"reason"`
	Resolution    *string    `json:"resolution,omitempty" db:"resolution"`
	ResultChanged bool       `json:"result_changed" db:"result_changed"`
	ResolvedByID  *int       `json:"resolved_by_id,omitempty" db:"resolved_by_id"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// Resolved reports whether the dispute has already been closed.
func (d *MatchDispute) Resolved() bool {
	return d.ResolvedAt != nil
}
