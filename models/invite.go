package models

import "time"

type InviteStatus string

const (
	InviteStatusPending   InviteStatus = "PENDING"
	InviteStatusAccepted  InviteStatus = "ACCEPTED"
	InviteStatusDeclined  InviteStatus = "DECLINED"
	InviteStatusExpired   InviteStatus = "EXPIRED"
	InviteStatusCancelled InviteStatus = "CANCELLED"
)

// Terminal reports whether no further action on the invite is possible.
func (s InviteStatus) Terminal() bool {
	return s != InviteStatusPending
}

// TeamInvite is a directed invitation from a team to a user, addressed by IGN.
// Expiry is lazy: a PENDING invite whose ExpiresAt has passed is flipped to
// EXPIRED the next time it is read or acted upon, never by a timer.
type TeamInvite struct {
	ID        int          `json:"id" db:"id"`
	TeamID    int          `json:"team_id" db:"team_id"`
	ToUserID  int          `json:"to_user_id" db:"to_user_id"`
	ToIGN     string       `json:"to_ign" db:"to_ign"`
	Message   *string      `json:"message,omitempty" db:"message"`
	Status    InviteStatus `json:"status" db:"status"`
	ExpiresAt time.Time    `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}

// LapsedAt reports whether the invite is past its expiry at the given instant.
// Status alone is not enough: PENDING rows can sit expired-but-unvisited.
func (i *TeamInvite) LapsedAt(now time.Time) bool {
	return i.Status == InviteStatusPending && now.After(i.ExpiresAt)
}

// TeamInviteLink is a shareable join code. At most one active link exists per
// team; generating a new one deactivates the previous.
type TeamInviteLink struct {
	ID        int       `json:"id" db:"id"`
	TeamID    int       `json:"team_id" db:"team_id"`
	Code      string    `json:"code" db:"code"`
	MaxUses   int       `json:"max_uses" db:"max_uses"`
	UsedCount int       `json:"used_count" db:"used_count"`
	Active    bool      `json:"active" db:"active"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Usable reports whether the link can still admit a player at the given instant.
func (l *TeamInviteLink) Usable(now time.Time) bool {
	return l.Active && now.Before(l.ExpiresAt) && l.UsedCount < l.MaxUses
}
