package models

import "time"

// NotificationType tags what a notification is about; consumers route on it.
type NotificationType string

const (
	NotificationInviteReceived       NotificationType = "INVITE_RECEIVED"
	NotificationInviteDeclined       NotificationType = "INVITE_DECLINED"
	NotificationInviteAccepted       NotificationType = "INVITE_ACCEPTED"
	NotificationRegistrationDecided  NotificationType = "REGISTRATION_DECIDED"
	NotificationDisputeWindowOpened  NotificationType = "DISPUTE_WINDOW_OPENED"
	NotificationDisputeRaised        NotificationType = "DISPUTE_RAISED"
	NotificationDisputeResolved      NotificationType = "DISPUTE_RESOLVED"
	NotificationCaptaincyTransferred NotificationType = "CAPTAINCY_TRANSFERRED"
)

type Notification struct {
	ID        int              `json:"id" db:"id"`
	UserID    int              `json:"user_id" db:"user_id"`
	Type      NotificationType `json:"type" db:"type"`
	Title     string           `json:"title" db:"title"`
	Message   string           `json:"message" db:"message"`
	LinkURL   *string          `json:"link_url,omitempty" db:"link_url"`
	Read      bool             `json:"read" db:"read"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}
