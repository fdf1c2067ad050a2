package services

import (
	"context"

	"github.com/arenaleague/arena/models"
)

// Notifier is a one-way message sink. Core services call it after their
// mutation has committed and never fail the operation on a notification
// error; callers log and move on.
type Notifier interface {
	Notify(ctx context.Context, userID int, ntype models.NotificationType, title, message string, linkURL *string) error
}

// AuditRecorder appends an immutable record of a privileged action after the
// core mutation has committed. Failures are swallowed and logged internally;
// audit delivery must not influence the core transaction's outcome.
type AuditRecorder interface {
	Record(ctx context.Context, actorID int, action, targetType string, targetID int, details map[string]interface{})
}
