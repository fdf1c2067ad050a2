package models

import (
	"encoding/json"
	"time"
)

// AuditLogEntry is an immutable record of a privileged action, written after
// the core mutation has committed.
type AuditLogEntry struct {
	ID         int             `json:"id" db:"id"`
	ActorID    int             `json:"actor_id" db:"actor_id"`
	Action     string          `json:"action" db:"action"`
	TargetType string          `json:"target_type" db:"target_type"`
	TargetID   int             `json:"target_id" db:"target_id"`
	Details    json.RawMessage `json:"details,omitempty" db:"details"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}
