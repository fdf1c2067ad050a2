package repositories

import (
	"context"
	"database/sql"

	"github.com/arenaleague/arena/models"
)

// AuditRepository appends immutable action records. There is no update or
// delete path on purpose.
type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditLogEntry) error
	ListByTarget(ctx context.Context, targetType string, targetID int) ([]*models.AuditLogEntry, error)
}

type postgresAuditRepository struct {
	db *sql.DB
}

func NewPostgresAuditRepository(db *sql.DB) AuditRepository {
	return &postgresAuditRepository{db: db}
}

func (r *postgresAuditRepository) Create(ctx context.Context, entry *models.AuditLogEntry) error {
	query := `
		INSERT INTO audit_log (actor_id, action, target_type, target_id, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	details := entry.Details
	if len(details) == 0 {
		details = []byte("{}")
	}

	return r.db.QueryRowContext(ctx, query,
		entry.ActorID, entry.Action, entry.TargetType, entry.TargetID, []byte(details),
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *postgresAuditRepository) ListByTarget(ctx context.Context, targetType string, targetID int) ([]*models.AuditLogEntry, error) {
	query := `
		SELECT id, actor_id, action, target_type, target_id, details, created_at
		FROM audit_log
		WHERE target_type = $1 AND target_id = $2
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, targetType, targetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*models.AuditLogEntry, 0)
	for rows.Next() {
		e := &models.AuditLogEntry{}
		if scanErr := rows.Scan(
			&e.ID, &e.ActorID, &e.Action, &e.TargetType, &e.TargetID,
			&e.Details, &e.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
