package services

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/arenaleague/arena/models"
	"github.com/arenaleague/arena/repositories"
)

// AuditService writes the audit trail for privileged operations. Failures are
// logged and swallowed: an audit write must never fail the mutation it
// describes, which has already committed.
type AuditService interface {
	AuditRecorder
	ListByTarget(ctx context.Context, targetType string, targetID int) ([]*models.AuditLogEntry, error)
}

type auditService struct {
	repo   repositories.AuditRepository
	logger *slog.Logger
}

func NewAuditService(repo repositories.AuditRepository, logger *slog.Logger) AuditService {
	return &auditService{
		repo:   repo,
		logger: logger,
	}
}

func (s *auditService) Record(ctx context.Context, actorID int, action, targetType string, targetID int, details map[string]interface{}) {
	var raw json.RawMessage
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			s.logger.Warn("failed to marshal audit details",
				slog.String("action", action), slog.Any("error", err))
		} else {
			raw = b
		}
	}

	entry := &models.AuditLogEntry{
		ActorID:    actorID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Details:    raw,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Error("failed to write audit log entry",
			slog.String("action", action),
			slog.String("target_type", targetType),
			slog.Int("target_id", targetID),
			slog.Any("error", err))
	}
}

func (s *auditService) ListByTarget(ctx context.Context, targetType string, targetID int) ([]*models.AuditLogEntry, error) {
	return s.repo.ListByTarget(ctx, targetType, targetID)
}
