package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/arenaleague/arena/models"
	"github.com/lib/pq"
)

var (
	ErrInviteNotFound    = errors.New("invite not found")
	ErrInviteTeamInvalid = errors.New("invite team reference invalid")
	ErrInviteUserInvalid = errors.New("invite user reference invalid")
)

type InviteRepository interface {
	Create(ctx context.Context, exec SQLExecutor, invite *models.TeamInvite) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.TeamInvite, error)
	ListByTeam(ctx context.Context, exec SQLExecutor, teamID int) ([]*models.TeamInvite, error)
	// FindPendingByTeamAndIGN returns a PENDING invite for the pair, expired
	// or not, or ErrInviteNotFound.
	FindPendingByTeamAndIGN(ctx context.Context, exec SQLExecutor, teamID int, ign string) (*models.TeamInvite, error)
	// CountPendingByUser counts PENDING, unexpired invites addressed to the
	// user across all teams.
	CountPendingByUser(ctx context.Context, exec SQLExecutor, userID int, now time.Time) (int, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.InviteStatus) error
	// CancelPendingByUser flips every PENDING invite for the user to CANCELLED
	// except the given one. Returns the number of invites cancelled.
	CancelPendingByUser(ctx context.Context, exec SQLExecutor, userID int, exceptID int) (int64, error)
	// ExpireLapsed flips PENDING invites of the team whose expiry has passed
	// to EXPIRED. Called on read paths; there is no background sweeper.
	ExpireLapsed(ctx context.Context, exec SQLExecutor, teamID int, now time.Time) (int64, error)
}

type postgresInviteRepository struct {
	db *sql.DB
}

func NewPostgresInviteRepository(db *sql.DB) InviteRepository {
	return &postgresInviteRepository{db: db}
}

func (r *postgresInviteRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const inviteColumns = `id, team_id, to_user_id, to_ign, message, status, expires_at, created_at`

func scanInvite(row interface{ Scan(...interface{}) error }) (*models.TeamInvite, error) {
	i := &models.TeamInvite{}
	err := row.Scan(
		&i.ID, &i.TeamID, &i.ToUserID, &i.ToIGN, &i.Message,
		&i.Status, &i.ExpiresAt, &i.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return i, nil
}

func (r *postgresInviteRepository) Create(ctx context.Context, exec SQLExecutor, invite *models.TeamInvite) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO team_invites (team_id, to_user_id, to_ign, message, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		invite.TeamID, invite.ToUserID, invite.ToIGN, invite.Message,
		invite.Status, invite.ExpiresAt,
	).Scan(&invite.ID, &invite.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			switch pqErr.Constraint {
			case "team_invites_team_id_fkey":
				return ErrInviteTeamInvalid
			case "team_invites_to_user_id_fkey":
				return ErrInviteUserInvalid
			}
		}
		return err
	}
	return nil
}

func (r *postgresInviteRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.TeamInvite, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + inviteColumns + ` FROM team_invites WHERE id = $1`
	invite, err := scanInvite(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInviteNotFound
		}
		return nil, err
	}
	return invite, nil
}

func (r *postgresInviteRepository) ListByTeam(ctx context.Context, exec SQLExecutor, teamID int) ([]*models.TeamInvite, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT ` + inviteColumns + `
		FROM team_invites
		WHERE team_id = $1
		ORDER BY created_at DESC`

	rows, err := executor.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invites := make([]*models.TeamInvite, 0)
	for rows.Next() {
		invite, scanErr := scanInvite(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		invites = append(invites, invite)
	}
	return invites, rows.Err()
}

func (r *postgresInviteRepository) FindPendingByTeamAndIGN(ctx context.Context, exec SQLExecutor, teamID int, ign string) (*models.TeamInvite, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT ` + inviteColumns + `
		FROM team_invites
		WHERE team_id = $1 AND lower(to_ign) = lower($2) AND status = $3
		LIMIT 1`

	invite, err := scanInvite(executor.QueryRowContext(ctx, query, teamID, ign, models.InviteStatusPending))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInviteNotFound
		}
		return nil, err
	}
	return invite, nil
}

func (r *postgresInviteRepository) CountPendingByUser(ctx context.Context, exec SQLExecutor, userID int, now time.Time) (int, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT COUNT(*)
		FROM team_invites
		WHERE to_user_id = $1 AND status = $2 AND expires_at > $3`

	var count int
	err := executor.QueryRowContext(ctx, query, userID, models.InviteStatusPending, now).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *postgresInviteRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.InviteStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE team_invites SET status = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrInviteNotFound)
}

func (r *postgresInviteRepository) CancelPendingByUser(ctx context.Context, exec SQLExecutor, userID int, exceptID int) (int64, error) {
	executor := r.getExecutor(exec)
	query := `
		UPDATE team_invites SET status = $1
		WHERE to_user_id = $2 AND status = $3 AND id <> $4`

	result, err := executor.ExecContext(ctx, query,
		models.InviteStatusCancelled, userID, models.InviteStatusPending, exceptID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *postgresInviteRepository) ExpireLapsed(ctx context.Context, exec SQLExecutor, teamID int, now time.Time) (int64, error) {
	executor := r.getExecutor(exec)
	query := `
		UPDATE team_invites SET status = $1
		WHERE team_id = $2 AND status = $3 AND expires_at <= $4`

	result, err := executor.ExecContext(ctx, query,
		models.InviteStatusExpired, teamID, models.InviteStatusPending, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
