package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/arenaleague/arena/models"
	"github.com/lib/pq"
)

var (
	ErrTeamNotFound        = errors.New("team not found")
	ErrTeamNameConflict    = errors.New("team name is already in use")
	ErrTeamCaptainConflict = errors.New("user already captains a team")
	ErrTeamCaptainInvalid  = errors.New("team captain reference invalid")
)

type TeamRepository interface {
	Create(ctx context.Context, exec SQLExecutor, team *models.Team) error
	// GetByID returns the team regardless of deletion; callers that need the
	// active set must check DeletedAt.
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Team, error)
	GetActiveByCaptain(ctx context.Context, captainID int) (*models.Team, error)
	UpdateCaptain(ctx context.Context, exec SQLExecutor, teamID, newCaptainID int) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, teamID int, status models.TeamStatus) error
	UpdateMediaKeys(ctx context.Context, teamID int, logoKey, bannerKey *string) error
	SoftDelete(ctx context.Context, exec SQLExecutor, teamID int) error
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const teamColumns = `id, name, tag, region, color, captain_id, status, logo_key, banner_key, created_at, deleted_at`

func scanTeam(row interface{ Scan(...interface{}) error }) (*models.Team, error) {
	t := &models.Team{}
	err := row.Scan(
		&t.ID, &t.Name, &t.Tag, &t.Region, &t.Color, &t.CaptainID,
		&t.Status, &t.LogoKey, &t.BannerKey, &t.CreatedAt, &t.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *postgresTeamRepository) Create(ctx context.Context, exec SQLExecutor, team *models.Team) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO teams (name, tag, region, color, captain_id, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		team.Name, team.Tag, team.Region, team.Color, team.CaptainID, team.Status,
	).Scan(&team.ID, &team.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				switch pqErr.Constraint {
				case "teams_name_active_key":
					return ErrTeamNameConflict
				case "teams_captain_active_key":
					return ErrTeamCaptainConflict
				}
			case "23503":
				if pqErr.Constraint == "teams_captain_id_fkey" {
					return ErrTeamCaptainInvalid
				}
			}
		}
		return err
	}
	return nil
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Team, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = $1`
	team, err := scanTeam(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return team, nil
}

func (r *postgresTeamRepository) GetActiveByCaptain(ctx context.Context, captainID int) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE captain_id = $1 AND deleted_at IS NULL`
	team, err := scanTeam(r.db.QueryRowContext(ctx, query, captainID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return team, nil
}

func (r *postgresTeamRepository) UpdateCaptain(ctx context.Context, exec SQLExecutor, teamID, newCaptainID int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE teams SET captain_id = $1 WHERE id = $2 AND deleted_at IS NULL`
	result, err := executor.ExecContext(ctx, query, newCaptainID, teamID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return ErrTeamCaptainInvalid
		}
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, teamID int, status models.TeamStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE teams SET status = $1 WHERE id = $2 AND deleted_at IS NULL`
	result, err := executor.ExecContext(ctx, query, status, teamID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) UpdateMediaKeys(ctx context.Context, teamID int, logoKey, bannerKey *string) error {
	query := `
		UPDATE teams SET
			logo_key = COALESCE($1, logo_key),
			banner_key = COALESCE($2, banner_key)
		WHERE id = $3 AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, logoKey, bannerKey, teamID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) SoftDelete(ctx context.Context, exec SQLExecutor, teamID int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE teams SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	result, err := executor.ExecContext(ctx, query, teamID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}
