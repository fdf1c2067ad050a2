package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/arenaleague/arena/models"
	"github.com/lib/pq"
)

var (
	ErrPlayerNotFound     = errors.New("player not found")
	ErrPlayerIGNConflict  = errors.New("ign is already used by another player on this team")
	ErrPlayerRoleConflict = errors.New("role slot is already held by a starter")
	ErrPlayerTeamInvalid  = errors.New("player team reference invalid")
)

type PlayerRepository interface {
	Create(ctx context.Context, exec SQLExecutor, player *models.Player) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Player, error)
	// ListActiveByTeam returns non-deleted players ordered by creation time,
	// oldest first. Captaincy succession relies on this ordering.
	ListActiveByTeam(ctx context.Context, exec SQLExecutor, teamID int) ([]*models.Player, error)
	// FindActiveByUser returns the player row rostering the user on any
	// non-deleted team, or ErrPlayerNotFound.
	FindActiveByUser(ctx context.Context, exec SQLExecutor, userID int) (*models.Player, error)
	Update(ctx context.Context, exec SQLExecutor, player *models.Player) error
	SoftDelete(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

func (r *postgresPlayerRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const playerColumns = `id, team_id, user_id, ign, role, secondary_role, is_substitute, created_at, deleted_at`

func scanPlayer(row interface{ Scan(...interface{}) error }) (*models.Player, error) {
	p := &models.Player{}
	err := row.Scan(
		&p.ID, &p.TeamID, &p.UserID, &p.IGN, &p.Role,
		&p.SecondaryRole, &p.IsSubstitute, &p.CreatedAt, &p.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *postgresPlayerRepository) handlePlayerError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			switch pqErr.Constraint {
			case "players_team_ign_active_key":
				return ErrPlayerIGNConflict
			case "players_team_role_starter_key":
				return ErrPlayerRoleConflict
			}
		case "23503":
			if pqErr.Constraint == "players_team_id_fkey" {
				return ErrPlayerTeamInvalid
			}
		}
	}
	return err
}

func (r *postgresPlayerRepository) Create(ctx context.Context, exec SQLExecutor, player *models.Player) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO players (team_id, user_id, ign, role, secondary_role, is_substitute)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		player.TeamID, player.UserID, player.IGN, player.Role,
		player.SecondaryRole, player.IsSubstitute,
	).Scan(&player.ID, &player.CreatedAt)

	return r.handlePlayerError(err)
}

func (r *postgresPlayerRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Player, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = $1`
	player, err := scanPlayer(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	return player, nil
}

func (r *postgresPlayerRepository) ListActiveByTeam(ctx context.Context, exec SQLExecutor, teamID int) ([]*models.Player, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT ` + playerColumns + `
		FROM players
		WHERE team_id = $1 AND deleted_at IS NULL
		ORDER BY created_at ASC, id ASC`

	rows, err := executor.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players := make([]*models.Player, 0)
	for rows.Next() {
		player, scanErr := scanPlayer(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		players = append(players, player)
	}
	return players, rows.Err()
}

func (r *postgresPlayerRepository) FindActiveByUser(ctx context.Context, exec SQLExecutor, userID int) (*models.Player, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT p.id, p.team_id, p.user_id, p.ign, p.role, p.secondary_role, p.is_substitute, p.created_at, p.deleted_at
		FROM players p
		JOIN teams t ON t.id = p.team_id
		WHERE p.user_id = $1 AND p.deleted_at IS NULL AND t.deleted_at IS NULL
		LIMIT 1`

	player, err := scanPlayer(executor.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	return player, nil
}

func (r *postgresPlayerRepository) Update(ctx context.Context, exec SQLExecutor, player *models.Player) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE players SET
			ign = $1,
			role = $2,
			secondary_role = $3,
			is_substitute = $4
		WHERE id = $5 AND deleted_at IS NULL`

	result, err := executor.ExecContext(ctx, query,
		player.IGN, player.Role, player.SecondaryRole, player.IsSubstitute, player.ID,
	)
	if err != nil {
		return r.handlePlayerError(err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) SoftDelete(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE players SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}
