package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/arenaleague/arena/models"
	"github.com/lib/pq"
)

var (
	ErrWaitlistPositionConflict = errors.New("waitlist position conflict")
	ErrWaitlistTeamConflict     = errors.New("team is already on the waitlist for this tournament")
)

type WaitlistRepository interface {
	Create(ctx context.Context, exec SQLExecutor, entry *models.WaitlistEntry) error
	// CountByTournament counts all positions ever assigned; the next position
	// is count+1. Positions are never reused, so this must run in the same
	// transaction as Create.
	CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.WaitlistEntry, error)
	// DeleteByTournamentAndTeam removes the team's waitlist row if present.
	// Absence is not an error.
	DeleteByTournamentAndTeam(ctx context.Context, exec SQLExecutor, tournamentID, teamID int) error
}

type postgresWaitlistRepository struct {
	db *sql.DB
}

func NewPostgresWaitlistRepository(db *sql.DB) WaitlistRepository {
	return &postgresWaitlistRepository{db: db}
}

func (r *postgresWaitlistRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresWaitlistRepository) Create(ctx context.Context, exec SQLExecutor, entry *models.WaitlistEntry) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO waitlist_entries (tournament_id, team_id, position)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		entry.TournamentID, entry.TeamID, entry.Position,
	).Scan(&entry.ID, &entry.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			switch pqErr.Constraint {
			case "waitlist_tournament_position_key":
				return ErrWaitlistPositionConflict
			case "waitlist_tournament_team_key":
				return ErrWaitlistTeamConflict
			}
		}
		return err
	}
	return nil
}

func (r *postgresWaitlistRepository) CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	executor := r.getExecutor(exec)
	// Positions are monotonic even after deletions, so count assigned history
	// via the max position, not the row count.
	query := `SELECT COALESCE(MAX(position), 0) FROM waitlist_entries WHERE tournament_id = $1`

	var count int
	if err := executor.QueryRowContext(ctx, query, tournamentID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *postgresWaitlistRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.WaitlistEntry, error) {
	query := `
		SELECT id, tournament_id, team_id, position, created_at
		FROM waitlist_entries
		WHERE tournament_id = $1
		ORDER BY position ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*models.WaitlistEntry, 0)
	for rows.Next() {
		e := &models.WaitlistEntry{}
		if scanErr := rows.Scan(&e.ID, &e.TournamentID, &e.TeamID, &e.Position, &e.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *postgresWaitlistRepository) DeleteByTournamentAndTeam(ctx context.Context, exec SQLExecutor, tournamentID, teamID int) error {
	executor := r.getExecutor(exec)
	query := `DELETE FROM waitlist_entries WHERE tournament_id = $1 AND team_id = $2`
	_, err := executor.ExecContext(ctx, query, tournamentID, teamID)
	return err
}
