package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/arenaleague/arena/models"
	"github.com/lib/pq"
)

var (
	ErrRegistrationNotFound = errors.New("registration not found")
	// ErrRegistrationConflict maps the partial unique index on
	// (tournament_id, team_id) over non-rejected rows.
	ErrRegistrationConflict          = errors.New("team is already registered for this tournament")
	ErrRegistrationTournamentInvalid = errors.New("registration tournament reference invalid")
	ErrRegistrationTeamInvalid       = errors.New("registration team reference invalid")
)

type RegistrationRepository interface {
	Create(ctx context.Context, exec SQLExecutor, reg *models.TournamentRegistration) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.TournamentRegistration, error)
	// FindActiveByTournamentAndTeam returns a PENDING or APPROVED registration
	// for the pair, or ErrRegistrationNotFound. REJECTED rows do not block
	// re-registration and are not returned.
	FindActiveByTournamentAndTeam(ctx context.Context, exec SQLExecutor, tournamentID, teamID int) (*models.TournamentRegistration, error)
	ListByTournament(ctx context.Context, tournamentID int, statusFilter *models.RegistrationStatus) ([]*models.TournamentRegistration, error)
	UpdateDecision(ctx context.Context, exec SQLExecutor, reg *models.TournamentRegistration) error
	// MaxSeed returns the highest seed assigned in the tournament, 0 if none.
	MaxSeed(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
}

type postgresRegistrationRepository struct {
	db *sql.DB
}

func NewPostgresRegistrationRepository(db *sql.DB) RegistrationRepository {
	return &postgresRegistrationRepository{db: db}
}

func (r *postgresRegistrationRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const registrationColumns = `id, tournament_id, team_id, status, seed, reason, decided_by_id, decided_at, created_at`

func scanRegistration(row interface{ Scan(...interface{}) error }) (*models.TournamentRegistration, error) {
	reg := &models.TournamentRegistration{}
	err := row.Scan(
		&reg.ID, &reg.TournamentID, &reg.TeamID, &reg.Status, &reg.Seed,
		&reg.Reason, &reg.DecidedByID, &reg.DecidedAt, &reg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return reg, nil
}

func (r *postgresRegistrationRepository) Create(ctx context.Context, exec SQLExecutor, reg *models.TournamentRegistration) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO tournament_registrations (tournament_id, team_id, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		reg.TournamentID, reg.TeamID, reg.Status,
	).Scan(&reg.ID, &reg.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				if pqErr.Constraint == "registrations_tournament_team_active_key" {
					return ErrRegistrationConflict
				}
			case "23503":
				switch pqErr.Constraint {
				case "tournament_registrations_tournament_id_fkey":
					return ErrRegistrationTournamentInvalid
				case "tournament_registrations_team_id_fkey":
					return ErrRegistrationTeamInvalid
				}
			}
		}
		return err
	}
	return nil
}

func (r *postgresRegistrationRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.TournamentRegistration, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + registrationColumns + ` FROM tournament_registrations WHERE id = $1`
	reg, err := scanRegistration(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (r *postgresRegistrationRepository) FindActiveByTournamentAndTeam(ctx context.Context, exec SQLExecutor, tournamentID, teamID int) (*models.TournamentRegistration, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT ` + registrationColumns + `
		FROM tournament_registrations
		WHERE tournament_id = $1 AND team_id = $2 AND status <> $3
		LIMIT 1`

	reg, err := scanRegistration(executor.QueryRowContext(ctx, query,
		tournamentID, teamID, models.RegistrationStatusRejected))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (r *postgresRegistrationRepository) ListByTournament(ctx context.Context, tournamentID int, statusFilter *models.RegistrationStatus) ([]*models.TournamentRegistration, error) {
	query := `SELECT ` + registrationColumns + ` FROM tournament_registrations WHERE tournament_id = $1`
	args := []interface{}{tournamentID}

	if statusFilter != nil {
		query += ` AND status = $2`
		args = append(args, *statusFilter)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	regs := make([]*models.TournamentRegistration, 0)
	for rows.Next() {
		reg, scanErr := scanRegistration(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

func (r *postgresRegistrationRepository) UpdateDecision(ctx context.Context, exec SQLExecutor, reg *models.TournamentRegistration) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE tournament_registrations SET
			status = $1,
			seed = $2,
			reason = $3,
			decided_by_id = $4,
			decided_at = $5
		WHERE id = $6`

	result, err := executor.ExecContext(ctx, query,
		reg.Status, reg.Seed, reg.Reason, reg.DecidedByID, reg.DecidedAt, reg.ID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}

func (r *postgresRegistrationRepository) MaxSeed(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	executor := r.getExecutor(exec)
	query := `SELECT COALESCE(MAX(seed), 0) FROM tournament_registrations WHERE tournament_id = $1`

	var max int
	if err := executor.QueryRowContext(ctx, query, tournamentID).Scan(&max); err != nil {
		return 0, err
	}
	return max, nil
}
