package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/arenaleague/arena/models"
	"github.com/lib/pq"
)

var (
	ErrDisputeNotFound = errors.New("dispute not found")
	// ErrDisputeConflict maps the unique index on match_id: one dispute per match.
	ErrDisputeConflict     = errors.New("dispute already raised for this match")
	ErrDisputeMatchInvalid = errors.New("dispute match reference invalid")
)

type DisputeRepository interface {
	Create(ctx context.Context, exec SQLExecutor, dispute *models.MatchDispute) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.MatchDispute, error)
	GetByMatch(ctx context.Context, exec SQLExecutor, matchID int) (*models.MatchDispute, error)
	// Resolve stamps resolution fields. Rows are never updated twice; the
	// service guards with Resolved() before calling.
	Resolve(ctx context.Context, exec SQLExecutor, dispute *models.MatchDispute) error
}

type postgresDisputeRepository struct {
	db *sql.DB
}

func NewPostgresDisputeRepository(db *sql.DB) DisputeRepository {
	return &postgresDisputeRepository{db: db}
}

func (r *postgresDisputeRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const disputeColumns = `id, match_id, raised_by_id, reason, resolution, result_changed, resolved_by_id, resolved_at, created_at`

func scanDispute(row interface{ Scan(...interface{}) error }) (*models.MatchDispute, error) {
	d := &models.MatchDispute{}
	err := row.Scan(
		&d.ID, &d.MatchID, &d.RaisedByID, &d.Reason, &d.Resolution,
		&d.ResultChanged, &d.ResolvedByID, &d.ResolvedAt, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *postgresDisputeRepository) Create(ctx context.Context, exec SQLExecutor, dispute *models.MatchDispute) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO match_disputes (match_id, raised_by_id, reason)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		dispute.MatchID, dispute.RaisedByID, dispute.Reason,
	).Scan(&dispute.ID, &dispute.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				if pqErr.Constraint == "match_disputes_match_id_key" {
					return ErrDisputeConflict
				}
			case "23503":
				if pqErr.Constraint == "match_disputes_match_id_fkey" {
					return ErrDisputeMatchInvalid
				}
			}
		}
		return err
	}
	return nil
}

func (r *postgresDisputeRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.MatchDispute, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + disputeColumns + ` FROM match_disputes WHERE id = $1`
	dispute, err := scanDispute(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDisputeNotFound
		}
		return nil, err
	}
	return dispute, nil
}

func (r *postgresDisputeRepository) GetByMatch(ctx context.Context, exec SQLExecutor, matchID int) (*models.MatchDispute, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + disputeColumns + ` FROM match_disputes WHERE match_id = $1`
	dispute, err := scanDispute(executor.QueryRowContext(ctx, query, matchID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDisputeNotFound
		}
		return nil, err
	}
	return dispute, nil
}

func (r *postgresDisputeRepository) Resolve(ctx context.Context, exec SQLExecutor, dispute *models.MatchDispute) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE match_disputes SET
			resolution = $1,
			result_changed = $2,
			resolved_by_id = $3,
			resolved_at = $4
		WHERE id = $5 AND resolved_at IS NULL`

	result, err := executor.ExecContext(ctx, query,
		dispute.Resolution, dispute.ResultChanged, dispute.ResolvedByID,
		dispute.ResolvedAt, dispute.ID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrDisputeNotFound)
}
