package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/arenaleague/arena/models"
	"github.com/lib/pq"
)

var (
	ErrInviteLinkNotFound     = errors.New("invite link not found")
	ErrInviteLinkCodeConflict = errors.New("invite link code conflict")
	ErrInviteLinkExhausted    = errors.New("invite link has no uses left")
)

type InviteLinkRepository interface {
	Create(ctx context.Context, exec SQLExecutor, link *models.TeamInviteLink) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.TeamInviteLink, error)
	GetByCode(ctx context.Context, exec SQLExecutor, code string) (*models.TeamInviteLink, error)
	GetActiveByTeam(ctx context.Context, exec SQLExecutor, teamID int) (*models.TeamInviteLink, error)
	// DeactivateByTeam flips any active link of the team to inactive.
	// Not finding one is not an error.
	DeactivateByTeam(ctx context.Context, exec SQLExecutor, teamID int) error
	Deactivate(ctx context.Context, exec SQLExecutor, id int) error
	// ConsumeUse increments used_count, guarded by max_uses so two concurrent
	// joins cannot overshoot the bound.
	ConsumeUse(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresInviteLinkRepository struct {
	db *sql.DB
}

func NewPostgresInviteLinkRepository(db *sql.DB) InviteLinkRepository {
	return &postgresInviteLinkRepository{db: db}
}

func (r *postgresInviteLinkRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const inviteLinkColumns = `id, team_id, code, max_uses, used_count, active, expires_at, created_at`

func scanInviteLink(row interface{ Scan(...interface{}) error }) (*models.TeamInviteLink, error) {
	l := &models.TeamInviteLink{}
	err := row.Scan(
		&l.ID, &l.TeamID, &l.Code, &l.MaxUses, &l.UsedCount,
		&l.Active, &l.ExpiresAt, &l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *postgresInviteLinkRepository) Create(ctx context.Context, exec SQLExecutor, link *models.TeamInviteLink) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO team_invite_links (team_id, code, max_uses, active, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, used_count, created_at`

	err := executor.QueryRowContext(ctx, query,
		link.TeamID, link.Code, link.MaxUses, link.Active, link.ExpiresAt,
	).Scan(&link.ID, &link.UsedCount, &link.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			if pqErr.Constraint == "team_invite_links_code_key" {
				return ErrInviteLinkCodeConflict
			}
		}
		return err
	}
	return nil
}

func (r *postgresInviteLinkRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.TeamInviteLink, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + inviteLinkColumns + ` FROM team_invite_links WHERE id = $1`
	link, err := scanInviteLink(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInviteLinkNotFound
		}
		return nil, err
	}
	return link, nil
}

func (r *postgresInviteLinkRepository) GetByCode(ctx context.Context, exec SQLExecutor, code string) (*models.TeamInviteLink, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + inviteLinkColumns + ` FROM team_invite_links WHERE code = $1`
	link, err := scanInviteLink(executor.QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInviteLinkNotFound
		}
		return nil, err
	}
	return link, nil
}

func (r *postgresInviteLinkRepository) GetActiveByTeam(ctx context.Context, exec SQLExecutor, teamID int) (*models.TeamInviteLink, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + inviteLinkColumns + ` FROM team_invite_links WHERE team_id = $1 AND active = TRUE`
	link, err := scanInviteLink(executor.QueryRowContext(ctx, query, teamID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInviteLinkNotFound
		}
		return nil, err
	}
	return link, nil
}

func (r *postgresInviteLinkRepository) DeactivateByTeam(ctx context.Context, exec SQLExecutor, teamID int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE team_invite_links SET active = FALSE WHERE team_id = $1 AND active = TRUE`
	_, err := executor.ExecContext(ctx, query, teamID)
	return err
}

func (r *postgresInviteLinkRepository) Deactivate(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE team_invite_links SET active = FALSE WHERE id = $1`
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrInviteLinkNotFound)
}

func (r *postgresInviteLinkRepository) ConsumeUse(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE team_invite_links SET used_count = used_count + 1
		WHERE id = $1 AND active = TRUE AND used_count < max_uses`
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrInviteLinkExhausted)
}
