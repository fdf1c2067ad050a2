package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arenaleague/arena/models"
	"github.com/arenaleague/arena/repositories"
)

type CreateTournamentInput struct {
	Name                 string    `json:"name"`
	Game                 string    `json:"game"`
	Description          *string   `json:"description,omitempty"`
	Slots                int       `json:"slots"`
	RegistrationDeadline time.Time `json:"registration_deadline"`
	StartDate            time.Time `json:"start_date"`
}

type UpdateTournamentInput struct {
	Name                 *string    `json:"name,omitempty"`
	Description          *string    `json:"description,omitempty"`
	Slots                *int       `json:"slots,omitempty"`
	RegistrationDeadline *time.Time `json:"registration_deadline,omitempty"`
	StartDate            *time.Time `json:"start_date,omitempty"`
}

// TournamentService is the privileged CRUD surface for tournaments. Status
// moves only along the lifecycle machine; capacity changes never shrink
// below what is already filled.
type TournamentService interface {
	Create(ctx context.Context, currentUserID int, input CreateTournamentInput) (*models.Tournament, error)
	Update(ctx context.Context, tournamentID, currentUserID int, input UpdateTournamentInput) (*models.Tournament, error)
	UpdateStatus(ctx context.Context, tournamentID, currentUserID int, next models.TournamentStatus) (*models.Tournament, error)
	UpdateBracket(ctx context.Context, tournamentID, currentUserID int, bracket string) error
	GetByID(ctx context.Context, tournamentID int) (*models.Tournament, error)
	List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error)
}

type tournamentService struct {
	tx             repositories.Transactor
	tournamentRepo repositories.TournamentRepository
	userRepo       repositories.UserRepository
	audit          AuditRecorder
}

func NewTournamentService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	userRepo repositories.UserRepository,
	audit AuditRecorder,
) TournamentService {
	return &tournamentService{
		tx:             tx,
		tournamentRepo: tournamentRepo,
		userRepo:       userRepo,
		audit:          audit,
	}
}

func (s *tournamentService) requirePrivileged(ctx context.Context, currentUserID int) error {
	user, err := s.userRepo.GetByID(ctx, currentUserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrPrivilegedActionForbidden
		}
		return fmt.Errorf("failed to get user %d: %w", currentUserID, err)
	}
	if !user.Role.IsPrivileged() {
		return ErrPrivilegedActionForbidden
	}
	return nil
}

func (s *tournamentService) Create(ctx context.Context, currentUserID int, input CreateTournamentInput) (*models.Tournament, error) {
	if err := s.requirePrivileged(ctx, currentUserID); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidationFailed)
	}
	if input.Slots < 2 {
		return nil, fmt.Errorf("%w: slots must be at least 2", ErrValidationFailed)
	}
	if !input.RegistrationDeadline.Before(input.StartDate) {
		return nil, fmt.Errorf("%w: registration deadline must precede the start date", ErrValidationFailed)
	}

	tournament := &models.Tournament{
		Name:                 name,
		Game:                 strings.TrimSpace(input.Game),
		Description:          input.Description,
		Slots:                input.Slots,
		RegistrationDeadline: input.RegistrationDeadline,
		StartDate:            input.StartDate,
		Status:               models.TournamentStatusUpcoming,
		CreatedByID:          currentUserID,
	}

	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		if errors.Is(err, repositories.ErrTournamentNameConflict) {
			return nil, fmt.Errorf("%w: name %q is taken", ErrValidationFailed, name)
		}
		return nil, err
	}

	s.audit.Record(ctx, currentUserID, "tournament.created", "tournament", tournament.ID, map[string]interface{}{
		"name":  tournament.Name,
		"slots": tournament.Slots,
	})
	return tournament, nil
}

func (s *tournamentService) Update(ctx context.Context, tournamentID, currentUserID int, input UpdateTournamentInput) (*models.Tournament, error) {
	if err := s.requirePrivileged(ctx, currentUserID); err != nil {
		return nil, err
	}

	var tournament *models.Tournament
	err := s.tx.WithinSerializable(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		tournament, err = s.tournamentRepo.GetByID(ctx, exec, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return fmt.Errorf("failed to get tournament %d: %w", tournamentID, err)
		}

		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return fmt.Errorf("%w: name cannot be empty", ErrValidationFailed)
			}
			tournament.Name = name
		}
		if input.Description != nil {
			tournament.Description = input.Description
		}
		if input.Slots != nil {
			// Shrinking below the admitted count would orphan approved teams.
			if *input.Slots < tournament.Filled {
				return fmt.Errorf("%w: slots cannot drop below %d already-admitted teams", ErrValidationFailed, tournament.Filled)
			}
			tournament.Slots = *input.Slots
		}
		if input.RegistrationDeadline != nil {
			tournament.RegistrationDeadline = *input.RegistrationDeadline
		}
		if input.StartDate != nil {
			tournament.StartDate = *input.StartDate
		}
		if !tournament.RegistrationDeadline.Before(tournament.StartDate) {
			return fmt.Errorf("%w: registration deadline must precede the start date", ErrValidationFailed)
		}

		return s.tournamentRepo.Update(ctx, tournament)
	})
	if err != nil {
		return nil, err
	}
	return tournament, nil
}

func (s *tournamentService) UpdateStatus(ctx context.Context, tournamentID, currentUserID int, next models.TournamentStatus) (*models.Tournament, error) {
	if err := s.requirePrivileged(ctx, currentUserID); err != nil {
		return nil, err
	}
	if !next.Valid() {
		return nil, fmt.Errorf("%w: unknown tournament status %q", ErrValidationFailed, next)
	}

	var tournament *models.Tournament
	err := s.tx.WithinSerializable(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		tournament, err = s.tournamentRepo.GetByID(ctx, exec, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return fmt.Errorf("failed to get tournament %d: %w", tournamentID, err)
		}
		if !tournament.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s cannot move to %s", ErrTournamentInvalidStatusTransition, tournament.Status, next)
		}
		if err := s.tournamentRepo.UpdateStatus(ctx, exec, tournamentID, next); err != nil {
			return err
		}
		tournament.Status = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, currentUserID, "tournament.status_changed", "tournament", tournamentID, map[string]interface{}{
		"status": tournament.Status,
	})
	return tournament, nil
}

func (s *tournamentService) UpdateBracket(ctx context.Context, tournamentID, currentUserID int, bracket string) error {
	if err := s.requirePrivileged(ctx, currentUserID); err != nil {
		return err
	}
	if err := s.tournamentRepo.UpdateBracket(ctx, tournamentID, bracket); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return err
	}
	return nil
}

func (s *tournamentService) GetByID(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return tournament, nil
}

func (s *tournamentService) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	return s.tournamentRepo.List(ctx, filter)
}
