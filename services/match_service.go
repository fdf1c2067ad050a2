package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arenaleague/arena/models"
	"github.com/arenaleague/arena/repositories"
)

type CreateMatchInput struct {
	TeamAID       int       `json:"team_a_id"`
	TeamBID       int       `json:"team_b_id"`
	ScheduledTime time.Time `json:"scheduled_time"`
	BestOf        int       `json:"best_of"`
	RefereeID     *int      `json:"referee_id,omitempty"`
}

type UpdateMatchInput struct {
	Status   *models.MatchStatus `json:"status,omitempty"`
	ScoreA   *int                `json:"score_a,omitempty"`
	ScoreB   *int                `json:"score_b,omitempty"`
	WinnerID *int                `json:"winner_id,omitempty"`
}

// MatchService schedules matches between approved teams and moves them
// through their status machine.
type MatchService interface {
	Create(ctx context.Context, tournamentID, currentUserID int, input CreateMatchInput) (*models.Match, error)
	Update(ctx context.Context, matchID, currentUserID int, input UpdateMatchInput) (*models.Match, error)
	GetByID(ctx context.Context, matchID int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error)
}

type matchService struct {
	tx             repositories.Transactor
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	userRepo       repositories.UserRepository
	regRepo        repositories.RegistrationRepository
	matchRepo      repositories.MatchRepository
	notifier       Notifier
	logger         *slog.Logger
}

func NewMatchService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	userRepo repositories.UserRepository,
	regRepo repositories.RegistrationRepository,
	matchRepo repositories.MatchRepository,
	notifier Notifier,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		tx:             tx,
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		userRepo:       userRepo,
		regRepo:        regRepo,
		matchRepo:      matchRepo,
		notifier:       notifier,
		logger:         logger,
	}
}

func (s *matchService) Create(ctx context.Context, tournamentID, currentUserID int, input CreateMatchInput) (*models.Match, error) {
	user, err := s.userRepo.GetByID(ctx, currentUserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrPrivilegedActionForbidden
		}
		return nil, fmt.Errorf("failed to get user %d: %w", currentUserID, err)
	}
	if !user.Role.IsPrivileged() {
		return nil, ErrPrivilegedActionForbidden
	}

	if input.TeamAID == input.TeamBID {
		return nil, ErrSameTeamMatch
	}
	if input.BestOf <= 0 || input.BestOf%2 == 0 {
		return nil, fmt.Errorf("%w: best_of must be a positive odd number", ErrValidationFailed)
	}

	match := &models.Match{
		TournamentID:  tournamentID,
		TeamAID:       input.TeamAID,
		TeamBID:       input.TeamBID,
		ScheduledTime: input.ScheduledTime,
		BestOf:        input.BestOf,
		RefereeID:     input.RefereeID,
		Status:        models.MatchStatusUpcoming,
	}

	err = s.tx.WithinSerializable(ctx, func(exec repositories.SQLExecutor) error {
		if _, err := s.tournamentRepo.GetByID(ctx, exec, tournamentID); err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return fmt.Errorf("failed to get tournament %d: %w", tournamentID, err)
		}

		for _, teamID := range []int{input.TeamAID, input.TeamBID} {
			reg, err := s.regRepo.FindActiveByTournamentAndTeam(ctx, exec, tournamentID, teamID)
			if err != nil {
				if errors.Is(err, repositories.ErrRegistrationNotFound) {
					return ErrTeamsNotRegistered
				}
				return fmt.Errorf("failed to check registration for team %d: %w", teamID, err)
			}
			if reg.Status != models.RegistrationStatusApproved {
				return ErrTeamsNotRegistered
			}
		}

		return s.matchRepo.Create(ctx, exec, match)
	})
	if err != nil {
		return nil, err
	}
	return match, nil
}

func (s *matchService) authorizeMatchUpdate(ctx context.Context, match *models.Match, currentUserID int) error {
	if match.RefereeID != nil && *match.RefereeID == currentUserID {
		return nil
	}
	user, err := s.userRepo.GetByID(ctx, currentUserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrForbiddenOperation
		}
		return fmt.Errorf("failed to get user %d: %w", currentUserID, err)
	}
	if user.Role.IsPrivileged() || user.Role == models.RoleReferee {
		return nil
	}
	for _, teamID := range []int{match.TeamAID, match.TeamBID} {
		team, err := s.teamRepo.GetByID(ctx, nil, teamID)
		if err != nil {
			continue
		}
		if team.CaptainID == currentUserID {
			return nil
		}
	}
	return ErrForbiddenOperation
}

func (s *matchService) Update(ctx context.Context, matchID, currentUserID int, input UpdateMatchInput) (*models.Match, error) {
	if input.Status != nil && !input.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown match status %q", ErrValidationFailed, *input.Status)
	}

	var match *models.Match
	var windowOpened bool

	err := s.tx.WithinSerializable(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		match, err = s.matchRepo.GetByID(ctx, exec, matchID)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return ErrMatchNotFound
			}
			return fmt.Errorf("failed to get match %d: %w", matchID, err)
		}
		if err := s.authorizeMatchUpdate(ctx, match, currentUserID); err != nil {
			return err
		}

		if input.Status != nil {
			if !match.Status.CanTransitionTo(*input.Status) {
				return fmt.Errorf("%w: %s cannot move to %s", ErrInvalidMatchTransition, match.Status, *input.Status)
			}
			if *input.Status == models.MatchStatusCompleted && match.Status != models.MatchStatusCompleted {
				windowOpened = true
			}
			match.Status = *input.Status
		}
		if input.ScoreA != nil {
			match.ScoreA = input.ScoreA
		}
		if input.ScoreB != nil {
			match.ScoreB = input.ScoreB
		}
		if input.WinnerID != nil {
			if !match.Competes(*input.WinnerID) {
				return ErrInvalidWinner
			}
			match.WinnerID = input.WinnerID
		}

		return s.matchRepo.Update(ctx, exec, match)
	})
	if err != nil {
		return nil, err
	}

	if windowOpened && match.WinnerID != nil {
		s.notifyDisputeWindow(ctx, match)
	}
	return match, nil
}

// notifyDisputeWindow tells both captains the result is in and contestable.
func (s *matchService) notifyDisputeWindow(ctx context.Context, match *models.Match) {
	deadline := match.UpdatedAt.Add(models.DisputeWindow)
	for _, teamID := range []int{match.TeamAID, match.TeamBID} {
		team, err := s.teamRepo.GetByID(ctx, nil, teamID)
		if err != nil {
			s.logger.Warn("failed to resolve captain for dispute window notice",
				slog.Int("match_id", match.ID), slog.Int("team_id", teamID), slog.Any("error", err))
			continue
		}
		msg := fmt.Sprintf("The result of match %d has been recorded. You may dispute it until %s.",
			match.ID, deadline.Format(time.RFC3339))
		if nerr := s.notifier.Notify(ctx, team.CaptainID, models.NotificationDisputeWindowOpened,
			"Match result recorded", msg, nil); nerr != nil {
			s.logger.Warn("failed to notify captain of dispute window",
				slog.Int("match_id", match.ID), slog.Any("error", nerr))
		}
	}
}

func (s *matchService) GetByID(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return match, nil
}

func (s *matchService) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %d: %w", tournamentID, err)
	}
	return s.matchRepo.ListByTournament(ctx, tournamentID)
}
