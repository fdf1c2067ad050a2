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

type DecideRegistrationInput struct {
	Approve bool    `json:"approve"`
	Seed    *int    `json:"seed,omitempty"`
	Reason  *string `json:"reason,omitempty"`
}

// RegistrationResult carries the registration plus the waitlist entry if the
// tournament was already full at submission time.
type RegistrationResult struct {
	Registration *models.TournamentRegistration `json:"registration"`
	Waitlist     *models.WaitlistEntry          `json:"waitlist,omitempty"`
}

// RegistrationService admits teams into tournaments. Capacity is spent at
// approval, not at submission: submitting never races another pending
// submission for a slot.
type RegistrationService interface {
	Register(ctx context.Context, tournamentID, teamID, currentUserID int) (*RegistrationResult, error)
	Decide(ctx context.Context, registrationID, currentUserID int, input DecideRegistrationInput) (*models.TournamentRegistration, error)
	ListByTournament(ctx context.Context, tournamentID int, statusFilter *models.RegistrationStatus) ([]*models.TournamentRegistration, error)
	Waitlist(ctx context.Context, tournamentID int) ([]*models.WaitlistEntry, error)
}

type registrationService struct {
	tx             repositories.Transactor
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	playerRepo     repositories.PlayerRepository
	userRepo       repositories.UserRepository
	regRepo        repositories.RegistrationRepository
	waitlistRepo   repositories.WaitlistRepository
	notifier       Notifier
	audit          AuditRecorder
	logger         *slog.Logger
	now            func() time.Time
}

func NewRegistrationService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	playerRepo repositories.PlayerRepository,
	userRepo repositories.UserRepository,
	regRepo repositories.RegistrationRepository,
	waitlistRepo repositories.WaitlistRepository,
	notifier Notifier,
	audit AuditRecorder,
	logger *slog.Logger,
) RegistrationService {
	return &registrationService{
		tx:             tx,
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		playerRepo:     playerRepo,
		userRepo:       userRepo,
		regRepo:        regRepo,
		waitlistRepo:   waitlistRepo,
		notifier:       notifier,
		audit:          audit,
		logger:         logger,
		now:            time.Now,
	}
}

// rosterCoversAllRoles checks set containment over starters: every one of the
// five roles must be held, duplicates in one role do not help.
func rosterCoversAllRoles(players []*models.Player) bool {
	covered := make(map[models.PlayerRole]bool, len(models.AllPlayerRoles))
	for _, p := range players {
		if p.IsStarter() {
			covered[p.Role] = true
		}
	}
	for _, role := range models.AllPlayerRoles {
		if !covered[role] {
			return false
		}
	}
	return true
}

func (s *registrationService) Register(ctx context.Context, tournamentID, teamID, currentUserID int) (*RegistrationResult, error) {
	now := s.now()
	result := &RegistrationResult{}

	err := s.tx.WithinSerializable(ctx, func(exec repositories.SQLExecutor) error {
		tournament, err := s.tournamentRepo.GetByID(ctx, exec, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return fmt.Errorf("failed to get tournament %d: %w", tournamentID, err)
		}
		if !tournament.Status.AcceptsRegistrations() || !now.Before(tournament.RegistrationDeadline) {
			return ErrRegistrationClosed
		}

		team, err := s.teamRepo.GetByID(ctx, exec, teamID)
		if err != nil {
			if errors.Is(err, repositories.ErrTeamNotFound) {
				return ErrTeamNotFound
			}
			return fmt.Errorf("failed to get team %d: %w", teamID, err)
		}
		if team.DeletedAt != nil {
			return ErrTeamNotFound
		}
		if team.CaptainID != currentUserID {
			return ErrCaptainActionForbidden
		}

		roster, err := s.playerRepo.ListActiveByTeam(ctx, exec, teamID)
		if err != nil {
			return fmt.Errorf("failed to list roster for team %d: %w", teamID, err)
		}
		if !rosterCoversAllRoles(roster) {
			return ErrRosterIncomplete
		}
		if team.LogoKey == nil || team.BannerKey == nil {
			return ErrTeamMediaRequired
		}

		if _, err := s.regRepo.FindActiveByTournamentAndTeam(ctx, exec, tournamentID, teamID); err == nil {
			return ErrAlreadyRegistered
		} else if !errors.Is(err, repositories.ErrRegistrationNotFound) {
			return fmt.Errorf("failed to check existing registration: %w", err)
		}

		reg := &models.TournamentRegistration{
			TournamentID: tournamentID,
			TeamID:       teamID,
			Status:       models.RegistrationStatusPending,
		}
		if err := s.regRepo.Create(ctx, exec, reg); err != nil {
			if errors.Is(err, repositories.ErrRegistrationConflict) {
				return ErrAlreadyRegistered
			}
			return err
		}
		result.Registration = reg

		// A full tournament queues the team; the registration stays PENDING
		// either way, so an admin can still approve once a slot frees up.
		if tournament.Filled >= tournament.Slots {
			highest, err := s.waitlistRepo.CountByTournament(ctx, exec, tournamentID)
			if err != nil {
				return fmt.Errorf("failed to read waitlist for tournament %d: %w", tournamentID, err)
			}
			entry := &models.WaitlistEntry{
				TournamentID: tournamentID,
				TeamID:       teamID,
				Position:     highest + 1,
			}
			if err := s.waitlistRepo.Create(ctx, exec, entry); err != nil {
				return err
			}
			result.Waitlist = entry
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *registrationService) requirePrivileged(ctx context.Context, currentUserID int) (*models.User, error) {
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
	return user, nil
}

// Decide approves or rejects a pending registration. Approval is the
// admission-control point: capacity is re-checked here with a guarded
// increment regardless of what submission saw.
func (s *registrationService) Decide(ctx context.Context, registrationID, currentUserID int, input DecideRegistrationInput) (*models.TournamentRegistration, error) {
	decider, err := s.requirePrivileged(ctx, currentUserID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var reg *models.TournamentRegistration
	var captainID int

	err = s.tx.WithinSerializable(ctx, func(exec repositories.SQLExecutor) error {
		reg, err = s.regRepo.GetByID(ctx, exec, registrationID)
		if err != nil {
			if errors.Is(err, repositories.ErrRegistrationNotFound) {
				return ErrRegistrationNotFound
			}
			return fmt.Errorf("failed to get registration %d: %w", registrationID, err)
		}
		if reg.Status != models.RegistrationStatusPending {
			return ErrRegistrationDecided
		}

		team, err := s.teamRepo.GetByID(ctx, exec, reg.TeamID)
		if err != nil {
			return fmt.Errorf("failed to get team %d: %w", reg.TeamID, err)
		}
		captainID = team.CaptainID

		if !input.Approve {
			reg.Status = models.RegistrationStatusRejected
			reg.Reason = input.Reason
			reg.DecidedByID = &decider.ID
			reg.DecidedAt = &now
			return s.regRepo.UpdateDecision(ctx, exec, reg)
		}

		// Guarded increment: fails when filled has already reached slots.
		if err := s.tournamentRepo.IncrementFilled(ctx, exec, reg.TournamentID); err != nil {
			if errors.Is(err, repositories.ErrTournamentCapacity) {
				return ErrTournamentFull
			}
			return err
		}

		seed := 0
		if input.Seed != nil {
			seed = *input.Seed
		} else {
			maxSeed, err := s.regRepo.MaxSeed(ctx, exec, reg.TournamentID)
			if err != nil {
				return fmt.Errorf("failed to compute next seed: %w", err)
			}
			seed = maxSeed + 1
		}

		reg.Status = models.RegistrationStatusApproved
		reg.Seed = &seed
		reg.DecidedByID = &decider.ID
		reg.DecidedAt = &now
		if err := s.regRepo.UpdateDecision(ctx, exec, reg); err != nil {
			return err
		}

		// An admitted team leaves the queue. Absence is fine.
		return s.waitlistRepo.DeleteByTournamentAndTeam(ctx, exec, reg.TournamentID, reg.TeamID)
	})
	if err != nil {
		return nil, err
	}

	action := "registration.rejected"
	title := "Registration rejected"
	message := "Your tournament registration was rejected."
	if reg.Status == models.RegistrationStatusApproved {
		action = "registration.approved"
		title = "Registration approved"
		message = fmt.Sprintf("Your team is in. Seed: %d.", *reg.Seed)
	} else if reg.Reason != nil {
		message = fmt.Sprintf("Your tournament registration was rejected: %s", *reg.Reason)
	}

	s.audit.Record(ctx, currentUserID, action, "registration", reg.ID, map[string]interface{}{
		"tournament_id": reg.TournamentID,
		"team_id":       reg.TeamID,
		"seed":          reg.Seed,
	})
	if nerr := s.notifier.Notify(ctx, captainID, models.NotificationRegistrationDecided, title, message, nil); nerr != nil {
		s.logger.Warn("failed to notify captain of decision",
			slog.Int("registration_id", reg.ID), slog.Any("error", nerr))
	}
	return reg, nil
}

func (s *registrationService) ListByTournament(ctx context.Context, tournamentID int, statusFilter *models.RegistrationStatus) ([]*models.TournamentRegistration, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %d: %w", tournamentID, err)
	}
	return s.regRepo.ListByTournament(ctx, tournamentID, statusFilter)
}

func (s *registrationService) Waitlist(ctx context.Context, tournamentID int) ([]*models.WaitlistEntry, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %d: %w", tournamentID, err)
	}
	return s.waitlistRepo.ListByTournament(ctx, tournamentID)
}
