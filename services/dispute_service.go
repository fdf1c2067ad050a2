package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arenaleague/arena/models"
	"github.com/arenaleague/arena/repositories"
)

type RaiseDisputeInput struct {
	Reason string `json:"reason"`
}

type ResolveDisputeInput struct {
	Resolution    string `json:"resolution"`
	ResultChanged bool   `json:"result_changed"`
	ScoreA        *int   `json:"score_a,omitempty"`
	ScoreB        *int   `json:"score_b,omitempty"`
	WinnerID      *int   `json:"winner_id,omitempty"`
}

// DisputeService lets a competing captain contest a completed match result
// within the dispute window, and tournament staff settle it.
type DisputeService interface {
	Raise(ctx context.Context, matchID, currentUserID int, input RaiseDisputeInput) (*models.MatchDispute, error)
	Resolve(ctx context.Context, disputeID, currentUserID int, input ResolveDisputeInput) (*models.MatchDispute, error)
	GetByMatch(ctx context.Context, matchID int) (*models.MatchDispute, error)
}

type disputeService struct {
	tx          repositories.Transactor
	matchRepo   repositories.MatchRepository
	disputeRepo repositories.DisputeRepository
	teamRepo    repositories.TeamRepository
	userRepo    repositories.UserRepository
	notifier    Notifier
	audit       AuditRecorder
	logger      *slog.Logger
	now         func() time.Time
}

func NewDisputeService(
	tx repositories.Transactor,
	matchRepo repositories.MatchRepository,
	disputeRepo repositories.DisputeRepository,
	teamRepo repositories.TeamRepository,
	userRepo repositories.UserRepository,
	notifier Notifier,
	audit AuditRecorder,
	logger *slog.Logger,
) DisputeService {
	return &disputeService{
		tx:          tx,
		matchRepo:   matchRepo,
		disputeRepo: disputeRepo,
		teamRepo:    teamRepo,
		userRepo:    userRepo,
		notifier:    notifier,
		audit:       audit,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *disputeService) captainOfCompetingTeam(ctx context.Context, match *models.Match, userID int) (int, bool) {
	for _, teamID := range []int{match.TeamAID, match.TeamBID} {
		team, err := s.teamRepo.GetByID(ctx, nil, teamID)
		if err != nil {
			continue
		}
		if team.DeletedAt == nil && team.CaptainID == userID {
			return teamID, true
		}
	}
	return 0, false
}

func (s *disputeService) Raise(ctx context.Context, matchID, currentUserID int, input RaiseDisputeInput) (*models.MatchDispute, error) {
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: reason is required", ErrValidationFailed)
	}

	now := s.now()
	var dispute *models.MatchDispute
	var match *models.Match

	err := s.tx.WithinSerializable(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		match, err = s.matchRepo.GetByID(ctx, exec, matchID)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return ErrMatchNotFound
			}
			return fmt.Errorf("failed to get match %d: %w", matchID, err)
		}
		// A match carries at most one dispute, ever. Checked before the
		// status gate: the first raise flips the match to DISPUTED, and a
		// repeat attempt must still report the existing dispute.
		if _, err := s.disputeRepo.GetByMatch(ctx, exec, matchID); err == nil {
			return ErrDisputeAlreadyRaised
		} else if !errors.Is(err, repositories.ErrDisputeNotFound) {
			return fmt.Errorf("failed to check existing dispute: %w", err)
		}
		if match.Status != models.MatchStatusCompleted {
			return ErrMatchNotCompleted
		}
		if _, ok := s.captainOfCompetingTeam(ctx, match, currentUserID); !ok {
			return ErrCaptainActionForbidden
		}
		if !match.DisputeWindowOpenAt(now) {
			return ErrDisputeWindowClosed
		}

		dispute = &models.MatchDispute{
			MatchID:    matchID,
			RaisedByID: currentUserID,
			Reason:     reason,
		}
		if err := s.disputeRepo.Create(ctx, exec, dispute); err != nil {
			if errors.Is(err, repositories.ErrDisputeConflict) {
				return ErrDisputeAlreadyRaised
			}
			return err
		}

		match.Status = models.MatchStatusDisputed
		return s.matchRepo.Update(ctx, exec, match)
	})
	if err != nil {
		return nil, err
	}

	s.notifyStaffOfDispute(ctx, match, dispute)
	return dispute, nil
}

// notifyStaffOfDispute fans out to the assigned referee and every tournament
// admin. Delivery failures are logged, never surfaced: the dispute is already
// committed.
func (s *disputeService) notifyStaffOfDispute(ctx context.Context, match *models.Match, dispute *models.MatchDispute) {
	recipients := make(map[int]struct{})
	if match.RefereeID != nil {
		recipients[*match.RefereeID] = struct{}{}
	}
	admins, err := s.userRepo.ListByRoles(ctx, models.RoleTournamentAdmin, models.RoleSuperAdmin)
	if err != nil {
		s.logger.Warn("failed to list tournament staff for dispute notice",
			slog.Int("dispute_id", dispute.ID), slog.Any("error", err))
	}
	for _, admin := range admins {
		recipients[admin.ID] = struct{}{}
	}

	title := "Match result disputed"
	message := fmt.Sprintf("Match %d has been disputed: %s", match.ID, dispute.Reason)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for userID := range recipients {
		userID := userID
		g.Go(func() error {
			return s.notifier.Notify(gctx, userID, models.NotificationDisputeRaised, title, message, nil)
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Warn("failed to notify staff of dispute",
			slog.Int("dispute_id", dispute.ID), slog.Any("error", err))
	}
}

func (s *disputeService) Resolve(ctx context.Context, disputeID, currentUserID int, input ResolveDisputeInput) (*models.MatchDispute, error) {
	resolution := strings.TrimSpace(input.Resolution)
	if resolution == "" {
		return nil, fmt.Errorf("%w: resolution is required", ErrValidationFailed)
	}

	resolver, err := s.userRepo.GetByID(ctx, currentUserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrPrivilegedActionForbidden
		}
		return nil, fmt.Errorf("failed to get user %d: %w", currentUserID, err)
	}
	if !resolver.Role.IsPrivileged() {
		return nil, ErrPrivilegedActionForbidden
	}

	now := s.now()
	var dispute *models.MatchDispute
	var match *models.Match

	err = s.tx.WithinSerializable(ctx, func(exec repositories.SQLExecutor) error {
		dispute, err = s.disputeRepo.GetByID(ctx, exec, disputeID)
		if err != nil {
			if errors.Is(err, repositories.ErrDisputeNotFound) {
				return ErrDisputeNotFound
			}
			return fmt.Errorf("failed to get dispute %d: %w", disputeID, err)
		}
		if dispute.Resolved() {
			return ErrDisputeResolved
		}

		match, err = s.matchRepo.GetByID(ctx, exec, dispute.MatchID)
		if err != nil {
			return fmt.Errorf("failed to get match %d: %w", dispute.MatchID, err)
		}

		if input.ResultChanged {
			if input.WinnerID != nil {
				if !match.Competes(*input.WinnerID) {
					return ErrInvalidWinner
				}
				match.WinnerID = input.WinnerID
			}
			if input.ScoreA != nil {
				match.ScoreA = input.ScoreA
			}
			if input.ScoreB != nil {
				match.ScoreB = input.ScoreB
			}
		}

		// Resolution always lands the match back on COMPLETED, whether or not
		// the result moved.
		match.Status = models.MatchStatusCompleted
		if err := s.matchRepo.Update(ctx, exec, match); err != nil {
			return err
		}

		dispute.Resolution = &resolution
		dispute.ResultChanged = input.ResultChanged
		dispute.ResolvedByID = &resolver.ID
		dispute.ResolvedAt = &now
		return s.disputeRepo.Resolve(ctx, exec, dispute)
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, currentUserID, "dispute.resolved", "match", match.ID, map[string]interface{}{
		"dispute_id":     dispute.ID,
		"result_changed": dispute.ResultChanged,
		"winner_id":      match.WinnerID,
	})

	outcome := "The original result stands."
	if dispute.ResultChanged {
		outcome = "The result has been corrected."
	}
	message := fmt.Sprintf("The dispute on match %d has been resolved. %s", match.ID, outcome)
	for _, teamID := range []int{match.TeamAID, match.TeamBID} {
		team, terr := s.teamRepo.GetByID(ctx, nil, teamID)
		if terr != nil {
			continue
		}
		if nerr := s.notifier.Notify(ctx, team.CaptainID, models.NotificationDisputeResolved,
			"Dispute resolved", message, nil); nerr != nil {
			s.logger.Warn("failed to notify captain of resolution",
				slog.Int("dispute_id", dispute.ID), slog.Any("error", nerr))
		}
	}
	return dispute, nil
}

func (s *disputeService) GetByMatch(ctx context.Context, matchID int) (*models.MatchDispute, error) {
	dispute, err := s.disputeRepo.GetByMatch(ctx, nil, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrDisputeNotFound) {
			return nil, ErrDisputeNotFound
		}
		return nil, err
	}
	return dispute, nil
}
