package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/arenaleague/arena/models"
	"github.com/arenaleague/arena/repositories"
)

type AddPlayerInput struct {
	IGN           string             `json:"ign"`
	Role          models.PlayerRole  `json:"role"`
	SecondaryRole *models.PlayerRole `json:"secondary_role,omitempty"`
	IsSubstitute  bool               `json:"is_substitute"`
}

type UpdatePlayerInput struct {
	IGN           *string            `json:"ign,omitempty"`
	Role          *models.PlayerRole `json:"role,omitempty"`
	SecondaryRole *models.PlayerRole `json:"secondary_role,omitempty"`
	IsSubstitute  *bool              `json:"is_substitute,omitempty"`
}

// RosterService owns a team's player list. Every operation re-validates the
// roster invariants inside its own serializable transaction: the caller's
// authorization layer is not trusted to have checked them.
type RosterService interface {
	AddPlayer(ctx context.Context, teamID, currentUserID int, input AddPlayerInput) (*models.Player, error)
	UpdatePlayer(ctx context.Context, teamID, playerID, currentUserID int, input UpdatePlayerInput) (*models.Player, error)
	RemovePlayer(ctx context.Context, teamID, playerID, currentUserID int) error
	ListTeamPlayers(ctx context.Context, teamID int) ([]*models.Player, error)
}

type rosterService struct {
	tx         repositories.Transactor
	teamRepo   repositories.TeamRepository
	playerRepo repositories.PlayerRepository
	userRepo   repositories.UserRepository
	notifier   Notifier
	logger     *slog.Logger
}

func NewRosterService(
	tx repositories.Transactor,
	teamRepo repositories.TeamRepository,
	playerRepo repositories.PlayerRepository,
	userRepo repositories.UserRepository,
	notifier Notifier,
	logger *slog.Logger,
) RosterService {
	return &rosterService{
		tx:         tx,
		teamRepo:   teamRepo,
		playerRepo: playerRepo,
		userRepo:   userRepo,
		notifier:   notifier,
		logger:     logger,
	}
}

// roleHeldByStarter reports whether a non-deleted, non-substitute player other
// than excludeID already holds the role.
func roleHeldByStarter(players []*models.Player, role models.PlayerRole, excludeID int) bool {
	for _, p := range players {
		if p.ID == excludeID {
			continue
		}
		if p.IsStarter() && p.Role == role {
			return true
		}
	}
	return false
}

func ignInUse(players []*models.Player, ign string, excludeID int) bool {
	for _, p := range players {
		if p.ID == excludeID {
			continue
		}
		if p.DeletedAt == nil && strings.EqualFold(p.IGN, ign) {
			return true
		}
	}
	return false
}

func (s *rosterService) authorizeRosterChange(ctx context.Context, team *models.Team, currentUserID int) error {
	if team.CaptainID == currentUserID {
		return nil
	}
	user, err := s.userRepo.GetByID(ctx, currentUserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrCaptainActionForbidden
		}
		return fmt.Errorf("failed to get user %d: %w", currentUserID, err)
	}
	if !user.Role.IsPrivileged() {
		return ErrCaptainActionForbidden
	}
	return nil
}

func (s *rosterService) AddPlayer(ctx context.Context, teamID, currentUserID int, input AddPlayerInput) (*models.Player, error) {
	if input.IGN == "" {
		return nil, fmt.Errorf("%w: ign is required", ErrValidationFailed)
	}
	if !input.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidationFailed, input.Role)
	}
	if input.SecondaryRole != nil && !input.SecondaryRole.Valid() {
		return nil, fmt.Errorf("%w: unknown secondary role %q", ErrValidationFailed, *input.SecondaryRole)
	}

	player := &models.Player{
		TeamID:        teamID,
		IGN:           input.IGN,
		Role:          input.Role,
		SecondaryRole: input.SecondaryRole,
		IsSubstitute:  input.IsSubstitute,
	}

	err := s.tx.WithinSerializable(ctx, func(exec repositories.SQLExecutor) error {
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
		if err := s.authorizeRosterChange(ctx, team, currentUserID); err != nil {
			return err
		}

		roster, err := s.playerRepo.ListActiveByTeam(ctx, exec, teamID)
		if err != nil {
			return fmt.Errorf("failed to list roster for team %d: %w", teamID, err)
		}
		if len(roster) >= models.MaxTeamSize {
			return ErrTeamFull
		}
		if ignInUse(roster, input.IGN, 0) {
			return ErrIGNConflict
		}
		if !input.IsSubstitute && roleHeldByStarter(roster, input.Role, 0) {
			return fmt.Errorf("%w: role %s is already filled by a starter", ErrRoleSlotConflict, input.Role)
		}

		return s.playerRepo.Create(ctx, exec, player)
	})
	if err != nil {
		return nil, err
	}
	return player, nil
}

func (s *rosterService) UpdatePlayer(ctx context.Context, teamID, playerID, currentUserID int, input UpdatePlayerInput) (*models.Player, error) {
	if input.IGN != nil && *input.IGN == "" {
		return nil, fmt.Errorf("%w: ign cannot be empty", ErrValidationFailed)
	}
	if input.Role != nil && !input.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidationFailed, *input.Role)
	}
	if input.SecondaryRole != nil && !input.SecondaryRole.Valid() {
		return nil, fmt.Errorf("%w: unknown secondary role %q", ErrValidationFailed, *input.SecondaryRole)
	}

	var updated *models.Player

	err := s.tx.WithinSerializable(ctx, func(exec repositories.SQLExecutor) error {
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
		if err := s.authorizeRosterChange(ctx, team, currentUserID); err != nil {
			return err
		}

		player, err := s.playerRepo.GetByID(ctx, exec, playerID)
		if err != nil {
			if errors.Is(err, repositories.ErrPlayerNotFound) {
				return ErrPlayerNotFound
			}
			return fmt.Errorf("failed to get player %d: %w", playerID, err)
		}
		if player.TeamID != teamID || player.DeletedAt != nil {
			return ErrPlayerNotFound
		}

		if input.IGN != nil {
			player.IGN = *input.IGN
		}
		if input.Role != nil {
			player.Role = *input.Role
		}
		if input.SecondaryRole != nil {
			player.SecondaryRole = input.SecondaryRole
		}
		if input.IsSubstitute != nil {
			player.IsSubstitute = *input.IsSubstitute
		}

		roster, err := s.playerRepo.ListActiveByTeam(ctx, exec, teamID)
		if err != nil {
			return fmt.Errorf("failed to list roster for team %d: %w", teamID, err)
		}
		// Conflict scans exclude the player being updated.
		if ignInUse(roster, player.IGN, player.ID) {
			return ErrIGNConflict
		}
		if !player.IsSubstitute && roleHeldByStarter(roster, player.Role, player.ID) {
			return fmt.Errorf("%w: role %s is already filled by a starter", ErrRoleSlotConflict, player.Role)
		}

		if err := s.playerRepo.Update(ctx, exec, player); err != nil {
			return err
		}
		updated = player
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RemovePlayer soft-deletes the player. Removing the captain-owning player
// transfers captaincy to the oldest-serving remaining starter; with no
// starters left the team itself is soft-deleted.
func (s *rosterService) RemovePlayer(ctx context.Context, teamID, playerID, currentUserID int) error {
	var newCaptainUserID *int
	var teamName string

	err := s.tx.WithinSerializable(ctx, func(exec repositories.SQLExecutor) error {
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
		teamName = team.Name

		player, err := s.playerRepo.GetByID(ctx, exec, playerID)
		if err != nil {
			if errors.Is(err, repositories.ErrPlayerNotFound) {
				return ErrPlayerNotFound
			}
			return fmt.Errorf("failed to get player %d: %w", playerID, err)
		}
		if player.TeamID != teamID || player.DeletedAt != nil {
			return ErrPlayerNotFound
		}

		// A player may remove themselves; otherwise captain or staff.
		selfLeave := player.UserID != nil && *player.UserID == currentUserID
		if !selfLeave {
			if err := s.authorizeRosterChange(ctx, team, currentUserID); err != nil {
				return err
			}
		}

		if err := s.playerRepo.SoftDelete(ctx, exec, playerID); err != nil {
			return err
		}

		isCaptainPlayer := player.UserID != nil && *player.UserID == team.CaptainID
		if !isCaptainPlayer {
			return nil
		}

		remaining, err := s.playerRepo.ListActiveByTeam(ctx, exec, teamID)
		if err != nil {
			return fmt.Errorf("failed to list roster for team %d: %w", teamID, err)
		}

		// Succession candidate: earliest-created remaining starter with a
		// linked account. ListActiveByTeam orders by created_at so the first
		// hit wins deterministically.
		for _, p := range remaining {
			if p.IsStarter() && p.UserID != nil {
				newCaptainUserID = p.UserID
				break
			}
		}

		if newCaptainUserID != nil {
			return s.teamRepo.UpdateCaptain(ctx, exec, teamID, *newCaptainUserID)
		}
		// No starters left: the team is defunct.
		return s.teamRepo.SoftDelete(ctx, exec, teamID)
	})
	if err != nil {
		return err
	}

	if newCaptainUserID != nil {
		if nerr := s.notifier.Notify(ctx, *newCaptainUserID, models.NotificationCaptaincyTransferred,
			"You are now team captain",
			fmt.Sprintf("Captaincy of %s has been transferred to you.", teamName), nil); nerr != nil {
			s.logger.Warn("failed to notify new captain", slog.Any("error", nerr))
		}
	}
	return nil
}

func (s *rosterService) ListTeamPlayers(ctx context.Context, teamID int) ([]*models.Player, error) {
	team, err := s.teamRepo.GetByID(ctx, nil, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team %d: %w", teamID, err)
	}
	if team.DeletedAt != nil {
		return nil, ErrTeamNotFound
	}
	return s.playerRepo.ListActiveByTeam(ctx, nil, teamID)
}
