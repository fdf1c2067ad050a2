package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/arenaleague/arena/models"
	"github.com/arenaleague/arena/repositories"
)

const (
	inviteTTL                = 48 * time.Hour
	inviteLinkTTL            = 7 * 24 * time.Hour
	maxPendingInvitesPerUser = 3

	inviteCodeLength = 8
	// No 0/O/1/I so codes survive being read aloud or retyped.
	inviteCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	codeGenerationAttempts = 3
)

type SendInviteInput struct {
	IGN     string  `json:"ign"`
	Message *string `json:"message,omitempty"`
}

type RespondInviteInput struct {
	Accept        bool               `json:"accept"`
	Role          *models.PlayerRole `json:"role,omitempty"`
	SecondaryRole *models.PlayerRole `json:"secondary_role,omitempty"`
}

type GenerateLinkInput struct {
	MaxUses int `json:"max_uses"`
}

// InviteService handles both directed invites and shareable join links.
type InviteService interface {
	SendInvite(ctx context.Context, teamID, currentUserID int, input SendInviteInput) (*models.TeamInvite, error)
	RespondInvite(ctx context.Context, inviteID, currentUserID int, input RespondInviteInput) (*models.TeamInvite, error)
	CancelInvite(ctx context.Context, inviteID, currentUserID int) error
	ListTeamInvites(ctx context.Context, teamID, currentUserID int) ([]*models.TeamInvite, error)

	GenerateInviteLink(ctx context.Context, teamID, currentUserID int, input GenerateLinkInput) (*models.TeamInviteLink, error)
	GetActiveInviteLink(ctx context.Context, teamID, currentUserID int) (*models.TeamInviteLink, error)
	DeactivateInviteLink(ctx context.Context, teamID, linkID, currentUserID int) error
	JoinByCode(ctx context.Context, code string, currentUserID int, role models.PlayerRole) (*models.Player, error)
}

type inviteService struct {
	tx         repositories.Transactor
	teamRepo   repositories.TeamRepository
	playerRepo repositories.PlayerRepository
	userRepo   repositories.UserRepository
	inviteRepo repositories.InviteRepository
	linkRepo   repositories.InviteLinkRepository
	notifier   Notifier
	audit      AuditRecorder
	logger     *slog.Logger
	now        func() time.Time
}

func NewInviteService(
	tx repositories.Transactor,
	teamRepo repositories.TeamRepository,
	playerRepo repositories.PlayerRepository,
	userRepo repositories.UserRepository,
	inviteRepo repositories.InviteRepository,
	linkRepo repositories.InviteLinkRepository,
	notifier Notifier,
	audit AuditRecorder,
	logger *slog.Logger,
) InviteService {
	return &inviteService{
		tx:         tx,
		teamRepo:   teamRepo,
		playerRepo: playerRepo,
		userRepo:   userRepo,
		inviteRepo: inviteRepo,
		linkRepo:   linkRepo,
		notifier:   notifier,
		audit:      audit,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *inviteService) getActiveTeamAsCaptain(ctx context.Context, exec repositories.SQLExecutor, teamID, currentUserID int) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, exec, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team %d: %w", teamID, err)
	}
	if team.DeletedAt != nil {
		return nil, ErrTeamNotFound
	}
	if team.CaptainID != currentUserID {
		return nil, ErrCaptainActionForbidden
	}
	return team, nil
}

func (s *inviteService) SendInvite(ctx context.Context, teamID, currentUserID int, input SendInviteInput) (*models.TeamInvite, error) {
	ign := strings.TrimSpace(input.IGN)
	if ign == "" {
		return nil, fmt.Errorf("%w: ign is required", ErrValidationFailed)
	}

	now := s.now()
	var invite *models.TeamInvite
	var teamName string

	err := s.tx.WithinSerializable(ctx, func(exec repositories.SQLExecutor) error {
		team, err := s.getActiveTeamAsCaptain(ctx, exec, teamID, currentUserID)
		if err != nil {
			return err
		}
		teamName = team.Name

		target, err := s.userRepo.GetByIGN(ctx, ign)
		if err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to look up user by ign: %w", err)
		}

		// Sweep this team's lapsed invites before any pending checks so a
		// stale PENDING row cannot block a fresh invite.
		if _, err := s.inviteRepo.ExpireLapsed(ctx, exec, teamID, now); err != nil {
			return fmt.Errorf("failed to expire lapsed invites: %w", err)
		}

		if _, err := s.playerRepo.FindActiveByUser(ctx, exec, target.ID); err == nil {
			return ErrUserAlreadyRostered
		} else if !errors.Is(err, repositories.ErrPlayerNotFound) {
			return fmt.Errorf("failed to check roster membership: %w", err)
		}

		roster, err := s.playerRepo.ListActiveByTeam(ctx, exec, teamID)
		if err != nil {
			return fmt.Errorf("failed to list roster for team %d: %w", teamID, err)
		}
		if len(roster) >= models.MaxTeamSize {
			return ErrTeamFull
		}

		if _, err := s.inviteRepo.FindPendingByTeamAndIGN(ctx, exec, teamID, ign); err == nil {
			return ErrInvitePendingExists
		} else if !errors.Is(err, repositories.ErrInviteNotFound) {
			return fmt.Errorf("failed to check pending invite: %w", err)
		}

		pending, err := s.inviteRepo.CountPendingByUser(ctx, exec, target.ID, now)
		if err != nil {
			return fmt.Errorf("failed to count pending invites: %w", err)
		}
		if pending >= maxPendingInvitesPerUser {
			return ErrInviteLimitReached
		}

		invite = &models.TeamInvite{
			TeamID:    teamID,
			ToUserID:  target.ID,
			ToIGN:     target.IGN,
			Message:   input.Message,
			Status:    models.InviteStatusPending,
			ExpiresAt: now.Add(inviteTTL),
		}
		return s.inviteRepo.Create(ctx, exec, invite)
	})
	if err != nil {
		return nil, err
	}

	if nerr := s.notifier.Notify(ctx, invite.ToUserID, models.NotificationInviteReceived,
		"Team invite",
		fmt.Sprintf("%s has invited you to join their roster.", teamName), nil); nerr != nil {
		s.logger.Warn("failed to notify invitee", slog.Int("invite_id", invite.ID), slog.Any("error", nerr))
	}
	return invite, nil
}

// RespondInvite accepts or declines. Acceptance places the player on the
// roster in the same transaction; a role collision demotes the joiner to
// substitute rather than failing.
func (s *inviteService) RespondInvite(ctx context.Context, inviteID, currentUserID int, input RespondInviteInput) (*models.TeamInvite, error) {
	if input.Accept {
		if input.Role == nil {
			return nil, fmt.Errorf("%w: role is required to accept an invite", ErrValidationFailed)
		}
		if !input.Role.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", ErrValidationFailed, *input.Role)
		}
		if input.SecondaryRole != nil && !input.SecondaryRole.Valid() {
			return nil, fmt.Errorf("%w: unknown secondary role %q", ErrValidationFailed, *input.SecondaryRole)
		}
	}

	now := s.now()
	var invite *models.TeamInvite
	var captainID int
	var accepted bool

	err := s.tx.WithinSerializable(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		invite, err = s.inviteRepo.GetByID(ctx, exec, inviteID)
		if err != nil {
			if errors.Is(err, repositories.ErrInviteNotFound) {
				return ErrInviteNotFound
			}
			return fmt.Errorf("failed to get invite %d: %w", inviteID, err)
		}
		if invite.ToUserID != currentUserID {
			return ErrForbiddenOperation
		}
		if invite.LapsedAt(now) {
			if err := s.inviteRepo.UpdateStatus(ctx, exec, invite.ID, models.InviteStatusExpired); err != nil {
				return fmt.Errorf("failed to expire invite %d: %w", invite.ID, err)
			}
			invite.Status = models.InviteStatusExpired
			return ErrInviteExpired
		}
		if invite.Status.Terminal() {
			return ErrInviteResolved
		}

		if !input.Accept {
			if err := s.inviteRepo.UpdateStatus(ctx, exec, invite.ID, models.InviteStatusDeclined); err != nil {
				return err
			}
			invite.Status = models.InviteStatusDeclined
			return nil
		}

		team, err := s.teamRepo.GetByID(ctx, exec, invite.TeamID)
		if err != nil {
			if errors.Is(err, repositories.ErrTeamNotFound) {
				return ErrTeamNotFound
			}
			return fmt.Errorf("failed to get team %d: %w", invite.TeamID, err)
		}
		if team.DeletedAt != nil {
			return ErrTeamNotFound
		}
		captainID = team.CaptainID

		if _, err := s.playerRepo.FindActiveByUser(ctx, exec, currentUserID); err == nil {
			return ErrUserAlreadyRostered
		} else if !errors.Is(err, repositories.ErrPlayerNotFound) {
			return fmt.Errorf("failed to check roster membership: %w", err)
		}

		roster, err := s.playerRepo.ListActiveByTeam(ctx, exec, invite.TeamID)
		if err != nil {
			return fmt.Errorf("failed to list roster for team %d: %w", invite.TeamID, err)
		}
		if len(roster) >= models.MaxTeamSize {
			return ErrTeamFull
		}
		if ignInUse(roster, invite.ToIGN, 0) {
			return ErrIGNConflict
		}

		user, err := s.userRepo.GetByID(ctx, currentUserID)
		if err != nil {
			return fmt.Errorf("failed to get user %d: %w", currentUserID, err)
		}

		player := &models.Player{
			TeamID:        invite.TeamID,
			UserID:        &user.ID,
			IGN:           invite.ToIGN,
			Role:          *input.Role,
			SecondaryRole: input.SecondaryRole,
		}
		// An occupied role slot demotes the joiner to substitute instead of
		// bouncing the accept.
		if roleHeldByStarter(roster, player.Role, 0) {
			player.IsSubstitute = true
		}
		if err := s.playerRepo.Create(ctx, exec, player); err != nil {
			return err
		}

		if err := s.inviteRepo.UpdateStatus(ctx, exec, invite.ID, models.InviteStatusAccepted); err != nil {
			return err
		}
		invite.Status = models.InviteStatusAccepted
		accepted = true

		// Joining one team voids every other outstanding offer.
		if _, err := s.inviteRepo.CancelPendingByUser(ctx, exec, currentUserID, invite.ID); err != nil {
			return fmt.Errorf("failed to cancel competing invites: %w", err)
		}
		return nil
	})
	if err != nil {
		return invite, err
	}

	ntype := models.NotificationInviteDeclined
	title := "Invite declined"
	message := fmt.Sprintf("%s declined your team invite.", invite.ToIGN)
	target := 0
	if accepted {
		ntype = models.NotificationInviteAccepted
		title = "Invite accepted"
		message = fmt.Sprintf("%s has joined your roster.", invite.ToIGN)
		target = captainID
	} else {
		team, terr := s.teamRepo.GetByID(ctx, nil, invite.TeamID)
		if terr == nil {
			target = team.CaptainID
		}
	}
	if target != 0 {
		if nerr := s.notifier.Notify(ctx, target, ntype, title, message, nil); nerr != nil {
			s.logger.Warn("failed to notify captain", slog.Int("invite_id", invite.ID), slog.Any("error", nerr))
		}
	}
	return invite, nil
}

func (s *inviteService) CancelInvite(ctx context.Context, inviteID, currentUserID int) error {
	return s.tx.WithinSerializable(ctx, func(exec repositories.SQLExecutor) error {
		invite, err := s.inviteRepo.GetByID(ctx, exec, inviteID)
		if err != nil {
			if errors.Is(err, repositories.ErrInviteNotFound) {
				return ErrInviteNotFound
			}
			return fmt.Errorf("failed to get invite %d: %w", inviteID, err)
		}
		if _, err := s.getActiveTeamAsCaptain(ctx, exec, invite.TeamID, currentUserID); err != nil {
			return err
		}
		if invite.Status.Terminal() {
			return ErrInviteResolved
		}
		return s.inviteRepo.UpdateStatus(ctx, exec, invite.ID, models.InviteStatusCancelled)
	})
}

func (s *inviteService) ListTeamInvites(ctx context.Context, teamID, currentUserID int) ([]*models.TeamInvite, error) {
	now := s.now()
	if _, err := s.getActiveTeamAsCaptain(ctx, nil, teamID, currentUserID); err != nil {
		return nil, err
	}
	// Read paths sweep so callers never see a stale PENDING.
	if _, err := s.inviteRepo.ExpireLapsed(ctx, nil, teamID, now); err != nil {
		return nil, fmt.Errorf("failed to expire lapsed invites: %w", err)
	}
	return s.inviteRepo.ListByTeam(ctx, nil, teamID)
}

func generateInviteCode() (string, error) {
	b := make([]byte, inviteCodeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(inviteCodeAlphabet))))
		if err != nil {
			return "", fmt.Errorf("failed to generate invite code: %w", err)
		}
		b[i] = inviteCodeAlphabet[n.Int64()]
	}
	return string(b), nil
}

func (s *inviteService) GenerateInviteLink(ctx context.Context, teamID, currentUserID int, input GenerateLinkInput) (*models.TeamInviteLink, error) {
	if input.MaxUses <= 0 {
		return nil, fmt.Errorf("%w: max_uses must be positive", ErrValidationFailed)
	}

	now := s.now()
	var link *models.TeamInviteLink

	err := s.tx.WithinSerializable(ctx, func(exec repositories.SQLExecutor) error {
		if _, err := s.getActiveTeamAsCaptain(ctx, exec, teamID, currentUserID); err != nil {
			return err
		}
		// One active link per team; a new one supersedes the old.
		if err := s.linkRepo.DeactivateByTeam(ctx, exec, teamID); err != nil {
			return fmt.Errorf("failed to deactivate previous link: %w", err)
		}

		for attempt := 0; attempt < codeGenerationAttempts; attempt++ {
			code, err := generateInviteCode()
			if err != nil {
				return err
			}
			candidate := &models.TeamInviteLink{
				TeamID:    teamID,
				Code:      code,
				MaxUses:   input.MaxUses,
				Active:    true,
				ExpiresAt: now.Add(inviteLinkTTL),
			}
			err = s.linkRepo.Create(ctx, exec, candidate)
			if err == nil {
				link = candidate
				return nil
			}
			if !errors.Is(err, repositories.ErrInviteLinkCodeConflict) {
				return err
			}
		}
		return fmt.Errorf("failed to generate a unique invite code after %d attempts", codeGenerationAttempts)
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, currentUserID, "invite_link.generated", "team", teamID, map[string]interface{}{
		"max_uses":   link.MaxUses,
		"expires_at": link.ExpiresAt,
	})
	return link, nil
}

func (s *inviteService) GetActiveInviteLink(ctx context.Context, teamID, currentUserID int) (*models.TeamInviteLink, error) {
	if _, err := s.getActiveTeamAsCaptain(ctx, nil, teamID, currentUserID); err != nil {
		return nil, err
	}
	link, err := s.linkRepo.GetActiveByTeam(ctx, nil, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrInviteLinkNotFound) {
			return nil, ErrInviteLinkNotFound
		}
		return nil, fmt.Errorf("failed to get active invite link for team %d: %w", teamID, err)
	}
	return link, nil
}

func (s *inviteService) DeactivateInviteLink(ctx context.Context, teamID, linkID, currentUserID int) error {
	return s.tx.WithinSerializable(ctx, func(exec repositories.SQLExecutor) error {
		if _, err := s.getActiveTeamAsCaptain(ctx, exec, teamID, currentUserID); err != nil {
			return err
		}
		link, err := s.linkRepo.GetByID(ctx, exec, linkID)
		if err != nil {
			if errors.Is(err, repositories.ErrInviteLinkNotFound) {
				return ErrInviteLinkNotFound
			}
			return fmt.Errorf("failed to get invite link %d: %w", linkID, err)
		}
		if link.TeamID != teamID {
			return ErrInviteLinkNotFound
		}
		if !link.Active {
			// Already inactive; the end state is what matters.
			return nil
		}
		return s.linkRepo.Deactivate(ctx, exec, link.ID)
	})
}

// JoinByCode admits the caller to the link's team, consuming one use. The
// joining player picks their role; a collision demotes them to substitute.
func (s *inviteService) JoinByCode(ctx context.Context, code string, currentUserID int, role models.PlayerRole) (*models.Player, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, fmt.Errorf("%w: code is required", ErrValidationFailed)
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidationFailed, role)
	}

	now := s.now()
	var player *models.Player
	var captainID, teamID int

	err := s.tx.WithinSerializable(ctx, func(exec repositories.SQLExecutor) error {
		link, err := s.linkRepo.GetByCode(ctx, exec, code)
		if err != nil {
			if errors.Is(err, repositories.ErrInviteLinkNotFound) {
				return ErrInviteLinkNotFound
			}
			return fmt.Errorf("failed to get invite link: %w", err)
		}
		if !link.Active {
			return ErrInviteLinkInactive
		}
		if !now.Before(link.ExpiresAt) {
			return ErrInviteLinkExpired
		}
		if link.UsedCount >= link.MaxUses {
			return ErrInviteLinkExhausted
		}

		team, err := s.teamRepo.GetByID(ctx, exec, link.TeamID)
		if err != nil {
			if errors.Is(err, repositories.ErrTeamNotFound) {
				return ErrTeamNotFound
			}
			return fmt.Errorf("failed to get team %d: %w", link.TeamID, err)
		}
		if team.DeletedAt != nil {
			return ErrTeamNotFound
		}
		captainID = team.CaptainID
		teamID = team.ID

		user, err := s.userRepo.GetByID(ctx, currentUserID)
		if err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to get user %d: %w", currentUserID, err)
		}

		if _, err := s.playerRepo.FindActiveByUser(ctx, exec, currentUserID); err == nil {
			return ErrUserAlreadyRostered
		} else if !errors.Is(err, repositories.ErrPlayerNotFound) {
			return fmt.Errorf("failed to check roster membership: %w", err)
		}

		roster, err := s.playerRepo.ListActiveByTeam(ctx, exec, link.TeamID)
		if err != nil {
			return fmt.Errorf("failed to list roster for team %d: %w", link.TeamID, err)
		}
		if len(roster) >= models.MaxTeamSize {
			return ErrTeamFull
		}
		if ignInUse(roster, user.IGN, 0) {
			return ErrIGNConflict
		}

		player = &models.Player{
			TeamID: link.TeamID,
			UserID: &user.ID,
			IGN:    user.IGN,
			Role:   role,
		}
		if roleHeldByStarter(roster, role, 0) {
			player.IsSubstitute = true
		}
		if err := s.playerRepo.Create(ctx, exec, player); err != nil {
			return err
		}

		if err := s.linkRepo.ConsumeUse(ctx, exec, link.ID); err != nil {
			if errors.Is(err, repositories.ErrInviteLinkExhausted) {
				return ErrInviteLinkExhausted
			}
			return err
		}

		// Joining by link voids the user's outstanding directed invites too.
		if _, err := s.inviteRepo.CancelPendingByUser(ctx, exec, currentUserID, 0); err != nil {
			return fmt.Errorf("failed to cancel competing invites: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if nerr := s.notifier.Notify(ctx, captainID, models.NotificationInviteAccepted,
		"Player joined via link",
		fmt.Sprintf("%s joined your roster using the invite link.", player.IGN), nil); nerr != nil {
		s.logger.Warn("failed to notify captain of link join", slog.Int("team_id", teamID), slog.Any("error", nerr))
	}
	return player, nil
}
