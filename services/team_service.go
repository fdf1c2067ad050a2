package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/arenaleague/arena/models"
	"github.com/arenaleague/arena/repositories"
	"github.com/arenaleague/arena/storage"
)

type CreateTeamInput struct {
	Name        string            `json:"name"`
	Tag         string            `json:"tag"`
	Region      string            `json:"region"`
	Color       *string           `json:"color,omitempty"`
	CaptainIGN  string            `json:"captain_ign"`
	CaptainRole models.PlayerRole `json:"captain_role"`
}

type TeamMediaKind string

const (
	TeamMediaLogo   TeamMediaKind = "logo"
	TeamMediaBanner TeamMediaKind = "banner"
)

// TeamService owns team lifecycle: creation (which also rosters the captain),
// media uploads and soft deletion. Roster mutations live in RosterService.
type TeamService interface {
	CreateTeam(ctx context.Context, captainID int, input CreateTeamInput) (*models.Team, error)
	GetTeam(ctx context.Context, teamID int) (*models.Team, error)
	UploadTeamMedia(ctx context.Context, teamID, currentUserID int, kind TeamMediaKind, contentType string, file io.Reader) (*models.Team, error)
	DeleteTeam(ctx context.Context, teamID, currentUserID int) error
}

type teamService struct {
	tx         repositories.Transactor
	teamRepo   repositories.TeamRepository
	playerRepo repositories.PlayerRepository
	userRepo   repositories.UserRepository
	uploader   storage.FileUploader
	logger     *slog.Logger
}

func NewTeamService(
	tx repositories.Transactor,
	teamRepo repositories.TeamRepository,
	playerRepo repositories.PlayerRepository,
	userRepo repositories.UserRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) TeamService {
	return &teamService{
		tx:         tx,
		teamRepo:   teamRepo,
		playerRepo: playerRepo,
		userRepo:   userRepo,
		uploader:   uploader,
		logger:     logger,
	}
}

func (s *teamService) populateMediaURLs(team *models.Team) {
	if team == nil || s.uploader == nil {
		return
	}
	if team.LogoKey != nil && *team.LogoKey != "" {
		if url := s.uploader.GetPublicURL(*team.LogoKey); url != "" {
			team.LogoURL = &url
		}
	}
	if team.BannerKey != nil && *team.BannerKey != "" {
		if url := s.uploader.GetPublicURL(*team.BannerKey); url != "" {
			team.BannerURL = &url
		}
	}
}

// CreateTeam creates the team and its captain's player row in one
// transaction: a team never exists without its captain on the roster.
func (s *teamService) CreateTeam(ctx context.Context, captainID int, input CreateTeamInput) (*models.Team, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrTeamNameRequired
	}
	if !input.CaptainRole.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidationFailed, input.CaptainRole)
	}

	captain, err := s.userRepo.GetByID(ctx, captainID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %d: %w", captainID, err)
	}

	captainIGN := strings.TrimSpace(input.CaptainIGN)
	if captainIGN == "" {
		captainIGN = captain.IGN
	}

	team := &models.Team{
		Name:      name,
		Tag:       strings.TrimSpace(input.Tag),
		Region:    strings.TrimSpace(input.Region),
		Color:     input.Color,
		CaptainID: captainID,
		Status:    models.TeamStatusActive,
	}

	err = s.tx.WithinSerializable(ctx, func(exec repositories.SQLExecutor) error {
		if _, err := s.playerRepo.FindActiveByUser(ctx, exec, captainID); err == nil {
			return ErrUserAlreadyRostered
		} else if !errors.Is(err, repositories.ErrPlayerNotFound) {
			return fmt.Errorf("failed to check roster membership: %w", err)
		}

		if err := s.teamRepo.Create(ctx, exec, team); err != nil {
			switch {
			case errors.Is(err, repositories.ErrTeamNameConflict):
				return fmt.Errorf("%w: name %q is taken", ErrValidationFailed, name)
			case errors.Is(err, repositories.ErrTeamCaptainConflict):
				return ErrCaptainHasTeam
			}
			return err
		}

		captainPlayer := &models.Player{
			TeamID: team.ID,
			UserID: &captain.ID,
			IGN:    captainIGN,
			Role:   input.CaptainRole,
		}
		return s.playerRepo.Create(ctx, exec, captainPlayer)
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}

func (s *teamService) GetTeam(ctx context.Context, teamID int) (*models.Team, error) {
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

	players, err := s.playerRepo.ListActiveByTeam(ctx, nil, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roster for team %d: %w", teamID, err)
	}
	team.Players = make([]models.Player, 0, len(players))
	for _, p := range players {
		team.Players = append(team.Players, *p)
	}

	s.populateMediaURLs(team)
	return team, nil
}

func extensionFromContentType(contentType string) (string, error) {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/webp":
		return ".webp", nil
	}
	return "", fmt.Errorf("%w: unsupported image content type %q", ErrValidationFailed, contentType)
}

func (s *teamService) UploadTeamMedia(ctx context.Context, teamID, currentUserID int, kind TeamMediaKind, contentType string, file io.Reader) (*models.Team, error) {
	if kind != TeamMediaLogo && kind != TeamMediaBanner {
		return nil, fmt.Errorf("%w: unknown media kind %q", ErrValidationFailed, kind)
	}
	ext, err := extensionFromContentType(contentType)
	if err != nil {
		return nil, err
	}

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
	if team.CaptainID != currentUserID {
		return nil, ErrCaptainActionForbidden
	}

	key := storage.TeamMediaKey(teamID, string(kind), ext)
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload team %s: %w", kind, err)
	}

	var logoKey, bannerKey *string
	if kind == TeamMediaLogo {
		logoKey = &result.Key
		team.LogoKey = &result.Key
	} else {
		bannerKey = &result.Key
		team.BannerKey = &result.Key
	}
	if err := s.teamRepo.UpdateMediaKeys(ctx, teamID, logoKey, bannerKey); err != nil {
		return nil, fmt.Errorf("failed to store media key for team %d: %w", teamID, err)
	}

	s.populateMediaURLs(team)
	return team, nil
}

func (s *teamService) DeleteTeam(ctx context.Context, teamID, currentUserID int) error {
	return s.tx.WithinSerializable(ctx, func(exec repositories.SQLExecutor) error {
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
			user, uerr := s.userRepo.GetByID(ctx, currentUserID)
			if uerr != nil || !user.Role.IsPrivileged() {
				return ErrCaptainActionForbidden
			}
		}

		players, err := s.playerRepo.ListActiveByTeam(ctx, exec, teamID)
		if err != nil {
			return fmt.Errorf("failed to list roster for team %d: %w", teamID, err)
		}
		for _, p := range players {
			if err := s.playerRepo.SoftDelete(ctx, exec, p.ID); err != nil {
				return fmt.Errorf("failed to remove player %d: %w", p.ID, err)
			}
		}
		return s.teamRepo.SoftDelete(ctx, exec, teamID)
	})
}
