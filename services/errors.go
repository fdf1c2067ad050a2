package services

import "errors"

// Shared business errors, mapped to HTTP statuses in the handlers package.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Entity-specific not-founds give the caller more context than ErrNotFound.
	ErrUserNotFound         = errors.New("user not found")
	ErrTeamNotFound         = errors.New("team not found")
	ErrPlayerNotFound       = errors.New("player not found")
	ErrInviteNotFound       = errors.New("invite not found")
	ErrInviteLinkNotFound   = errors.New("invite link not found")
	ErrTournamentNotFound   = errors.New("tournament not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrMatchNotFound        = errors.New("match not found")
	ErrDisputeNotFound      = errors.New("dispute not found")

	// Validation
	ErrValidationFailed = errors.New("validation failed")

	// Authorization
	ErrForbiddenOperation        = errors.New("operation not allowed for the current user")
	ErrCaptainActionForbidden    = errors.New("only the team captain can perform this action")
	ErrPrivilegedActionForbidden = errors.New("only tournament staff can perform this action")

	// Roster invariants
	ErrTeamFull            = errors.New("team is full")
	ErrIGNConflict         = errors.New("ign is already used by another player on this team")
	ErrRoleSlotConflict    = errors.New("role slot conflict")
	ErrUserAlreadyRostered = errors.New("user is already rostered on a team")

	// Invites
	ErrInvitePendingExists = errors.New("a pending invite for this player already exists")
	ErrInviteLimitReached  = errors.New("player already has too many pending invites")
	ErrInviteExpired       = errors.New("invite has expired")
	ErrInviteResolved      = errors.New("invite has already been resolved")
	ErrInviteLinkInactive  = errors.New("invite link is not active")
	ErrInviteLinkExpired   = errors.New("invite link has expired")
	ErrInviteLinkExhausted = errors.New("invite link has no uses left")

	// Registrations
	ErrRegistrationClosed  = errors.New("tournament registration is closed")
	ErrRosterIncomplete    = errors.New("roster does not cover all five starter roles")
	ErrTeamMediaRequired   = errors.New("team logo and banner are required")
	ErrAlreadyRegistered   = errors.New("team is already registered for this tournament")
	ErrTournamentFull      = errors.New("tournament is full")
	ErrRegistrationDecided = errors.New("registration has already been decided")

	// Matches and disputes
	ErrSameTeamMatch          = errors.New("a team cannot play against itself")
	ErrTeamsNotRegistered     = errors.New("both teams must have approved registrations in this tournament")
	ErrInvalidWinner          = errors.New("winner must be one of the competing teams")
	ErrInvalidMatchTransition = errors.New("invalid match status transition")
	ErrMatchNotCompleted      = errors.New("match is not completed")
	ErrDisputeWindowClosed    = errors.New("dispute window has closed")
	ErrDisputeAlreadyRaised   = errors.New("dispute already raised for this match")
	ErrDisputeResolved        = errors.New("dispute has already been resolved")

	// Teams and auth
	ErrTeamNameRequired       = errors.New("team name is required")
	ErrCaptainHasTeam         = errors.New("user already captains a team")
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrAuthEmailTaken         = errors.New("email is already taken")
	ErrAuthIGNTaken           = errors.New("ign is already taken")
	ErrPasswordTooShort       = errors.New("password is too short")

	ErrTournamentInvalidStatusTransition = errors.New("invalid tournament status transition")
)
