package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arenaleague/arena/models"
)

var regNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type registrationFixture struct {
	tournamentRepo *fakeTournamentRepo
	teamRepo       *fakeTeamRepo
	playerRepo     *fakePlayerRepo
	userRepo       *fakeUserRepo
	regRepo        *fakeRegistrationRepo
	waitlistRepo   *fakeWaitlistRepo
	notifier       *fakeNotifier
	audit          *fakeAuditRecorder
	svc            *registrationService
}

// fullRoster covers all five starter roles for the team.
func fullRoster(teamID int) []*models.Player {
	players := make([]*models.Player, 0, len(models.AllPlayerRoles))
	for i, role := range models.AllPlayerRoles {
		players = append(players, &models.Player{
			ID: teamID*100 + i, TeamID: teamID, IGN: string(role) + "-main",
			Role: role, CreatedAt: regNow.Add(-time.Hour),
		})
	}
	return players
}

func newRegistrationFixture() *registrationFixture {
	f := &registrationFixture{
		tournamentRepo: newFakeTournamentRepo(&models.Tournament{
			ID: 1, Name: "Summer Clash", Game: "MLBB", Slots: 2,
			RegistrationDeadline: regNow.Add(24 * time.Hour),
			StartDate:            regNow.Add(48 * time.Hour),
			Status:               models.TournamentStatusOpen,
		}),
		teamRepo: newFakeTeamRepo(&models.Team{
			ID: 1, Name: "Nightfall", CaptainID: 10, Status: models.TeamStatusActive,
			LogoKey: strPtr("teams/1/logo.png"), BannerKey: strPtr("teams/1/banner.png"),
		}),
		playerRepo: newFakePlayerRepo(fullRoster(1)...),
		userRepo: newFakeUserRepo(
			&models.User{ID: 10, IGN: "CaptainCold", Role: models.RolePlayer},
			&models.User{ID: 99, IGN: "Staff", Role: models.RoleTournamentAdmin},
		),
		regRepo:      newFakeRegistrationRepo(),
		waitlistRepo: newFakeWaitlistRepo(),
		notifier:     &fakeNotifier{},
		audit:        &fakeAuditRecorder{},
	}
	f.svc = &registrationService{
		tx:             &fakeTransactor{},
		tournamentRepo: f.tournamentRepo,
		teamRepo:       f.teamRepo,
		playerRepo:     f.playerRepo,
		userRepo:       f.userRepo,
		regRepo:        f.regRepo,
		waitlistRepo:   f.waitlistRepo,
		notifier:       f.notifier,
		audit:          f.audit,
		logger:         testLogger(),
		now:            func() time.Time { return regNow },
	}
	return f
}

func (f *registrationFixture) addTeam(id, captainID int) {
	f.teamRepo.teams[id] = &models.Team{
		ID: id, Name: "Team" + string(rune('A'+id)), CaptainID: captainID,
		Status: models.TeamStatusActive,
		LogoKey: strPtr("logo"), BannerKey: strPtr("banner"),
	}
	f.playerRepo.players = append(f.playerRepo.players, fullRoster(id)...)
}

func TestRegisterSuccess(t *testing.T) {
	f := newRegistrationFixture()

	result, err := f.svc.Register(context.Background(), 1, 1, 10)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if result.Registration.Status != models.RegistrationStatusPending {
		t.Fatalf("expected PENDING, got %s", result.Registration.Status)
	}
	if result.Waitlist != nil {
		t.Fatal("no waitlist entry expected with free slots")
	}
}

func TestRegisterClosedStates(t *testing.T) {
	tests := []struct {
		name  string
		setup func(tournament *models.Tournament)
	}{
		{"deadline passed", func(tr *models.Tournament) { tr.RegistrationDeadline = regNow.Add(-time.Minute) }},
		{"status closed", func(tr *models.Tournament) { tr.Status = models.TournamentStatusClosed }},
		{"status ongoing", func(tr *models.Tournament) { tr.Status = models.TournamentStatusOngoing }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newRegistrationFixture()
			tc.setup(f.tournamentRepo.tournaments[1])

			_, err := f.svc.Register(context.Background(), 1, 1, 10)
			if !errors.Is(err, ErrRegistrationClosed) {
				t.Fatalf("expected ErrRegistrationClosed, got %v", err)
			}
		})
	}
}

func TestRegisterOnlyCaptain(t *testing.T) {
	f := newRegistrationFixture()

	_, err := f.svc.Register(context.Background(), 1, 1, 99)
	if !errors.Is(err, ErrCaptainActionForbidden) {
		t.Fatalf("expected ErrCaptainActionForbidden, got %v", err)
	}
}

func TestRegisterIncompleteRoster(t *testing.T) {
	f := newRegistrationFixture()
	// Drop the MAGE starter; a MAGE substitute must not count.
	for _, p := range f.playerRepo.players {
		if p.TeamID == 1 && p.Role == models.RoleMage {
			p.IsSubstitute = true
		}
	}

	_, err := f.svc.Register(context.Background(), 1, 1, 10)
	if !errors.Is(err, ErrRosterIncomplete) {
		t.Fatalf("expected ErrRosterIncomplete, got %v", err)
	}
}

func TestRegisterRequiresMedia(t *testing.T) {
	f := newRegistrationFixture()
	f.teamRepo.teams[1].BannerKey = nil

	_, err := f.svc.Register(context.Background(), 1, 1, 10)
	if !errors.Is(err, ErrTeamMediaRequired) {
		t.Fatalf("expected ErrTeamMediaRequired, got %v", err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	f := newRegistrationFixture()
	if _, err := f.svc.Register(context.Background(), 1, 1, 10); err != nil {
		t.Fatalf("first register: %v", err)
	}

	_, err := f.svc.Register(context.Background(), 1, 1, 10)
	if !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
}

func TestRegisterRejectedDoesNotBlock(t *testing.T) {
	f := newRegistrationFixture()
	f.regRepo.registrations = append(f.regRepo.registrations, &models.TournamentRegistration{
		ID: 1, TournamentID: 1, TeamID: 1, Status: models.RegistrationStatusRejected,
	})
	f.regRepo.nextID = 2

	if _, err := f.svc.Register(context.Background(), 1, 1, 10); err != nil {
		t.Fatalf("expected re-registration after rejection, got %v", err)
	}
}

func TestRegisterFullTournamentWaitlists(t *testing.T) {
	f := newRegistrationFixture()
	f.tournamentRepo.tournaments[1].Filled = 2

	result, err := f.svc.Register(context.Background(), 1, 1, 10)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if result.Waitlist == nil {
		t.Fatal("expected waitlist entry for full tournament")
	}
	if result.Waitlist.Position != 1 {
		t.Fatalf("expected position 1, got %d", result.Waitlist.Position)
	}
	if result.Registration.Status != models.RegistrationStatusPending {
		t.Fatal("registration must stay PENDING while waitlisted")
	}
}

func TestWaitlistPositionsMonotonic(t *testing.T) {
	f := newRegistrationFixture()
	f.tournamentRepo.tournaments[1].Filled = 2
	f.addTeam(2, 20)
	f.addTeam(3, 30)

	first, _ := f.svc.Register(context.Background(), 1, 1, 10)
	second, _ := f.svc.Register(context.Background(), 1, 2, 20)
	if first.Waitlist.Position != 1 || second.Waitlist.Position != 2 {
		t.Fatalf("expected positions 1 and 2, got %d and %d", first.Waitlist.Position, second.Waitlist.Position)
	}

	// Removing the head of the queue must not recycle position 1.
	f.waitlistRepo.DeleteByTournamentAndTeam(context.Background(), nil, 1, 1)
	third, err := f.svc.Register(context.Background(), 1, 3, 30)
	if err != nil {
		t.Fatalf("third register: %v", err)
	}
	if third.Waitlist.Position != 3 {
		t.Fatalf("expected position 3 after deletion, got %d", third.Waitlist.Position)
	}
}

func TestDecideApprove(t *testing.T) {
	f := newRegistrationFixture()
	result, _ := f.svc.Register(context.Background(), 1, 1, 10)

	reg, err := f.svc.Decide(context.Background(), result.Registration.ID, 99, DecideRegistrationInput{Approve: true})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if reg.Status != models.RegistrationStatusApproved {
		t.Fatalf("expected APPROVED, got %s", reg.Status)
	}
	if reg.Seed == nil || *reg.Seed != 1 {
		t.Fatalf("expected auto seed 1, got %v", reg.Seed)
	}
	if reg.DecidedByID == nil || *reg.DecidedByID != 99 {
		t.Fatalf("expected decider 99, got %v", reg.DecidedByID)
	}

	tournament, _ := f.tournamentRepo.GetByID(context.Background(), nil, 1)
	if tournament.Filled != 1 {
		t.Fatalf("expected filled incremented to 1, got %d", tournament.Filled)
	}
	if got := f.notifier.sentTo(10); len(got) != 1 || got[0].ntype != models.NotificationRegistrationDecided {
		t.Fatalf("expected decision notification for captain, got %v", got)
	}
	if len(f.audit.entries) != 1 || f.audit.entries[0].action != "registration.approved" {
		t.Fatalf("expected approval audit entry, got %v", f.audit.entries)
	}
}

func TestDecideApproveExplicitSeed(t *testing.T) {
	f := newRegistrationFixture()
	result, _ := f.svc.Register(context.Background(), 1, 1, 10)

	reg, err := f.svc.Decide(context.Background(), result.Registration.ID, 99, DecideRegistrationInput{
		Approve: true, Seed: intPtr(7),
	})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if reg.Seed == nil || *reg.Seed != 7 {
		t.Fatalf("expected seed 7, got %v", reg.Seed)
	}
}

func TestDecideApproveFullTournament(t *testing.T) {
	f := newRegistrationFixture()
	result, _ := f.svc.Register(context.Background(), 1, 1, 10)
	f.tournamentRepo.tournaments[1].Filled = 2

	_, err := f.svc.Decide(context.Background(), result.Registration.ID, 99, DecideRegistrationInput{Approve: true})
	if !errors.Is(err, ErrTournamentFull) {
		t.Fatalf("expected ErrTournamentFull, got %v", err)
	}
	reg, _ := f.regRepo.GetByID(context.Background(), nil, result.Registration.ID)
	if reg.Status != models.RegistrationStatusPending {
		t.Fatalf("failed approval must leave registration PENDING, got %s", reg.Status)
	}
}

func TestDecideApproveRemovesWaitlistEntry(t *testing.T) {
	f := newRegistrationFixture()
	f.tournamentRepo.tournaments[1].Filled = 2
	result, _ := f.svc.Register(context.Background(), 1, 1, 10)

	// A slot frees up before the decision.
	f.tournamentRepo.tournaments[1].Filled = 1
	if _, err := f.svc.Decide(context.Background(), result.Registration.ID, 99, DecideRegistrationInput{Approve: true}); err != nil {
		t.Fatalf("approve waitlisted team: %v", err)
	}
	entries, _ := f.waitlistRepo.ListByTournament(context.Background(), 1)
	if len(entries) != 0 {
		t.Fatalf("expected waitlist emptied on approval, got %d entries", len(entries))
	}
}

func TestDecideReject(t *testing.T) {
	f := newRegistrationFixture()
	result, _ := f.svc.Register(context.Background(), 1, 1, 10)

	reg, err := f.svc.Decide(context.Background(), result.Registration.ID, 99, DecideRegistrationInput{
		Reason: strPtr("roster under review"),
	})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if reg.Status != models.RegistrationStatusRejected {
		t.Fatalf("expected REJECTED, got %s", reg.Status)
	}
	tournament, _ := f.tournamentRepo.GetByID(context.Background(), nil, 1)
	if tournament.Filled != 0 {
		t.Fatal("rejection must not consume capacity")
	}
	if len(f.audit.entries) != 1 || f.audit.entries[0].action != "registration.rejected" {
		t.Fatalf("expected rejection audit entry, got %v", f.audit.entries)
	}
}

func TestDecideRequiresStaff(t *testing.T) {
	f := newRegistrationFixture()
	result, _ := f.svc.Register(context.Background(), 1, 1, 10)

	_, err := f.svc.Decide(context.Background(), result.Registration.ID, 10, DecideRegistrationInput{Approve: true})
	if !errors.Is(err, ErrPrivilegedActionForbidden) {
		t.Fatalf("expected ErrPrivilegedActionForbidden, got %v", err)
	}
}

func TestDecideTwice(t *testing.T) {
	f := newRegistrationFixture()
	result, _ := f.svc.Register(context.Background(), 1, 1, 10)
	if _, err := f.svc.Decide(context.Background(), result.Registration.ID, 99, DecideRegistrationInput{Approve: true}); err != nil {
		t.Fatalf("first decision: %v", err)
	}

	_, err := f.svc.Decide(context.Background(), result.Registration.ID, 99, DecideRegistrationInput{Approve: false})
	if !errors.Is(err, ErrRegistrationDecided) {
		t.Fatalf("expected ErrRegistrationDecided, got %v", err)
	}
}

func TestListByTournamentUnknown(t *testing.T) {
	f := newRegistrationFixture()

	if _, err := f.svc.ListByTournament(context.Background(), 42, nil); !errors.Is(err, ErrTournamentNotFound) {
		t.Fatalf("expected ErrTournamentNotFound, got %v", err)
	}
	if _, err := f.svc.Waitlist(context.Background(), 42); !errors.Is(err, ErrTournamentNotFound) {
		t.Fatalf("expected ErrTournamentNotFound, got %v", err)
	}
}
